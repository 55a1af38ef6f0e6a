package browser

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/RecoveryAshes/ytwatcher/internal/models"
	"github.com/RecoveryAshes/ytwatcher/internal/utils"
)

// RodSession 基于go-rod的会话
// 本地模式下由launcher启动浏览器,远程模式下连接已有的DevTools端点
type RodSession struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher

	// 清除附加头部的回调
	clearHeaders func()

	closeOnce sync.Once
}

// OpenRod 启动本地浏览器并打开一个标签页
func OpenRod(ctx context.Context, cfg models.BrowserConfig) (*RodSession, error) {
	l := launcher.New().Context(ctx).Headless(cfg.Headless)
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}
	for _, f := range LaunchFlags(cfg) {
		if f.Value == "" {
			l = l.Set(flags.Flag(f.Name))
		} else {
			l = l.Set(flags.Flag(f.Name), f.Value)
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	utils.Debugf("浏览器已启动: %s", controlURL)

	s, err := connectRod(controlURL, cfg.Stealth)
	if err != nil {
		l.Kill()
		return nil, err
	}
	s.launcher = l
	return s, nil
}

// OpenRemote 连接远程浏览器 (如浏览器容器暴露的9222端口)
func OpenRemote(ctx context.Context, cfg models.BrowserConfig) (*RodSession, error) {
	controlURL, err := launcher.ResolveURL(cfg.RemoteURL)
	if err != nil {
		return nil, fmt.Errorf("解析远程浏览器地址失败 [%s]: %w", cfg.RemoteURL, err)
	}
	utils.Debugf("连接远程浏览器: %s", controlURL)
	return connectRod(controlURL, cfg.Stealth)
}

func connectRod(controlURL string, withStealth bool) (*RodSession, error) {
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	var page *rod.Page
	var err error
	if withStealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}

	return &RodSession{browser: b, page: page}, nil
}

// Navigate 实现Session接口
func (s *RodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("打开页面失败 [%s]: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("等待页面加载失败 [%s]: %w", url, err)
	}
	return nil
}

// WaitInteractable 实现Session接口
func (s *RodSession) WaitInteractable(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	p := s.page.Context(waitCtx)

	el, err := p.Element(selector)
	if err != nil {
		return nil, waitError(ctx, "wait-interactable", selector, timeout, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, waitError(ctx, "wait-interactable", selector, timeout, err)
	}
	if err := el.WaitEnabled(); err != nil {
		return nil, waitError(ctx, "wait-interactable", selector, timeout, err)
	}
	return &rodElement{el: el, session: s}, nil
}

// WaitHidden 实现Session接口
func (s *RodSession) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	return pollUntil(ctx, "wait-hidden", selector, timeout, func(ctx context.Context) (bool, error) {
		els, err := s.page.Context(ctx).Elements(selector)
		if err != nil {
			return false, err
		}
		for _, el := range els {
			visible, err := el.Visible()
			if err != nil {
				return false, err
			}
			if visible {
				return false, nil
			}
		}
		return true, nil
	})
}

// Find 实现Session接口
func (s *RodSession) Find(ctx context.Context, selector string) (Element, bool, error) {
	has, el, err := s.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, false, fmt.Errorf("查找元素失败 [%s]: %w", selector, err)
	}
	if !has {
		return nil, false, nil
	}
	return &rodElement{el: el, session: s}, true, nil
}

// FindAll 实现Session接口
func (s *RodSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("查找元素失败 [%s]: %w", selector, err)
	}
	return s.wrap(els), nil
}

// MovePointer 实现Session接口
func (s *RodSession) MovePointer(ctx context.Context, p Point) error {
	// Page.Context不会复制Mouse,直接派发事件才能让ctx生效
	return dispatchMouseMove(s.page.Context(ctx), p)
}

// dispatchMouseMove 在c上派发一次鼠标移动,c携带的context决定截止时间
func dispatchMouseMove(c proto.Client, p Point) error {
	err := proto.InputDispatchMouseEvent{
		Type: proto.InputDispatchMouseEventTypeMouseMoved,
		X:    p.X,
		Y:    p.Y,
	}.Call(c)
	if err != nil {
		return fmt.Errorf("移动鼠标失败: %w", err)
	}
	return nil
}

// ScrollToBottom 实现Session接口
func (s *RodSession) ScrollToBottom(ctx context.Context, selector string) error {
	_, err := s.page.Context(ctx).Eval(scrollToBottomJS, selector)
	if err != nil {
		return fmt.Errorf("滚动页面失败: %w", err)
	}
	return nil
}

// SetCookies 实现Session接口
func (s *RodSession) SetCookies(ctx context.Context, cookies ...Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	return s.page.Context(ctx).SetCookies(params)
}

// SetExtraHeaders 实现Session接口
func (s *RodSession) SetExtraHeaders(ctx context.Context, headers http.Header) error {
	if s.clearHeaders != nil {
		s.clearHeaders()
		s.clearHeaders = nil
	}
	if len(headers) == 0 {
		return nil
	}
	cleanup, err := s.page.Context(ctx).SetExtraHeaders(headerPairs(headers))
	if err != nil {
		return fmt.Errorf("设置附加头部失败: %w", err)
	}
	s.clearHeaders = cleanup
	return nil
}

// Close 实现Session接口
func (s *RodSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.launcher == nil {
			// 远程浏览器不属于我们,只关闭自己的标签页
			err = s.page.Close()
			return
		}
		err = s.browser.Close()
		s.launcher.Kill()
		s.launcher.Cleanup()
		utils.Debugf("浏览器已关闭")
	})
	return err
}

func (s *RodSession) wrap(els rod.Elements) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el, session: s})
	}
	return out
}

var _ Session = (*RodSession)(nil)

// rodElement rod元素适配器
type rodElement struct {
	el      *rod.Element
	session *RodSession
}

func (e *rodElement) TagName(ctx context.Context) (string, error) {
	v, err := e.el.Context(ctx).Property("tagName")
	if err != nil {
		return "", err
	}
	return strings.ToLower(v.Str()), nil
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) Property(ctx context.Context, name string) (string, error) {
	v, err := e.el.Context(ctx).Property(name)
	if err != nil {
		return "", err
	}
	if v.Nil() {
		return "", nil
	}
	return v.Str(), nil
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Visible(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

func (e *rodElement) Find(ctx context.Context, selector string) (Element, bool, error) {
	has, el, err := e.el.Context(ctx).Has(selector)
	if err != nil {
		return nil, false, err
	}
	if !has {
		return nil, false, nil
	}
	return &rodElement{el: el, session: e.session}, true, nil
}

func (e *rodElement) FindAll(ctx context.Context, selector string) ([]Element, error) {
	els, err := e.el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	return e.session.wrap(els), nil
}

func (e *rodElement) Box(ctx context.Context) (Rect, error) {
	shape, err := e.el.Context(ctx).Shape()
	if err != nil {
		return Rect{}, err
	}
	box := shape.Box()
	if box == nil {
		return Rect{}, fmt.Errorf("元素没有可见区域")
	}
	return Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Clear(ctx context.Context) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Type(input.Backspace)
}

func (e *rodElement) Type(ctx context.Context, text string) error {
	return e.el.Context(ctx).Input(text)
}

func (e *rodElement) Submit(ctx context.Context) error {
	return e.el.Context(ctx).Type(input.Enter)
}

const scrollToBottomJS = `(sel) => {
	const el = document.querySelector(sel);
	window.scrollTo(0, el ? el.scrollHeight : document.body.scrollHeight);
}`
