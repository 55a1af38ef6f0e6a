package browser

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/RecoveryAshes/ytwatcher/internal/models"
	"github.com/RecoveryAshes/ytwatcher/internal/utils"
)

// ChromedpSession 基于chromedp的会话
type ChromedpSession struct {
	// ctx 浏览器标签页的context,所有动作都在其派生context上执行
	ctx context.Context

	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	closeOnce sync.Once
}

// OpenChromedp 启动本地浏览器
func OpenChromedp(ctx context.Context, cfg models.BrowserConfig) (*ChromedpSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.Bin != "" {
		opts = append(opts, chromedp.ExecPath(cfg.Bin))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.Proxy))
	}
	for _, f := range LaunchFlags(cfg) {
		if f.Value == "" {
			opts = append(opts, chromedp.Flag(f.Name, true))
		} else {
			opts = append(opts, chromedp.Flag(f.Name, f.Value))
		}
	}

	// 浏览器生命周期独立于调用方context,由Close结束
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &ChromedpSession{ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc}
	runCtx, cancel := s.bind(ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, network.Enable()); err != nil {
		s.Close()
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	utils.Debugf("chromedp浏览器已启动")
	return s, nil
}

// bind 返回一个挂在标签页context上、同时受调用方取消和截止时间约束的context
func (s *ChromedpSession) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(s.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *ChromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate 实现Session接口
func (s *ChromedpSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("打开页面失败 [%s]: %w", url, err)
	}
	return nil
}

// WaitInteractable 实现Session接口
func (s *ChromedpSession) WaitInteractable(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var nodes []*cdp.Node
	err := s.run(waitCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.WaitEnabled(selector, chromedp.ByQuery),
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery),
	)
	if err != nil {
		return nil, waitError(ctx, "wait-interactable", selector, timeout, err)
	}
	if len(nodes) == 0 {
		return nil, waitError(ctx, "wait-interactable", selector, timeout, nil)
	}
	return &chromedpElement{node: nodes[0], session: s}, nil
}

// WaitHidden 实现Session接口
func (s *ChromedpSession) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	return pollUntil(ctx, "wait-hidden", selector, timeout, func(ctx context.Context) (bool, error) {
		els, err := s.FindAll(ctx, selector)
		if err != nil {
			return false, err
		}
		for _, el := range els {
			visible, err := el.Visible(ctx)
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
func (s *ChromedpSession) Find(ctx context.Context, selector string) (Element, bool, error) {
	els, err := s.FindAll(ctx, selector)
	if err != nil {
		return nil, false, err
	}
	if len(els) == 0 {
		return nil, false, nil
	}
	return els[0], true, nil
}

// FindAll 实现Session接口
func (s *ChromedpSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("查找元素失败 [%s]: %w", selector, err)
	}
	return s.wrap(nodes), nil
}

// MovePointer 实现Session接口
func (s *ChromedpSession) MovePointer(ctx context.Context, p Point) error {
	return s.run(ctx, chromedp.MouseEvent(input.MouseMoved, p.X, p.Y))
}

// ScrollToBottom 实现Session接口
func (s *ChromedpSession) ScrollToBottom(ctx context.Context, selector string) error {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		window.scrollTo(0, el ? el.scrollHeight : document.body.scrollHeight);
	})()`, selector)
	if err := s.run(ctx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("滚动页面失败: %w", err)
	}
	return nil
}

// SetCookies 实现Session接口
func (s *ChromedpSession) SetCookies(ctx context.Context, cookies ...Cookie) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("设置cookie失败 [%s]: %w", c.Name, err)
			}
		}
		return nil
	}))
}

// SetExtraHeaders 实现Session接口
func (s *ChromedpSession) SetExtraHeaders(ctx context.Context, headers http.Header) error {
	h := make(network.Headers, len(headers))
	for name := range headers {
		h[name] = headers.Get(name)
	}
	if err := s.run(ctx, network.SetExtraHTTPHeaders(h)); err != nil {
		return fmt.Errorf("设置附加头部失败: %w", err)
	}
	return nil
}

// Close 实现Session接口
func (s *ChromedpSession) Close() error {
	s.closeOnce.Do(func() {
		s.cancelTab()
		s.cancelAlloc()
		utils.Debugf("浏览器已关闭")
	})
	return nil
}

func (s *ChromedpSession) wrap(nodes []*cdp.Node) []Element {
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &chromedpElement{node: n, session: s})
	}
	return out
}

var _ Session = (*ChromedpSession)(nil)

// chromedpElement chromedp节点适配器
type chromedpElement struct {
	node    *cdp.Node
	session *ChromedpSession
}

// call 以节点为this执行一段函数并解码返回值
func (e *chromedpElement) call(ctx context.Context, fn string, res any, args ...any) error {
	return e.session.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("解析节点失败: %w", err)
		}
		defer runtime.ReleaseObject(obj.ObjectID).Do(ctx)

		onNode := func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		}
		return chromedp.CallFunctionOn(fn, res, onNode, args...).Do(ctx)
	}))
}

func (e *chromedpElement) TagName(ctx context.Context) (string, error) {
	return strings.ToLower(e.node.LocalName), nil
}

func (e *chromedpElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.call(ctx, `function() { return this.innerText || ""; }`, &text)
	return text, err
}

func (e *chromedpElement) Property(ctx context.Context, name string) (string, error) {
	var v string
	err := e.call(ctx, `function(name) {
		const v = this[name];
		return v === undefined || v === null ? "" : String(v);
	}`, &v, name)
	return v, err
}

func (e *chromedpElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var res struct {
		OK    bool   `json:"ok"`
		Value string `json:"value"`
	}
	err := e.call(ctx, `function(name) {
		const v = this.getAttribute(name);
		return { ok: v !== null, value: v === null ? "" : v };
	}`, &res, name)
	return res.Value, res.OK, err
}

func (e *chromedpElement) Visible(ctx context.Context) (bool, error) {
	var visible bool
	err := e.call(ctx, visibleJS, &visible)
	return visible, err
}

func (e *chromedpElement) Find(ctx context.Context, selector string) (Element, bool, error) {
	els, err := e.FindAll(ctx, selector)
	if err != nil {
		return nil, false, err
	}
	if len(els) == 0 {
		return nil, false, nil
	}
	return els[0], true, nil
}

func (e *chromedpElement) FindAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	err := e.session.run(ctx, chromedp.Nodes(selector, &nodes,
		chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	return e.session.wrap(nodes), nil
}

func (e *chromedpElement) Box(ctx context.Context) (Rect, error) {
	var model *dom.BoxModel
	err := e.session.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		model, err = dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return Rect{}, err
	}
	if len(model.Content) < 2 {
		return Rect{}, fmt.Errorf("元素没有可见区域")
	}
	return Rect{
		X:      model.Content[0],
		Y:      model.Content[1],
		Width:  float64(model.Width),
		Height: float64(model.Height),
	}, nil
}

func (e *chromedpElement) Click(ctx context.Context) error {
	return e.session.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *chromedpElement) Clear(ctx context.Context) error {
	return e.call(ctx, `function() {
		this.focus();
		this.value = "";
		this.dispatchEvent(new Event("input", { bubbles: true }));
	}`, nil)
}

func (e *chromedpElement) Type(ctx context.Context, text string) error {
	return e.session.run(ctx, chromedp.KeyEventNode(e.node, text))
}

func (e *chromedpElement) Submit(ctx context.Context) error {
	return e.session.run(ctx, chromedp.KeyEventNode(e.node, kb.Enter))
}

const visibleJS = `function() {
	const style = window.getComputedStyle(this);
	if (style.display === "none" || style.visibility === "hidden") {
		return false;
	}
	const rect = this.getBoundingClientRect();
	return rect.width > 0 && rect.height > 0;
}`
