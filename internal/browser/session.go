// Package browser 定义驱动层使用的浏览器会话抽象,以及基于rod和chromedp的实现
package browser

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/RecoveryAshes/ytwatcher/internal/models"
)

// Point 视口坐标
type Point struct {
	X float64
	Y float64
}

// Add 返回偏移后的坐标
func (p Point) Add(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Rect 元素在视口中的矩形区域
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Origin 左上角坐标
func (r Rect) Origin() Point {
	return Point{X: r.X, Y: r.Y}
}

// Cookie 需要预置的cookie
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// Element 页面节点句柄
// 句柄只在产生它的会话和页面内有效,导航后不应再使用
type Element interface {
	// TagName 小写标签名
	TagName(ctx context.Context) (string, error)

	// Text 可见文本 (innerText)
	Text(ctx context.Context) (string, error)

	// Property DOM属性值 (如 title、href),不存在时返回空字符串
	Property(ctx context.Context, name string) (string, error)

	// Attribute HTML特性值,ok为false表示未设置
	Attribute(ctx context.Context, name string) (value string, ok bool, err error)

	// Visible 当前是否可见
	Visible(ctx context.Context) (bool, error)

	// Find 在子树中查找第一个匹配节点,不等待; 未找到时ok为false,不是错误
	Find(ctx context.Context, selector string) (el Element, ok bool, err error)

	// FindAll 在子树中查找所有匹配节点,不等待
	FindAll(ctx context.Context, selector string) ([]Element, error)

	// Box 元素的矩形区域
	Box(ctx context.Context) (Rect, error)

	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	Type(ctx context.Context, text string) error

	// Submit 在元素上按下回车
	Submit(ctx context.Context) error
}

// Session 一个活动的浏览器会话
// 会话由单一所有者独占使用,不支持并发调用
type Session interface {
	// Navigate 打开URL并等待页面加载
	Navigate(ctx context.Context, url string) error

	// WaitInteractable 等待元素出现、可见且可用
	// 超过timeout返回 *models.TimeoutError
	WaitInteractable(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	// WaitHidden 等待所有匹配元素消失或不可见
	// 超过timeout返回 *models.TimeoutError
	WaitHidden(ctx context.Context, selector string, timeout time.Duration) error

	// Find 查找第一个匹配节点,不等待; 未找到时ok为false,不是错误
	Find(ctx context.Context, selector string) (el Element, ok bool, err error)

	// FindAll 查找所有匹配节点,不等待
	FindAll(ctx context.Context, selector string) ([]Element, error)

	// MovePointer 移动鼠标指针到视口坐标
	MovePointer(ctx context.Context, p Point) error

	// ScrollToBottom 将window滚动到selector元素的scrollHeight处
	ScrollToBottom(ctx context.Context, selector string) error

	SetCookies(ctx context.Context, cookies ...Cookie) error

	// SetExtraHeaders 为之后的所有请求附加HTTP头部
	SetExtraHeaders(ctx context.Context, headers http.Header) error

	// Close 释放会话占用的所有资源,可重复调用
	Close() error
}

// DefaultPollInterval 自实现等待的轮询间隔
const DefaultPollInterval = 200 * time.Millisecond

// pollUntil 以固定间隔检查条件直到满足或超时
// 超时返回 *models.TimeoutError; 父context取消时返回其错误
func pollUntil(ctx context.Context, op, selector string, timeout time.Duration, check func(ctx context.Context) (bool, error)) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(DefaultPollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		done, err := check(waitCtx)
		if err == nil && done {
			return nil
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-waitCtx.Done():
			return waitError(ctx, op, selector, timeout, lastErr)
		case <-ticker.C:
		}
	}
}

// waitError 将有界等待的失败转换为统一错误
// 调用方context已取消时原样返回取消原因,否则视为超时
func waitError(ctx context.Context, op, selector string, timeout time.Duration, cause error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if cause != nil && !errors.Is(cause, context.DeadlineExceeded) && !errors.Is(cause, context.Canceled) {
		return &models.TimeoutError{Op: op, Selector: selector, Timeout: timeout, Cause: cause}
	}
	return &models.TimeoutError{Op: op, Selector: selector, Timeout: timeout}
}

// headerPairs 将http.Header展开为 name, value 交替的列表
func headerPairs(headers http.Header) []string {
	pairs := make([]string, 0, len(headers)*2)
	for name := range headers {
		pairs = append(pairs, name, headers.Get(name))
	}
	return pairs
}
