// Package browsertest 提供内存中的假浏览器会话,用于在没有浏览器的情况下测试驱动逻辑
package browsertest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/ytwatcher/internal/browser"
	"github.com/RecoveryAshes/ytwatcher/internal/models"
)

// Node 假DOM节点
// 子节点按选择器直接索引,不解析CSS
type Node struct {
	Tag      string
	Text     string
	Props    map[string]string
	Attrs    map[string]string
	Hidden   bool
	Disabled bool
	Rect     browser.Rect
	Children map[string][]*Node
}

// El 创建节点
func El(tag string) *Node {
	return &Node{
		Tag:      tag,
		Props:    map[string]string{},
		Attrs:    map[string]string{},
		Children: map[string][]*Node{},
	}
}

// WithText 设置可见文本
func (n *Node) WithText(text string) *Node {
	n.Text = text
	return n
}

// WithProp 设置DOM属性
func (n *Node) WithProp(name, value string) *Node {
	n.Props[name] = value
	return n
}

// WithAttr 设置HTML特性
func (n *Node) WithAttr(name, value string) *Node {
	n.Attrs[name] = value
	return n
}

// WithChild 在selector下追加子节点
func (n *Node) WithChild(selector string, children ...*Node) *Node {
	n.Children[selector] = append(n.Children[selector], children...)
	return n
}

// WithRect 设置矩形区域
func (n *Node) WithRect(r browser.Rect) *Node {
	n.Rect = r
	return n
}

// Hide 标记为不可见
func (n *Node) Hide() *Node {
	n.Hidden = true
	return n
}

// Session 假会话,记录所有交互
type Session struct {
	// DOM 当前页面: 选择器 → 节点
	DOM map[string][]*Node

	// Pages 导航到对应URL时替换DOM
	Pages map[string]map[string][]*Node

	// OnNavigate 导航时的回调,返回错误则导航失败
	OnNavigate func(s *Session, url string) error

	// OnScroll 每次滚动后的回调,可用于模拟懒加载
	OnScroll func(s *Session)

	Navigations []string
	Moves       []browser.Point
	Typed       []string
	Clears      int
	Submits     int
	Clicks      int
	Scrolls     int
	Cookies     []browser.Cookie
	Headers     http.Header
	Closed      bool
}

// New 创建空会话
func New() *Session {
	return &Session{
		DOM:   map[string][]*Node{},
		Pages: map[string]map[string][]*Node{},
	}
}

// Put 替换当前页面中selector对应的节点
func (s *Session) Put(selector string, nodes ...*Node) {
	s.DOM[selector] = nodes
}

// Append 向当前页面中selector追加节点
func (s *Session) Append(selector string, nodes ...*Node) {
	s.DOM[selector] = append(s.DOM[selector], nodes...)
}

// Navigate 实现browser.Session接口
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Navigations = append(s.Navigations, url)
	if dom, ok := s.Pages[url]; ok {
		s.DOM = dom
	}
	if s.OnNavigate != nil {
		return s.OnNavigate(s, url)
	}
	return nil
}

// WaitInteractable 实现browser.Session接口
// 假会话不等待: 元素不存在、不可见或不可用时立即返回超时错误
func (s *Session) WaitInteractable(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nodes := s.DOM[selector]
	if len(nodes) == 0 || nodes[0].Hidden || nodes[0].Disabled {
		return nil, &models.TimeoutError{Op: "wait-interactable", Selector: selector, Timeout: timeout}
	}
	return &element{node: nodes[0], session: s}, nil
}

// WaitHidden 实现browser.Session接口
func (s *Session) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, n := range s.DOM[selector] {
		if !n.Hidden {
			return &models.TimeoutError{Op: "wait-hidden", Selector: selector, Timeout: timeout}
		}
	}
	return nil
}

// Find 实现browser.Session接口
func (s *Session) Find(ctx context.Context, selector string) (browser.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	nodes := s.DOM[selector]
	if len(nodes) == 0 {
		return nil, false, nil
	}
	return &element{node: nodes[0], session: s}, true, nil
}

// FindAll 实现browser.Session接口
func (s *Session) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.wrap(s.DOM[selector]), nil
}

// MovePointer 实现browser.Session接口
func (s *Session) MovePointer(ctx context.Context, p browser.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Moves = append(s.Moves, p)
	return nil
}

// ScrollToBottom 实现browser.Session接口
func (s *Session) ScrollToBottom(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Scrolls++
	if s.OnScroll != nil {
		s.OnScroll(s)
	}
	return nil
}

// SetCookies 实现browser.Session接口
func (s *Session) SetCookies(ctx context.Context, cookies ...browser.Cookie) error {
	s.Cookies = append(s.Cookies, cookies...)
	return nil
}

// SetExtraHeaders 实现browser.Session接口
func (s *Session) SetExtraHeaders(ctx context.Context, headers http.Header) error {
	s.Headers = headers.Clone()
	return nil
}

// Close 实现browser.Session接口
func (s *Session) Close() error {
	s.Closed = true
	return nil
}

// Wrap 将节点包装为绑定到本会话的元素
func (s *Session) Wrap(n *Node) browser.Element {
	return &element{node: n, session: s}
}

func (s *Session) wrap(nodes []*Node) []browser.Element {
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{node: n, session: s})
	}
	return out
}

type element struct {
	node    *Node
	session *Session
}

func (e *element) TagName(ctx context.Context) (string, error) {
	return strings.ToLower(e.node.Tag), nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if e.node.Hidden {
		return "", nil
	}
	return e.node.Text, nil
}

func (e *element) Property(ctx context.Context, name string) (string, error) {
	return e.node.Props[name], nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.node.Attrs[name]
	return v, ok, nil
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	return !e.node.Hidden, nil
}

func (e *element) Find(ctx context.Context, selector string) (browser.Element, bool, error) {
	nodes := e.node.Children[selector]
	if len(nodes) == 0 {
		return nil, false, nil
	}
	return &element{node: nodes[0], session: e.session}, true, nil
}

func (e *element) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	return e.session.wrap(e.node.Children[selector]), nil
}

func (e *element) Box(ctx context.Context) (browser.Rect, error) {
	return e.node.Rect, nil
}

func (e *element) Click(ctx context.Context) error {
	e.session.Clicks++
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	e.session.Clears++
	e.node.Props["value"] = ""
	return nil
}

func (e *element) Type(ctx context.Context, text string) error {
	e.session.Typed = append(e.session.Typed, text)
	e.node.Props["value"] += text
	return nil
}

func (e *element) Submit(ctx context.Context) error {
	e.session.Submits++
	return nil
}

var _ browser.Session = (*Session)(nil)
