// Package netid 查询和轮换出口网络身份(出口IP)
package netid

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/RecoveryAshes/ytwatcher/internal/browser"
	"github.com/RecoveryAshes/ytwatcher/internal/utils"
)

const (
	// DefaultIPCheckURL 回显访问者IP的页面
	DefaultIPCheckURL = "https://www.myip.com/"

	// DefaultIPSelector 页面中IP所在的元素
	DefaultIPSelector = "#ip"

	DefaultProbeTimeout = 20 * time.Second
)

// Probe 查询当前出口IP
type Probe interface {
	CurrentIP(ctx context.Context) (string, error)
}

// BrowserProbe 通过浏览器会话打开IP回显页面
// 得到的是浏览器实际使用的出口,包括浏览器配置的代理
type BrowserProbe struct {
	Session  browser.Session
	URL      string
	Selector string
	Timeout  time.Duration
}

// CurrentIP 实现Probe接口
func (p *BrowserProbe) CurrentIP(ctx context.Context) (string, error) {
	url, selector, timeout := defaults(p.URL, p.Selector, p.Timeout)

	if err := p.Session.Navigate(ctx, url); err != nil {
		return "", err
	}
	el, err := p.Session.WaitInteractable(ctx, selector, timeout)
	if err != nil {
		return "", fmt.Errorf("读取出口IP失败: %w", err)
	}
	ip, err := el.Text(ctx)
	if err != nil {
		return "", fmt.Errorf("读取出口IP失败: %w", err)
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return "", fmt.Errorf("IP回显页面返回空内容")
	}
	return ip, nil
}

// HTTPProbe 不经过浏览器,直接通过代理请求IP回显页面
// 身份轮换后用它确认代理已恢复,无需重建浏览器会话
type HTTPProbe struct {
	URL      string
	Selector string // 为空时取整个响应体 (适用于纯文本回显接口)
	Proxy    string
	Timeout  time.Duration
	Headers  http.Header
}

// CurrentIP 实现Probe接口
func (p *HTTPProbe) CurrentIP(ctx context.Context) (string, error) {
	url, _, timeout := defaults(p.URL, p.Selector, p.Timeout)

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(timeout)
	if p.Proxy != "" {
		if err := c.SetProxy(p.Proxy); err != nil {
			return "", fmt.Errorf("设置代理失败 [%s]: %w", p.Proxy, err)
		}
	}

	var ip string
	var visitErr error

	c.OnRequest(func(r *colly.Request) {
		for name := range p.Headers {
			r.Headers.Set(name, p.Headers.Get(name))
		}
	})
	if p.Selector != "" {
		c.OnHTML(p.Selector, func(e *colly.HTMLElement) {
			if ip == "" {
				ip = strings.TrimSpace(e.Text)
			}
		})
	} else {
		c.OnResponse(func(r *colly.Response) {
			ip = strings.TrimSpace(string(r.Body))
		})
	}
	c.OnError(func(r *colly.Response, err error) {
		visitErr = err
		utils.Debugf("IP探测请求失败 [%s]: %v", r.Request.URL, err)
	})

	if err := c.Visit(url); err != nil && visitErr == nil {
		visitErr = err
	}
	c.Wait()

	if visitErr != nil {
		return "", fmt.Errorf("请求IP回显页面失败: %w", visitErr)
	}
	if ip == "" {
		return "", fmt.Errorf("IP回显页面中没有找到 %q", p.Selector)
	}
	return ip, nil
}

func defaults(url, selector string, timeout time.Duration) (string, string, time.Duration) {
	if url == "" {
		url = DefaultIPCheckURL
	}
	if selector == "" {
		selector = DefaultIPSelector
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return url, selector, timeout
}
