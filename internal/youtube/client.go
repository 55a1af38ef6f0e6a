// Package youtube 在浏览器会话之上实现搜索、频道浏览、侧边栏推荐和观看
package youtube

import (
	"time"

	"github.com/RecoveryAshes/ytwatcher/internal/browser"
)

const (
	DefaultWaitTimeout  = 20 * time.Second
	DefaultPollInterval = 5 * time.Second
	DefaultMaxVideoTime = 420 * time.Second

	// DefaultWigglePause 指针偏移后回位前的停顿
	DefaultWigglePause = time.Second

	// DefaultScrollPause 滚动后给懒加载留出的时间
	DefaultScrollPause = time.Second
)

// ProgressReporter 接收播放进度
type ProgressReporter interface {
	Update(current, total time.Duration)
	Finish()
}

// Options 客户端参数,零值字段使用默认值
type Options struct {
	WaitTimeout  time.Duration
	PollInterval time.Duration
	WigglePause  time.Duration
	ScrollPause  time.Duration
	Clock        Clock
	Progress     ProgressReporter
}

// Client 在单个浏览器会话上执行站点操作
// 与会话一样不支持并发使用
type Client struct {
	session browser.Session

	waitTimeout  time.Duration
	pollInterval time.Duration
	wigglePause  time.Duration
	scrollPause  time.Duration
	clock        Clock
	progress     ProgressReporter
}

// NewClient 创建客户端
func NewClient(session browser.Session, opts Options) *Client {
	c := &Client{
		session:      session,
		waitTimeout:  opts.WaitTimeout,
		pollInterval: opts.PollInterval,
		wigglePause:  opts.WigglePause,
		scrollPause:  opts.ScrollPause,
		clock:        opts.Clock,
		progress:     opts.Progress,
	}
	if c.waitTimeout <= 0 {
		c.waitTimeout = DefaultWaitTimeout
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.wigglePause <= 0 {
		c.wigglePause = DefaultWigglePause
	}
	if c.scrollPause <= 0 {
		c.scrollPause = DefaultScrollPause
	}
	if c.clock == nil {
		c.clock = SystemClock{}
	}
	return c
}
