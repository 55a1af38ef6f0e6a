package models

import (
	"fmt"
	"time"
)

// BrowserBackend 浏览器会话后端
type BrowserBackend string

const (
	BackendRod      BrowserBackend = "rod"      // 本地Chromium (go-rod launcher)
	BackendRemote   BrowserBackend = "remote"   // 连接已有的DevTools端点(如浏览器容器)
	BackendChromedp BrowserBackend = "chromedp" // 本地Chromium (chromedp)
)

// ValidBackends 所有支持的后端
var ValidBackends = []BrowserBackend{BackendRod, BackendRemote, BackendChromedp}

// BrowserConfig 浏览器会话配置
type BrowserConfig struct {
	Backend      BrowserBackend    `mapstructure:"backend"`       // 后端 (默认:rod)
	Headless     bool              `mapstructure:"headless"`      // 无头模式 (默认:true)
	RemoteURL    string            `mapstructure:"remote_url"`    // remote后端的DevTools地址
	Proxy        string            `mapstructure:"proxy"`         // 出口代理 (如 socks5://127.0.0.1:9050)
	Bin          string            `mapstructure:"bin"`           // 浏览器可执行文件路径(为空自动查找)
	UserDataDir  string            `mapstructure:"user_data_dir"` // 用户数据目录
	Stealth      bool              `mapstructure:"stealth"`       // 注入反检测脚本 (默认:true)
	Language     string            `mapstructure:"language"`      // 界面语言 (默认:en-US)
	WindowWidth  int               `mapstructure:"window_width"`  // 窗口宽度
	WindowHeight int               `mapstructure:"window_height"` // 窗口高度
	Headers      map[string]string `mapstructure:"headers"`       // 附加HTTP请求头
}

// WatchConfig 观看会话配置
type WatchConfig struct {
	SearchTerms     []string      `mapstructure:"search_terms"`     // 搜索关键词
	ChannelURL      string        `mapstructure:"channel_url"`      // 频道地址
	SessionDuration time.Duration `mapstructure:"session_duration"` // 单次会话时长 (默认:60m)
	MaxVideoTime    time.Duration `mapstructure:"max_video_time"`   // 单个视频最长观看时间 (默认:420s)
	PollInterval    time.Duration `mapstructure:"poll_interval"`    // 进度轮询间隔 (默认:5s)
	WaitTimeout     time.Duration `mapstructure:"wait_timeout"`     // 元素就绪等待上限 (默认:20s)
	ProgressBar     bool          `mapstructure:"progress_bar"`     // 终端进度条
	ConsentCookie   bool          `mapstructure:"consent_cookie"`   // 预置同意cookie并关闭登录弹窗 (默认:true)
}

// Validate 验证配置
func (c *WatchConfig) Validate() error {
	if len(c.SearchTerms) == 0 {
		return fmt.Errorf("至少需要一个搜索关键词")
	}
	for i, term := range c.SearchTerms {
		if term == "" {
			return fmt.Errorf("第%d个搜索关键词为空", i+1)
		}
	}
	if err := ValidateURL(c.ChannelURL); err != nil {
		return fmt.Errorf("频道地址无效: %w", err)
	}
	if c.SessionDuration < time.Minute || c.SessionDuration > 24*time.Hour {
		return fmt.Errorf("会话时长必须在1分钟-24小时之间")
	}
	if c.MaxVideoTime < time.Second || c.MaxVideoTime > 6*time.Hour {
		return fmt.Errorf("单个视频观看上限必须在1秒-6小时之间")
	}
	if c.PollInterval < 100*time.Millisecond || c.PollInterval > time.Minute {
		return fmt.Errorf("轮询间隔必须在100毫秒-1分钟之间")
	}
	if c.WaitTimeout < time.Second || c.WaitTimeout > 5*time.Minute {
		return fmt.Errorf("等待上限必须在1秒-5分钟之间")
	}
	return nil
}

// Validate 验证浏览器配置
func (c *BrowserConfig) Validate() error {
	valid := false
	for _, b := range ValidBackends {
		if c.Backend == b {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("无效的浏览器后端: %s (有效值: rod, remote, chromedp)", c.Backend)
	}
	if c.Backend == BackendRemote && c.RemoteURL == "" {
		return fmt.Errorf("remote后端需要配置remote_url")
	}
	if c.WindowWidth < 0 || c.WindowHeight < 0 {
		return fmt.Errorf("窗口尺寸不能为负数")
	}
	return nil
}

// IdentityConfig 网络身份轮换配置
type IdentityConfig struct {
	Enabled        bool          `mapstructure:"enabled"`         // 启用身份轮换
	RestartCommand []string      `mapstructure:"restart_command"` // 重启代理的命令 (如 docker restart tor)
	SettleTime     time.Duration `mapstructure:"settle_time"`     // 重启后等待上限 (默认:30s)
	IPCheckURL     string        `mapstructure:"ip_check_url"`    // 出口IP回显页面
	IPSelector     string        `mapstructure:"ip_selector"`     // 回显页面中IP所在元素
	IPCheckProxy   string        `mapstructure:"ip_check_proxy"`  // 宿主机查询出口IP时使用的代理,为空时沿用browser.proxy
}

// ResourceConfig 资源保护配置
type ResourceConfig struct {
	MinAvailableMemory int64 `mapstructure:"min_available_memory"` // 可用内存下限(MB),低于则重建浏览器会话
	CPULoadThreshold   int   `mapstructure:"cpu_load_threshold"`   // CPU负载告警阈值(%)
}

// CycleKind 单个观看周期的结果分类
type CycleKind string

const (
	CycleOK          CycleKind = "ok"          // 正常完成
	CycleRecoverable CycleKind = "recoverable" // 瞬时错误,记录后继续
	CycleFatal       CycleKind = "fatal"       // 结构性错误,终止运行
)

// SessionStats 会话统计
type SessionStats struct {
	Cycles     int     `json:"cycles"`      // 观看周期数
	Watched    int     `json:"watched"`     // 成功观看的视频数
	Finished   int     `json:"finished"`    // 自然播放结束的视频数
	TimeCapped int     `json:"time_capped"` // 达到观看上限的视频数
	Recovered  int     `json:"recovered"`   // 被吸收的错误数
	Timeouts   int     `json:"timeouts"`    // 其中超时(疑似被拦截)的次数
	Rotations  int     `json:"rotations"`   // 身份轮换次数
	Recycles   int     `json:"recycles"`    // 浏览器会话重建次数
	Duration   float64 `json:"duration"`    // 总耗时(秒)
}
