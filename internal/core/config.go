package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/ytwatcher/internal/models"
	"github.com/spf13/viper"
)

// DefaultChannelURL 未配置频道时使用的频道
const DefaultChannelURL = "https://www.youtube.com/channel/UCqq27nknJ3fe5IvrAbfuEwQ"

// Config 应用程序配置
type Config struct {
	Browser  models.BrowserConfig  `mapstructure:"browser"`
	Watch    models.WatchConfig    `mapstructure:"watch"`
	Identity models.IdentityConfig `mapstructure:"identity"`
	Resource models.ResourceConfig `mapstructure:"resource"`
	Schedule ScheduleConfig        `mapstructure:"schedule"`
	Logging  LoggingConfig         `mapstructure:"logging"`
}

// ScheduleConfig 定时运行配置
type ScheduleConfig struct {
	// Cron 标准5段cron表达式,为空时会话连续运行
	Cron string `mapstructure:"cron"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	NoColor  bool           `mapstructure:"no_color"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".ytwatcher"))
		}
	}

	setDefaults(v)

	// 环境变量覆盖,如 YTWATCHER_BROWSER_PROXY
	v.SetEnvPrefix("ytwatcher")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &models.ConfigError{FilePath: configFileUsed(v, configPath), Cause: err}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{FilePath: configFileUsed(v, configPath), Cause: err}
	}

	return &config, nil
}

func configFileUsed(v *viper.Viper, configPath string) string {
	if used := v.ConfigFileUsed(); used != "" {
		return used
	}
	return configPath
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 浏览器
	v.SetDefault("browser.backend", string(models.BackendRod))
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.stealth", true)
	v.SetDefault("browser.language", "en-US")
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 800)

	// 观看
	v.SetDefault("watch.channel_url", DefaultChannelURL)
	v.SetDefault("watch.session_duration", 60*time.Minute)
	v.SetDefault("watch.max_video_time", 420*time.Second)
	v.SetDefault("watch.poll_interval", 5*time.Second)
	v.SetDefault("watch.wait_timeout", 20*time.Second)
	v.SetDefault("watch.progress_bar", false)
	v.SetDefault("watch.consent_cookie", true)

	// 身份轮换
	v.SetDefault("identity.enabled", false)
	v.SetDefault("identity.settle_time", 30*time.Second)
	v.SetDefault("identity.ip_check_url", "https://www.myip.com/")
	v.SetDefault("identity.ip_selector", "#ip")
	v.SetDefault("identity.ip_check_proxy", "")

	// 资源保护
	v.SetDefault("resource.min_available_memory", 500)
	v.SetDefault("resource.cpu_load_threshold", 90)

	v.SetDefault("schedule.cron", "")

	// 日志
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.no_color", false)
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)
}

// CLIFlags 命令行参数,零值表示未指定
type CLIFlags struct {
	SearchTerms []string
	ChannelURL  string
	Backend     string
	RemoteURL   string
	Proxy       string
	Headless    *bool
	Duration    time.Duration
	Schedule    string
	ProgressBar bool
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件
func (c *Config) MergeCLIFlags(flags CLIFlags) {
	if len(flags.SearchTerms) > 0 {
		c.Watch.SearchTerms = flags.SearchTerms
	}
	if flags.ChannelURL != "" {
		c.Watch.ChannelURL = flags.ChannelURL
	}
	if flags.Backend != "" {
		c.Browser.Backend = models.BrowserBackend(flags.Backend)
	}
	if flags.RemoteURL != "" {
		c.Browser.RemoteURL = flags.RemoteURL
	}
	if flags.Proxy != "" {
		c.Browser.Proxy = flags.Proxy
	}
	if flags.Headless != nil {
		c.Browser.Headless = *flags.Headless
	}
	if flags.Duration > 0 {
		c.Watch.SessionDuration = flags.Duration
	}
	if flags.Schedule != "" {
		c.Schedule.Cron = flags.Schedule
	}
	if flags.ProgressBar {
		c.Watch.ProgressBar = true
	}
}

// Validate 验证合并后的配置
func (c *Config) Validate() error {
	if err := c.Browser.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	if c.Identity.Enabled && len(c.Identity.RestartCommand) == 0 {
		return fmt.Errorf("启用身份轮换时必须配置identity.restart_command")
	}
	if c.Schedule.Cron != "" {
		if _, err := ParseSchedule(c.Schedule.Cron); err != nil {
			return err
		}
	}
	return nil
}
