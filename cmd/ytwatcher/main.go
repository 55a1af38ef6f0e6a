package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/ytwatcher/internal/browser"
	"github.com/RecoveryAshes/ytwatcher/internal/core"
	"github.com/RecoveryAshes/ytwatcher/internal/models"
	"github.com/RecoveryAshes/ytwatcher/internal/netid"
	"github.com/RecoveryAshes/ytwatcher/internal/utils"
	"github.com/RecoveryAshes/ytwatcher/internal/youtube"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// 浏览器参数
	backend   string
	remoteURL string
	proxy     string
	headless  bool
	headers   []string

	// 观看参数
	searchTerms    []string
	termsFile      string
	channelURL     string
	duration       string
	schedule       string
	progressBar    bool
	validateConfig bool

	// suggestions参数
	suggestionCount int
)

// appConfig 由PersistentPreRunE加载并合并命令行参数
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "ytwatcher",
	Short: "模拟真人观看视频的浏览器自动化工具",
	Long: `ytwatcher - 驱动一个真实浏览器会话,搜索、浏览频道并观看视频

支持:
  • rod / chromedp 本地浏览器,或连接已有的DevTools端点
  • 随机在频道视频和关键词搜索之间选片
  • 观看时定期晃动指针并记录播放进度
  • 被拦截时重启代理轮换出口IP
  • 按cron计划运行

示例:
  ytwatcher -s "funny cats" -s "dogs" -C https://www.youtube.com/@pets
  ytwatcher --terms-file terms.txt -B remote --remote-url ws://127.0.0.1:9222
  ytwatcher -s cats --proxy socks5://127.0.0.1:9050 --schedule "0 */2 * * *"
  ytwatcher suggestions https://www.youtube.com/watch?v=dQw4w9WgXcQ -n 20

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
			NoColor:    config.Logging.NoColor,
		}
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}
		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		flags, err := collectFlags(cmd)
		if err != nil {
			return err
		}
		config.MergeCLIFlags(flags)
		appConfig = config
		return nil
	},
	RunE: runWatch,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	// 不需要加载配置和日志
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ytwatcher %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

var ipCmd = &cobra.Command{
	Use:   "ip",
	Short: "打开浏览器并显示当前出口IP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		session, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer session.Close()

		probe := &netid.BrowserProbe{
			Session:  session,
			URL:      appConfig.Identity.IPCheckURL,
			Selector: appConfig.Identity.IPSelector,
			Timeout:  appConfig.Watch.WaitTimeout,
		}
		ip, err := probe.CurrentIP(ctx)
		if err != nil {
			return err
		}
		fmt.Println(ip)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "执行一次搜索并列出识别到的视频",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ValidateSearchTerm(args[0]); err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		session, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer session.Close()

		client := youtube.NewClient(session, youtube.Options{WaitTimeout: appConfig.Watch.WaitTimeout})
		if err := openHome(ctx, session, client); err != nil {
			return err
		}

		videos, err := client.Search(ctx, args[0])
		if err != nil {
			return err
		}
		printVideos(videos)
		return nil
	},
}

var suggestionsCmd = &cobra.Command{
	Use:   "suggestions <video-url>",
	Short: "打开观看页并列出侧边栏推荐的视频",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		videoURL, err := ValidateWatchURL(args[0])
		if err != nil {
			return err
		}
		if err := ValidateCount(suggestionCount); err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		session, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer session.Close()

		client := youtube.NewClient(session, youtube.Options{WaitTimeout: appConfig.Watch.WaitTimeout})
		if err := openHome(ctx, session, client); err != nil {
			return err
		}
		if err := client.Open(ctx, models.VideoRecord{URL: videoURL}); err != nil {
			return err
		}

		videos, err := client.Suggestions(ctx, suggestionCount)
		if err != nil {
			return err
		}
		utils.Infof("共 %d 个推荐视频", len(videos))
		printVideos(videos)
		return nil
	},
}

// openHome 打开首页,启用时先预置同意cookie
func openHome(ctx context.Context, session browser.Session, client *youtube.Client) error {
	if appConfig.Watch.ConsentCookie {
		return client.ClosePrivacyPopup(ctx)
	}
	return session.Navigate(ctx, youtube.HomeURL)
}

func printVideos(videos []models.VideoRecord) {
	for i, v := range videos {
		fmt.Printf("%2d. %s\n    %s\n    %s", i+1, v.Title, v.URL, v.ChannelName)
		if v.HasChannelURL() {
			fmt.Printf(" (%s)", v.ChannelURL)
		}
		fmt.Println()
	}
}

// runWatch 根命令: 反复观看直到中断
func runWatch(cmd *cobra.Command, args []string) error {
	headerManager, err := core.NewHeaderManager(appConfig.Browser.Headers, headers)
	if err != nil {
		return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}

	if validateConfig {
		utils.Info("验证配置...")
		if err := appConfig.Validate(); err != nil {
			return fmt.Errorf("配置验证失败: %w", err)
		}
		if err := headerManager.Validate(); err != nil {
			return fmt.Errorf("配置验证失败: %w", err)
		}
		safeHeaders := headerManager.GetSafeHeaders()
		utils.Info("配置验证通过")
		utils.Infof("当前有效的附加请求头 (%d个):", len(safeHeaders))
		for name, value := range safeHeaders {
			utils.Infof("  %s: %s", name, value)
		}
		return nil
	}

	if len(appConfig.Watch.SearchTerms) == 0 {
		return cmd.Help()
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	watcher, err := core.NewWatcher(appConfig, core.WatcherOptions{Headers: headerManager})
	if err != nil {
		return err
	}

	runErr := watcher.Run(ctx)
	printStats(watcher)
	return runErr
}

// collectFlags 收集用户显式指定的命令行参数
func collectFlags(cmd *cobra.Command) (core.CLIFlags, error) {
	var flags core.CLIFlags

	terms := searchTerms
	if termsFile != "" {
		fileTerms, err := utils.ReadTermsFromFile(termsFile)
		if err != nil {
			return flags, fmt.Errorf("读取关键词文件失败: %w", err)
		}
		terms = append(terms, fileTerms...)
	}
	for _, term := range terms {
		if err := ValidateSearchTerm(term); err != nil {
			return flags, err
		}
	}
	flags.SearchTerms = terms

	if channelURL != "" {
		normalized, err := utils.NormalizeChannelURL(channelURL)
		if err != nil {
			return flags, fmt.Errorf("无效的频道地址: %w", err)
		}
		flags.ChannelURL = normalized
	}
	if backend != "" {
		if err := ValidateBackend(backend); err != nil {
			return flags, err
		}
		flags.Backend = backend
	}
	flags.RemoteURL = remoteURL
	flags.Proxy = proxy
	if f := cmd.Flags().Lookup("headless"); f != nil && f.Changed {
		flags.Headless = &headless
	}
	if duration != "" {
		d, err := ValidateDuration(duration)
		if err != nil {
			return flags, err
		}
		flags.Duration = d
	}
	flags.Schedule = schedule
	flags.ProgressBar = progressBar
	return flags, nil
}

func openSession(ctx context.Context) (browser.Session, error) {
	session, err := browser.Open(ctx, appConfig.Browser)
	if err != nil {
		return nil, fmt.Errorf("打开浏览器失败: %w", err)
	}
	hm, err := core.NewHeaderManager(appConfig.Browser.Headers, headers)
	if err == nil {
		err = hm.Apply(ctx, session)
	}
	if err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}

// signalContext Ctrl+C或SIGTERM时取消,浏览器由defer关闭
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printStats(w *core.Watcher) {
	stats := w.Stats()
	fmt.Println("\n==================================================")
	fmt.Println("📊 观看统计")
	fmt.Println("==================================================")
	fmt.Printf("✅ 观看周期: %d\n", stats.Cycles)
	fmt.Printf("✅ 观看视频: %d (播放结束 %d, 达到上限 %d)\n", stats.Watched, stats.Finished, stats.TimeCapped)
	fmt.Printf("⚠️  已吸收错误: %d (其中超时 %d)\n", stats.Recovered, stats.Timeouts)
	fmt.Printf("🔄 身份轮换: %d\n", stats.Rotations)
	fmt.Printf("♻️  会话重建: %d\n", stats.Recycles)
	fmt.Printf("⏱️  总耗时: %.2f秒\n", stats.Duration)
	fmt.Println("==================================================")
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// 浏览器参数
	rootCmd.PersistentFlags().StringVarP(&backend, "browser", "B", "", "浏览器后端 (rod|chromedp|remote)")
	rootCmd.PersistentFlags().StringVar(&remoteURL, "remote-url", "", "remote后端的DevTools地址")
	rootCmd.PersistentFlags().StringVar(&proxy, "proxy", "", "出口代理,如 socks5://127.0.0.1:9050")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "附加HTTP头部,格式: 'Name: Value',可多次指定")

	// 观看参数
	rootCmd.Flags().StringArrayVarP(&searchTerms, "search-term", "s", nil, "搜索关键词,可多次指定")
	rootCmd.Flags().StringVar(&termsFile, "terms-file", "", "每行一个关键词的文件")
	rootCmd.Flags().StringVarP(&channelURL, "channel-url", "C", "", "频道地址")
	rootCmd.Flags().StringVar(&duration, "duration", "", "单次会话时长,如 60m")
	rootCmd.Flags().StringVar(&schedule, "schedule", "", "cron表达式,按计划运行会话")
	rootCmd.Flags().BoolVar(&progressBar, "progress", false, "显示播放进度条")
	rootCmd.Flags().BoolVar(&validateConfig, "validate-config", false, "验证配置并显示生效的请求头")

	suggestionsCmd.Flags().IntVarP(&suggestionCount, "count", "n", 10, "最多列出的推荐数量")

	rootCmd.AddCommand(versionCmd, ipCmd, searchCmd, suggestionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
