package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/RecoveryAshes/ytwatcher/internal/browser"
	"github.com/RecoveryAshes/ytwatcher/internal/models"
	"github.com/RecoveryAshes/ytwatcher/internal/monitor"
	"github.com/RecoveryAshes/ytwatcher/internal/netid"
	"github.com/RecoveryAshes/ytwatcher/internal/strategy"
	"github.com/RecoveryAshes/ytwatcher/internal/utils"
	"github.com/RecoveryAshes/ytwatcher/internal/youtube"
)

const mb = 1024 * 1024

// errRecycle 资源不足,需要重建浏览器会话
var errRecycle = errors.New("资源不足")

// Rotator 轮换出口网络身份
type Rotator interface {
	Rotate(ctx context.Context) (string, error)
}

// ResourceChecker 判断是否需要重建浏览器会话
type ResourceChecker interface {
	Check() monitor.Status
}

// WatcherOptions Watcher的可替换依赖,零值字段按配置创建
type WatcherOptions struct {
	Opener   browser.Opener
	Headers  *HeaderManager
	Rotator  Rotator
	Monitor  ResourceChecker
	Clock    youtube.Clock
	Progress youtube.ProgressReporter
	Rand     *rand.Rand
}

// Watcher 独占浏览器会话,反复执行观看会话
// 负责身份轮换、资源回收以及在所有退出路径上关闭会话
type Watcher struct {
	config   *Config
	opener   browser.Opener
	headers  *HeaderManager
	rotator  Rotator
	monitor  ResourceChecker
	clock    youtube.Clock
	progress youtube.ProgressReporter
	rng      *rand.Rand

	session browser.Session
	stats   models.SessionStats
}

// NewWatcher 创建Watcher
func NewWatcher(config *Config, opts WatcherOptions) (*Watcher, error) {
	w := &Watcher{
		config:   config,
		opener:   opts.Opener,
		headers:  opts.Headers,
		rotator:  opts.Rotator,
		monitor:  opts.Monitor,
		clock:    opts.Clock,
		progress: opts.Progress,
		rng:      opts.Rand,
	}

	if w.opener == nil {
		w.opener = browser.NewOpener(config.Browser)
	}
	if w.headers == nil {
		hm, err := NewHeaderManager(config.Browser.Headers, nil)
		if err != nil {
			return nil, err
		}
		w.headers = hm
	}
	if w.rotator == nil && config.Identity.Enabled {
		w.rotator = newRotator(config)
	}
	if w.monitor == nil && config.Resource.MinAvailableMemory > 0 {
		w.monitor = monitor.NewResourceMonitor(monitor.Config{
			MinAvailableMemory: config.Resource.MinAvailableMemory * mb,
			CPULoadThreshold:   config.Resource.CPULoadThreshold,
		}, nil)
	}
	if w.clock == nil {
		w.clock = youtube.SystemClock{}
	}
	if w.progress == nil && config.Watch.ProgressBar {
		w.progress = utils.NewWatchProgress(os.Stderr, "观看进度")
	}

	return w, nil
}

// newRotator 按配置创建命令轮换器
// 宿主机只有经过与浏览器相同的代理才能看到新出口,没有可用代理时重启后固定等待settle_time
func newRotator(config *Config) *netid.CommandRotator {
	r := netid.NewCommandRotator(config.Identity.RestartCommand, config.Identity.SettleTime, nil)

	proxy := config.Identity.IPCheckProxy
	if proxy == "" {
		proxy = config.Browser.Proxy
	}
	if proxy == "" {
		utils.Debugf("未配置查询出口IP的代理,轮换后固定等待 %s", config.Identity.SettleTime)
		return r
	}
	r.Probe = &netid.HTTPProbe{
		URL:      config.Identity.IPCheckURL,
		Selector: config.Identity.IPSelector,
		Proxy:    proxy,
	}
	return r
}

// Run 运行直到ctx取消或出现致命错误
// 配置了schedule.cron时按计划触发会话,否则会话首尾相接
// ctx取消属于正常退出,返回nil
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	start := w.clock.Now()
	defer func() {
		w.stats.Duration = w.clock.Now().Sub(start).Seconds()
	}()

	if w.config.Schedule.Cron != "" {
		scheduler, err := NewScheduler(w.config.Schedule.Cron)
		if err != nil {
			return err
		}
		return scheduler.Run(ctx, func(ctx context.Context) error {
			// 两次触发之间不保留浏览器
			defer w.Close()
			return w.RunSession(ctx)
		})
	}

	for {
		err := w.RunSession(ctx)
		if ctx.Err() != nil {
			utils.Info("已中断,正在关闭浏览器")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// RunSession 执行一次观看会话
// 被拦截时轮换身份、资源不足时重建会话,两种情况都返回nil以便开始下一次会话
func (w *Watcher) RunSession(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("观看会话异常: %v", r)
			w.Close()
		}
	}()

	if err := w.ensureSession(ctx); err != nil {
		return err
	}

	client := youtube.NewClient(w.session, youtube.Options{
		WaitTimeout:  w.config.Watch.WaitTimeout,
		PollInterval: w.config.Watch.PollInterval,
		Clock:        w.clock,
		Progress:     w.progress,
	})

	if w.config.Watch.ConsentCookie {
		if err := client.ClosePrivacyPopup(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			utils.Warnf("处理同意弹窗失败: %v", err)
		}
	} else if err := w.session.Navigate(ctx, youtube.HomeURL); err != nil {
		// 会话仍停留在IP查询页,先回到首页再开始循环
		return err
	}

	// 启用身份轮换时第一次超时即视为被拦截
	blockThreshold := 0
	if w.rotator != nil {
		blockThreshold = 1
	}
	strat := strategy.New(client, strategy.Options{
		MaxVideoTime:   w.config.Watch.MaxVideoTime,
		BlockThreshold: blockThreshold,
		Clock:          w.clock,
		Rand:           w.rng,
		AfterCycle:     w.afterCycle,
	})

	err = strat.Run(ctx, w.config.Watch.SearchTerms, w.config.Watch.ChannelURL, w.config.Watch.SessionDuration)
	w.mergeStats(strat.Stats())

	switch {
	case err == nil:
		utils.Logger.Info().
			Int("cycles", w.stats.Cycles).
			Int("watched", w.stats.Watched).
			Msg("观看会话结束")
		return nil
	case errors.Is(err, strategy.ErrBlocked):
		return w.rotate(ctx, err)
	case errors.Is(err, errRecycle):
		utils.Warnf("%v,重建浏览器会话", err)
		w.stats.Recycles++
		w.Close()
		return nil
	default:
		return err
	}
}

// ensureSession 打开浏览器会话,应用附加请求头并记录出口IP
func (w *Watcher) ensureSession(ctx context.Context) error {
	if w.session != nil {
		return nil
	}

	session, err := w.opener(ctx)
	if err != nil {
		return fmt.Errorf("打开浏览器失败: %w", err)
	}
	w.session = session
	utils.Infof("浏览器会话已打开 (%s)", w.config.Browser.Backend)

	if err := w.headers.Apply(ctx, session); err != nil {
		return err
	}

	w.logIP(ctx)
	return nil
}

// logIP 记录浏览器看到的出口IP,失败只告警
func (w *Watcher) logIP(ctx context.Context) {
	probe := &netid.BrowserProbe{
		Session:  w.session,
		URL:      w.config.Identity.IPCheckURL,
		Selector: w.config.Identity.IPSelector,
		Timeout:  w.config.Watch.WaitTimeout,
	}
	ip, err := probe.CurrentIP(ctx)
	if err != nil {
		utils.Warnf("获取当前IP失败: %v", err)
		return
	}
	utils.Logger.Info().Str("ip", ip).Msgf("当前IP: %s", ip)
}

// rotate 关闭会话并轮换身份,下一次会话会重新打开浏览器
func (w *Watcher) rotate(ctx context.Context, cause error) error {
	utils.Warnf("%v,轮换网络身份", cause)
	w.Close()

	ip, err := w.rotator.Rotate(ctx)
	if err != nil {
		return fmt.Errorf("轮换网络身份失败: %w", err)
	}
	w.stats.Rotations++
	if ip != "" {
		utils.Logger.Info().Str("ip", ip).Msg("代理出口已更新")
	}
	return nil
}

// afterCycle 在两个周期之间检查主机资源
func (w *Watcher) afterCycle(ctx context.Context, res strategy.CycleResult) error {
	if w.monitor == nil {
		return nil
	}
	status := w.monitor.Check()
	if status.Recycle {
		return fmt.Errorf("%w: %s", errRecycle, status.Reason)
	}
	return nil
}

func (w *Watcher) mergeStats(s models.SessionStats) {
	w.stats.Cycles += s.Cycles
	w.stats.Watched += s.Watched
	w.stats.Finished += s.Finished
	w.stats.TimeCapped += s.TimeCapped
	w.stats.Recovered += s.Recovered
	w.stats.Timeouts += s.Timeouts
}

// Stats 返回累计统计
func (w *Watcher) Stats() models.SessionStats {
	return w.stats
}

// Close 关闭当前浏览器会话,可重复调用
func (w *Watcher) Close() {
	if w.session == nil {
		return
	}
	if err := w.session.Close(); err != nil {
		utils.Warnf("关闭浏览器失败: %v", err)
	}
	w.session = nil
}
