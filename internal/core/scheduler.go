package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/RecoveryAshes/ytwatcher/internal/utils"
)

// ParseSchedule 解析标准5段cron表达式,也接受 @every 1h 之类的描述符
func ParseSchedule(spec string) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("无效的cron表达式 %q: %w", spec, err)
	}
	return schedule, nil
}

// Job 一次定时执行的任务
type Job func(ctx context.Context) error

// Scheduler 按cron表达式触发会话
// 上一次会话未结束时跳过本次触发
type Scheduler struct {
	spec string
	cron *cron.Cron
}

// NewScheduler 创建调度器
func NewScheduler(spec string) (*Scheduler, error) {
	if _, err := ParseSchedule(spec); err != nil {
		return nil, err
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{})))
	return &Scheduler{spec: spec, cron: c}, nil
}

// Run 阻塞运行直到ctx取消或任务返回致命错误
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		fatalErr error
	)
	_, err := s.cron.AddFunc(s.spec, func() {
		if ctx.Err() != nil {
			return
		}
		utils.Infof("定时任务触发 (%s)", s.spec)
		if err := job(ctx); err != nil && ctx.Err() == nil {
			mu.Lock()
			fatalErr = err
			mu.Unlock()
			cancel()
		}
	})
	if err != nil {
		return fmt.Errorf("注册定时任务失败: %w", err)
	}

	s.cron.Start()
	utils.Infof("已按计划 %s 运行,下次触发: %s", s.spec, s.cron.Entries()[0].Next.Format("2006-01-02 15:04:05"))
	<-ctx.Done()

	// 等待正在运行的任务退出
	<-s.cron.Stop().Done()

	mu.Lock()
	defer mu.Unlock()
	return fatalErr
}

// cronLogger 将cron的内部日志转到zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	utils.Logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	utils.Logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
