// Package strategy 实现观看会话的选片策略
package strategy

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/RecoveryAshes/ytwatcher/internal/models"
	"github.com/RecoveryAshes/ytwatcher/internal/utils"
	"github.com/RecoveryAshes/ytwatcher/internal/youtube"
)

// Source 视频来源
type Source string

const (
	SourceChannel Source = "channel" // 频道视频列表
	SourceSearch  Source = "search"  // 随机搜索词的搜索结果
)

// DefaultRetryDelay 可恢复错误后的默认等待时间
const DefaultRetryDelay = 5 * time.Second

var sources = []Source{SourceChannel, SourceSearch}

var (
	// ErrNoVideos 选中的来源没有可观看的视频
	ErrNoVideos = errors.New("没有可观看的视频")

	// ErrBlocked 连续超时次数达到阈值,疑似被站点识别为自动化流量
	ErrBlocked = errors.New("疑似被拦截")
)

// Driver 策略依赖的站点操作,由 youtube.Client 实现
type Driver interface {
	Search(ctx context.Context, term string) ([]models.VideoRecord, error)
	ChannelVideos(ctx context.Context, channelURL string) ([]models.VideoRecord, error)
	Open(ctx context.Context, video models.VideoRecord) error
	WatchCurrent(ctx context.Context, maxDuration time.Duration) (youtube.WatchResult, error)
}

// CycleResult 一个观看周期的结果
type CycleResult struct {
	ID     string
	Kind   models.CycleKind
	Source Source
	Term   string
	Video  models.VideoRecord
	Watch  youtube.WatchResult
	Err    error
}

// Options 策略参数
type Options struct {
	// MaxVideoTime 单个视频观看上限
	MaxVideoTime time.Duration

	// BlockThreshold 连续超时达到该次数时Run返回ErrBlocked,0表示始终吸收超时
	BlockThreshold int

	// RetryDelay 可恢复错误后的等待时间
	RetryDelay time.Duration

	// AfterCycle 每个非致命周期结束后调用,返回错误时Run立即返回该错误
	AfterCycle func(ctx context.Context, res CycleResult) error

	Clock youtube.Clock
	Rand  *rand.Rand
}

// Strategy 在限定时长内反复选片并观看
type Strategy struct {
	driver         Driver
	maxVideoTime   time.Duration
	blockThreshold int
	retryDelay     time.Duration
	afterCycle     func(ctx context.Context, res CycleResult) error
	clock          youtube.Clock
	rng            *rand.Rand
	stats          models.SessionStats
}

// New 创建策略
func New(driver Driver, opts Options) *Strategy {
	s := &Strategy{
		driver:         driver,
		maxVideoTime:   opts.MaxVideoTime,
		blockThreshold: opts.BlockThreshold,
		retryDelay:     opts.RetryDelay,
		afterCycle:     opts.AfterCycle,
		clock:          opts.Clock,
		rng:            opts.Rand,
	}
	if s.maxVideoTime <= 0 {
		s.maxVideoTime = youtube.DefaultMaxVideoTime
	}
	if s.retryDelay <= 0 {
		s.retryDelay = DefaultRetryDelay
	}
	if s.clock == nil {
		s.clock = youtube.SystemClock{}
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Run 在duration内不断选择并观看视频
// 可恢复的周期错误记录后继续; 结构性错误和context取消立即返回
func (s *Strategy) Run(ctx context.Context, terms []string, channelURL string, duration time.Duration) error {
	if len(terms) == 0 {
		return fmt.Errorf("至少需要一个搜索关键词")
	}

	start := s.clock.Now()
	timeouts := 0
	for s.clock.Now().Sub(start) < duration {
		res := s.Cycle(ctx, terms, channelURL)

		switch res.Kind {
		case models.CycleFatal:
			return res.Err
		case models.CycleRecoverable:
			s.stats.Recovered++
			if errors.Is(res.Err, models.ErrTimeout) {
				s.stats.Timeouts++
				timeouts++
				utils.Logger.Warn().Str("cycle", res.ID).Err(res.Err).Msg("等待超时,可能遇到了人机验证")
				if s.blockThreshold > 0 && timeouts >= s.blockThreshold {
					return fmt.Errorf("%w: 连续%d次超时: %w", ErrBlocked, timeouts, res.Err)
				}
			} else {
				utils.Logger.Error().Str("cycle", res.ID).Err(res.Err).Msg("观看周期失败")
			}
			if err := s.clock.Sleep(ctx, s.retryDelay); err != nil {
				return err
			}
		case models.CycleOK:
			timeouts = 0
		}

		if s.afterCycle != nil {
			if err := s.afterCycle(ctx, res); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cycle 执行一个观看周期: 选择来源、选片、打开、观看
// 只查询被选中的来源
func (s *Strategy) Cycle(ctx context.Context, terms []string, channelURL string) CycleResult {
	res := CycleResult{ID: models.NewCycleID()}
	s.stats.Cycles++

	res.Source = sources[s.rng.IntN(len(sources))]
	var videos []models.VideoRecord
	var err error
	switch res.Source {
	case SourceChannel:
		videos, err = s.driver.ChannelVideos(ctx, channelURL)
	case SourceSearch:
		res.Term = terms[s.rng.IntN(len(terms))]
		videos, err = s.driver.Search(ctx, res.Term)
	}
	if err != nil {
		return s.finish(ctx, res, fmt.Errorf("获取%s视频失败: %w", res.Source, err))
	}
	if len(videos) == 0 {
		return s.finish(ctx, res, fmt.Errorf("%w: %s", ErrNoVideos, res.Source))
	}

	res.Video = videos[s.rng.IntN(len(videos))]
	utils.Logger.Info().
		Str("cycle", res.ID).
		Str("source", string(res.Source)).
		Str("title", res.Video.Title).
		Str("url", res.Video.URL).
		Str("channel", res.Video.ChannelName).
		Msgf("观看 %s", res.Video.Title)

	if err := s.driver.Open(ctx, res.Video); err != nil {
		return s.finish(ctx, res, err)
	}
	res.Watch, err = s.driver.WatchCurrent(ctx, s.maxVideoTime)
	if err != nil {
		return s.finish(ctx, res, err)
	}

	s.stats.Watched++
	switch res.Watch.Outcome {
	case youtube.OutcomeFinished:
		s.stats.Finished++
	case youtube.OutcomeTimeCap:
		s.stats.TimeCapped++
	}
	return s.finish(ctx, res, nil)
}

func (s *Strategy) finish(ctx context.Context, res CycleResult, err error) CycleResult {
	res.Err = err
	res.Kind = Classify(ctx, err)
	return res
}

// Stats 返回累计统计
func (s *Strategy) Stats() models.SessionStats {
	return s.stats
}

// Classify 判定周期错误的类别
// 调用方取消和结构性错误为致命,其余(包括超时和空列表)均可恢复
func Classify(ctx context.Context, err error) models.CycleKind {
	switch {
	case err == nil:
		return models.CycleOK
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return models.CycleFatal
	case models.IsStructural(err):
		return models.CycleFatal
	default:
		return models.CycleRecoverable
	}
}
