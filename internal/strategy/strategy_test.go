package strategy

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/RecoveryAshes/ytwatcher/internal/models"
	"github.com/RecoveryAshes/ytwatcher/internal/youtube"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	return nil
}

type fakeDriver struct {
	clock *fakeClock

	channel    []models.VideoRecord
	channelErr error
	results    []models.VideoRecord
	searchErr  error

	watchTime time.Duration
	watchErr  error
	outcome   youtube.Outcome

	channelCalls int
	searchTerms  []string
	opened       []models.VideoRecord
}

func (d *fakeDriver) Search(ctx context.Context, term string) ([]models.VideoRecord, error) {
	d.searchTerms = append(d.searchTerms, term)
	return d.results, d.searchErr
}

func (d *fakeDriver) ChannelVideos(ctx context.Context, channelURL string) ([]models.VideoRecord, error) {
	d.channelCalls++
	return d.channel, d.channelErr
}

func (d *fakeDriver) Open(ctx context.Context, video models.VideoRecord) error {
	d.opened = append(d.opened, video)
	return nil
}

func (d *fakeDriver) WatchCurrent(ctx context.Context, maxDuration time.Duration) (youtube.WatchResult, error) {
	if d.watchErr != nil {
		return youtube.WatchResult{}, d.watchErr
	}
	elapsed := min(d.watchTime, maxDuration)
	d.clock.now = d.clock.now.Add(elapsed)
	outcome := d.outcome
	if outcome == "" {
		outcome = youtube.OutcomeTimeCap
	}
	return youtube.WatchResult{Outcome: outcome, Elapsed: elapsed, Polls: 1}, nil
}

func video(title string) models.VideoRecord {
	return models.VideoRecord{Title: title, URL: "https://www.youtube.com/watch?v=" + title, ChannelName: "Pets"}
}

func newTestStrategy(d *fakeDriver, opts Options) *Strategy {
	opts.Clock = d.clock
	opts.Rand = rand.New(rand.NewPCG(1, 2))
	return New(d, opts)
}

func newDriver() *fakeDriver {
	return &fakeDriver{
		clock:     &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		channel:   []models.VideoRecord{video("cats"), video("dogs")},
		results:   []models.VideoRecord{video("birds")},
		watchTime: 7 * time.Minute,
	}
}

func TestRun_StopsAfterDuration(t *testing.T) {
	d := newDriver()
	s := newTestStrategy(d, Options{})

	if err := s.Run(context.Background(), []string{"cats", "dogs"}, "https://www.youtube.com/@pets", 60*time.Minute); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	stats := s.Stats()
	if stats.Cycles != 9 {
		t.Errorf("Cycles = %d, want 9", stats.Cycles)
	}
	if got := d.channelCalls + len(d.searchTerms); got != stats.Cycles {
		t.Errorf("每个周期应只查询一个来源: 查询 %d 次, 周期 %d", got, stats.Cycles)
	}
	if len(d.opened) != 9 || stats.Watched != 9 || stats.TimeCapped != 9 {
		t.Errorf("opened = %d, stats = %+v", len(d.opened), stats)
	}
}

func TestRun_UsesBothSources(t *testing.T) {
	d := newDriver()
	d.watchTime = time.Minute
	terms := []string{"cats", "dogs", "birds"}
	s := newTestStrategy(d, Options{})

	if err := s.Run(context.Background(), terms, "https://www.youtube.com/@pets", 60*time.Minute); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if d.channelCalls == 0 || len(d.searchTerms) == 0 {
		t.Errorf("两个来源都应被选中: channel=%d search=%d", d.channelCalls, len(d.searchTerms))
	}
	for _, term := range d.searchTerms {
		found := false
		for _, want := range terms {
			found = found || term == want
		}
		if !found {
			t.Errorf("搜索词 %q 不在列表中", term)
		}
	}
}

func TestRun_AbsorbsTimeouts(t *testing.T) {
	d := newDriver()
	timeout := &models.TimeoutError{Op: "wait-interactable", Selector: "ytd-video-renderer", Timeout: 20 * time.Second}
	d.channelErr = timeout
	d.searchErr = timeout
	s := newTestStrategy(d, Options{})

	if err := s.Run(context.Background(), []string{"cats"}, "https://www.youtube.com/@pets", time.Minute); err != nil {
		t.Fatalf("超时应被吸收, Run() error = %v", err)
	}

	stats := s.Stats()
	if stats.Cycles != 12 || stats.Timeouts != 12 || stats.Recovered != 12 {
		t.Errorf("stats = %+v, want 12 cycles/timeouts", stats)
	}
	if len(d.opened) != 0 {
		t.Error("没有视频时不应打开页面")
	}
}

func TestRun_BlockThreshold(t *testing.T) {
	d := newDriver()
	d.watchErr = fmt.Errorf("等待播放器失败: %w", &models.TimeoutError{Op: "wait-interactable", Selector: "div#player"})
	s := newTestStrategy(d, Options{BlockThreshold: 2})

	err := s.Run(context.Background(), []string{"cats"}, "https://www.youtube.com/@pets", time.Hour)
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("应返回 ErrBlocked, 实际 %v", err)
	}
	if !errors.Is(err, models.ErrTimeout) {
		t.Error("ErrBlocked 应保留超时原因")
	}
	if s.Stats().Cycles != 2 {
		t.Errorf("Cycles = %d, want 2", s.Stats().Cycles)
	}
}

func TestRun_StructuralErrorsAreFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"不支持的条目", &models.UnsupportedVariantError{Tag: "ytd-radio-renderer"}},
		{"前置条件失败", &models.PreconditionError{Control: "input#search", Attribute: "placeholder", Want: "Search", Got: "Suchen"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDriver()
			d.channelErr = tt.err
			d.searchErr = tt.err
			s := newTestStrategy(d, Options{})

			err := s.Run(context.Background(), []string{"cats"}, "https://www.youtube.com/@pets", time.Hour)
			if !models.IsStructural(err) {
				t.Fatalf("应返回结构性错误, 实际 %v", err)
			}
			if s.Stats().Cycles != 1 {
				t.Errorf("结构性错误后应立即停止, Cycles = %d", s.Stats().Cycles)
			}
		})
	}
}

func TestRun_EmptyListingIsRecoverable(t *testing.T) {
	d := newDriver()
	d.channel = nil
	d.results = nil
	s := newTestStrategy(d, Options{RetryDelay: 10 * time.Second})

	if err := s.Run(context.Background(), []string{"cats"}, "https://www.youtube.com/@pets", time.Minute); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if s.Stats().Cycles != 6 {
		t.Errorf("Cycles = %d, want 6", s.Stats().Cycles)
	}
}

func TestRun_Cancelled(t *testing.T) {
	d := newDriver()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.channelErr = ctx.Err()
	d.searchErr = ctx.Err()
	s := newTestStrategy(d, Options{})

	err := s.Run(ctx, []string{"cats"}, "https://www.youtube.com/@pets", time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("应返回 context.Canceled, 实际 %v", err)
	}
}

func TestRun_AfterCycle(t *testing.T) {
	errRecycle := errors.New("recycle")
	d := newDriver()
	calls := 0
	s := newTestStrategy(d, Options{
		AfterCycle: func(ctx context.Context, res CycleResult) error {
			calls++
			if res.Kind != models.CycleOK {
				t.Errorf("Kind = %s, want ok", res.Kind)
			}
			if calls == 3 {
				return errRecycle
			}
			return nil
		},
	})

	err := s.Run(context.Background(), []string{"cats"}, "https://www.youtube.com/@pets", time.Hour)
	if !errors.Is(err, errRecycle) {
		t.Fatalf("Run() error = %v, want errRecycle", err)
	}
	if calls != 3 || s.Stats().Cycles != 3 {
		t.Errorf("calls = %d, cycles = %d, want 3", calls, s.Stats().Cycles)
	}
}

func TestRun_NoTerms(t *testing.T) {
	s := newTestStrategy(newDriver(), Options{})
	if err := s.Run(context.Background(), nil, "https://www.youtube.com/@pets", time.Hour); err == nil {
		t.Error("没有搜索词时应报错")
	}
}

func TestCycle_Finished(t *testing.T) {
	d := newDriver()
	d.outcome = youtube.OutcomeFinished
	s := newTestStrategy(d, Options{})

	res := s.Cycle(context.Background(), []string{"cats"}, "https://www.youtube.com/@pets")
	if res.Kind != models.CycleOK || res.Err != nil {
		t.Fatalf("Kind = %s, Err = %v", res.Kind, res.Err)
	}
	if res.ID == "" {
		t.Error("周期应有ID")
	}
	if res.Source == SourceSearch && res.Term != "cats" {
		t.Errorf("Term = %q", res.Term)
	}
	if s.Stats().Finished != 1 {
		t.Errorf("Finished = %d, want 1", s.Stats().Finished)
	}
}

func TestClassify(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want models.CycleKind
	}{
		{"成功", context.Background(), nil, models.CycleOK},
		{"超时", context.Background(), &models.TimeoutError{Op: "wait"}, models.CycleRecoverable},
		{"空列表", context.Background(), ErrNoVideos, models.CycleRecoverable},
		{"导航失败", context.Background(), errors.New("net::ERR_CONNECTION_RESET"), models.CycleRecoverable},
		{"不支持的条目", context.Background(), &models.UnsupportedVariantError{Tag: "x"}, models.CycleFatal},
		{"调用方已取消", cancelled, &models.TimeoutError{Op: "wait"}, models.CycleFatal},
		{"取消错误", context.Background(), fmt.Errorf("wrap: %w", context.Canceled), models.CycleFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.ctx, tt.err); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}
