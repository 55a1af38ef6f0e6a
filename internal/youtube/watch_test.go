package youtube

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RecoveryAshes/ytwatcher/internal/browser"
	"github.com/RecoveryAshes/ytwatcher/internal/browser/browsertest"
	"github.com/RecoveryAshes/ytwatcher/internal/models"
)

func watchPage() *browsertest.Session {
	s := browsertest.New()
	s.Put(SelPlayer, browsertest.El("div").WithRect(browser.Rect{X: 20, Y: 40, Width: 640, Height: 360}))
	s.Put(SelTimeCurrent, browsertest.El("span").WithProp("textContent", "0:42"))
	s.Put(SelTimeDuration, browsertest.El("span").WithProp("textContent", "4:05"))
	return s
}

type recordingProgress struct {
	updates  []time.Duration
	total    time.Duration
	finished bool
}

func (p *recordingProgress) Update(current, total time.Duration) {
	p.updates = append(p.updates, current)
	p.total = total
}

func (p *recordingProgress) Finish() {
	p.finished = true
}

func TestWatchCurrent_TimeCap(t *testing.T) {
	s := watchPage()
	clock := newFakeClock()
	progress := &recordingProgress{}
	c := NewClient(s, Options{Clock: clock, PollInterval: 5 * time.Second, Progress: progress})

	result, err := c.WatchCurrent(context.Background(), 10*time.Second)
	if err != nil {
		t.Fatalf("WatchCurrent() error = %v", err)
	}

	if result.Outcome != OutcomeTimeCap {
		t.Errorf("Outcome = %s, want %s", result.Outcome, OutcomeTimeCap)
	}
	if result.Polls != 2 {
		t.Errorf("Polls = %d, want 2", result.Polls)
	}
	if result.Elapsed < 10*time.Second {
		t.Errorf("Elapsed = %s, 应不少于上限", result.Elapsed)
	}
	if result.Current != "0:42" || result.Total != "4:05" {
		t.Errorf("进度 = %s / %s", result.Current, result.Total)
	}

	anchor := browser.Point{X: 120, Y: 140}
	wantMoves := []browser.Point{anchor, anchor.Add(10, 0), anchor, anchor.Add(10, 0), anchor}
	if len(s.Moves) != len(wantMoves) {
		t.Fatalf("Moves = %v, want %v", s.Moves, wantMoves)
	}
	for i := range wantMoves {
		if s.Moves[i] != wantMoves[i] {
			t.Errorf("Moves[%d] = %v, want %v", i, s.Moves[i], wantMoves[i])
		}
	}

	if len(progress.updates) != 2 || progress.updates[0] != 42*time.Second || progress.total != 245*time.Second {
		t.Errorf("进度更新 = %v / %s", progress.updates, progress.total)
	}
	if !progress.finished {
		t.Error("结束时应调用 Finish")
	}
}

func TestWatchCurrent_UpNext(t *testing.T) {
	tests := []struct {
		name      string
		appearsAt time.Duration
		wantPolls int
	}{
		{"一开始就存在", 0, 1},
		{"懒创建", 12 * time.Second, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := watchPage()
			clock := newFakeClock()
			if tt.appearsAt == 0 {
				s.Put(SelUpNext, browsertest.El("span"))
			}
			clock.onSleep = func(elapsed time.Duration) {
				if tt.appearsAt > 0 && elapsed >= tt.appearsAt {
					s.Put(SelUpNext, browsertest.El("span"))
				}
			}

			result, err := NewClient(s, Options{Clock: clock}).WatchCurrent(context.Background(), DefaultMaxVideoTime)
			if err != nil {
				t.Fatalf("WatchCurrent() error = %v", err)
			}
			if result.Outcome != OutcomeFinished {
				t.Errorf("Outcome = %s, want %s", result.Outcome, OutcomeFinished)
			}
			if result.Polls != tt.wantPolls {
				t.Errorf("Polls = %d, want %d", result.Polls, tt.wantPolls)
			}
		})
	}
}

func TestWatchCurrent_HiddenUpNextKeepsWatching(t *testing.T) {
	s := watchPage()
	upNext := browsertest.El("span").Hide()
	s.Put(SelUpNext, upNext)
	clock := newFakeClock()
	clock.onSleep = func(elapsed time.Duration) {
		if elapsed >= 18*time.Second {
			upNext.Hidden = false
		}
	}

	result, err := NewClient(s, Options{Clock: clock}).WatchCurrent(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("WatchCurrent() error = %v", err)
	}
	if result.Outcome != OutcomeFinished || result.Polls != 3 {
		t.Errorf("Outcome = %s, Polls = %d, want finished, 3", result.Outcome, result.Polls)
	}
}

func TestWatchCurrent_NoPlayer(t *testing.T) {
	s := browsertest.New()
	_, err := NewClient(s, Options{Clock: newFakeClock()}).WatchCurrent(context.Background(), time.Minute)

	var te *models.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("应返回 TimeoutError, 实际 %v", err)
	}
	if te.Selector != SelPlayer {
		t.Errorf("Selector = %q", te.Selector)
	}
	if len(s.Moves) != 0 {
		t.Error("播放器未就绪时不应移动指针")
	}
}

func TestWatchCurrent_Cancelled(t *testing.T) {
	s := watchPage()
	ctx, cancel := context.WithCancel(context.Background())
	clock := newFakeClock()
	clock.onSleep = func(elapsed time.Duration) {
		if elapsed >= 6*time.Second {
			cancel()
		}
	}

	result, err := NewClient(s, Options{Clock: clock}).WatchCurrent(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("应返回 context.Canceled, 实际 %v", err)
	}
	if result.Polls != 2 {
		t.Errorf("Polls = %d, want 2", result.Polls)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"0:00", 0},
		{"4:05", 4*time.Minute + 5*time.Second},
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second},
		{" 12:00 ", 12 * time.Minute},
		{"", 0},
		{"LIVE", 0},
		{"1:2:3:4", 0},
	}
	for _, tt := range tests {
		if got := ParseTimestamp(tt.in); got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
