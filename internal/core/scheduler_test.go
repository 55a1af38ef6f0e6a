package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{spec: "0 */2 * * *"},
		{spec: "@hourly"},
		{spec: "@every 90m"},
		{spec: "* * *", wantErr: true},
		{spec: "", wantErr: true},
		{spec: "61 * * * *", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			if _, err := ParseSchedule(tt.spec); (err != nil) != tt.wantErr {
				t.Errorf("ParseSchedule(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestScheduler_Run(t *testing.T) {
	t.Run("任务失败时返回错误", func(t *testing.T) {
		s, err := NewScheduler("@every 1s")
		if err != nil {
			t.Fatalf("NewScheduler() error = %v", err)
		}

		errJob := errors.New("job failed")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		runs := 0
		err = s.Run(ctx, func(ctx context.Context) error {
			runs++
			return errJob
		})
		if !errors.Is(err, errJob) {
			t.Fatalf("Run() error = %v, want errJob", err)
		}
		if runs != 1 {
			t.Errorf("runs = %d, want 1", runs)
		}
	})

	t.Run("取消时正常返回", func(t *testing.T) {
		s, err := NewScheduler("@hourly")
		if err != nil {
			t.Fatalf("NewScheduler() error = %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := s.Run(ctx, func(ctx context.Context) error {
			t.Error("不应触发任务")
			return nil
		}); err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})

	t.Run("非法表达式", func(t *testing.T) {
		if _, err := NewScheduler("bad"); err == nil {
			t.Error("期望返回错误")
		}
	})
}
