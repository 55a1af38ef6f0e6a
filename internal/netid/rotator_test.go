package netid

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedProbe struct {
	results []error
	calls   int
}

func (p *scriptedProbe) CurrentIP(ctx context.Context) (string, error) {
	i := p.calls
	p.calls++
	if i < len(p.results) && p.results[i] != nil {
		return "", p.results[i]
	}
	return "192.0.2.10", nil
}

type virtualTime struct {
	now   time.Time
	slept time.Duration
}

func (v *virtualTime) sleep(ctx context.Context, d time.Duration) error {
	v.now = v.now.Add(d)
	v.slept += d
	return ctx.Err()
}

func (v *virtualTime) Now() time.Time { return v.now }

func TestCommandRotator_Rotate(t *testing.T) {
	down := errors.New("connection refused")

	tests := []struct {
		name      string
		probe     *scriptedProbe
		wantIP    string
		wantCalls int
	}{
		{"立即就绪", &scriptedProbe{}, "192.0.2.10", 1},
		{"重试后就绪", &scriptedProbe{results: []error{down, down}}, "192.0.2.10", 3},
		{"超时后继续", &scriptedProbe{results: []error{down, down, down, down, down, down, down, down, down, down}}, "", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vt := &virtualTime{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
			var ran []string
			r := &CommandRotator{
				Command:    []string{"docker", "restart", "tor-proxy"},
				SettleTime: 6 * time.Second,
				Probe:      tt.probe,
				Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
					ran = append([]string{name}, args...)
					return nil, nil
				},
				Sleep: vt.sleep,
				Now:   vt.Now,
			}

			ip, err := r.Rotate(context.Background())
			if err != nil {
				t.Fatalf("Rotate() error = %v", err)
			}
			if ip != tt.wantIP {
				t.Errorf("ip = %q, want %q", ip, tt.wantIP)
			}
			if tt.probe.calls != tt.wantCalls {
				t.Errorf("探测次数 = %d, want %d", tt.probe.calls, tt.wantCalls)
			}
			if len(ran) != 3 || ran[0] != "docker" || ran[2] != "tor-proxy" {
				t.Errorf("执行的命令 = %v", ran)
			}
		})
	}
}

func TestCommandRotator_NoProbe(t *testing.T) {
	vt := &virtualTime{}
	r := &CommandRotator{
		Command:    []string{"true"},
		SettleTime: 15 * time.Second,
		Run:        func(ctx context.Context, name string, args ...string) ([]byte, error) { return nil, nil },
		Sleep:      vt.sleep,
	}

	ip, err := r.Rotate(context.Background())
	if err != nil || ip != "" {
		t.Fatalf("Rotate() = %q, %v", ip, err)
	}
	if vt.slept != 15*time.Second {
		t.Errorf("没有探测器时应固定等待, slept = %s", vt.slept)
	}
}

func TestCommandRotator_Errors(t *testing.T) {
	if _, err := (&CommandRotator{}).Rotate(context.Background()); err == nil {
		t.Error("没有命令时应报错")
	}

	r := &CommandRotator{
		Command: []string{"docker", "restart", "missing"},
		Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("No such container: missing"), errors.New("exit status 1")
		},
	}
	if _, err := r.Rotate(context.Background()); err == nil {
		t.Error("命令失败时应报错")
	}
}
