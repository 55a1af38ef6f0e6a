package youtube

import (
	"context"
	"time"
)

// Clock 时间源
// 观看循环和会话策略通过它读取时间和休眠,测试中可替换为虚拟时钟
type Clock interface {
	Now() time.Time

	// Sleep 休眠d,context取消时提前返回其错误
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock 真实时钟
type SystemClock struct{}

// Now 实现Clock接口
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep 实现Clock接口
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
