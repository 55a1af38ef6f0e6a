package netid

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/RecoveryAshes/ytwatcher/internal/utils"
)

const (
	DefaultSettleTime = 30 * time.Second

	// probeInterval 重启后探测代理的间隔
	probeInterval = 2 * time.Second
)

// Runner 执行外部命令,返回合并后的输出
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner 使用os/exec执行命令
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Sleeper 可取消的休眠
type Sleeper func(ctx context.Context, d time.Duration) error

// CommandRotator 通过重启代理(如 docker restart tor-proxy)轮换出口IP
type CommandRotator struct {
	Command []string

	// SettleTime 重启后等待代理恢复的上限
	SettleTime time.Duration

	// Probe 用于确认代理已恢复,为nil时固定等待SettleTime
	Probe Probe

	Run   Runner
	Sleep Sleeper
	Now   func() time.Time
}

// NewCommandRotator 创建轮换器
func NewCommandRotator(command []string, settle time.Duration, probe Probe) *CommandRotator {
	return &CommandRotator{
		Command:    command,
		SettleTime: settle,
		Probe:      probe,
	}
}

// Rotate 执行重启命令并等待新的出口就绪
// 返回探测到的新IP; 在SettleTime内探测不到时返回空字符串
func (r *CommandRotator) Rotate(ctx context.Context) (string, error) {
	if len(r.Command) == 0 {
		return "", errors.New("未配置身份轮换命令")
	}
	run, sleep, now := r.Run, r.Sleep, r.Now
	if run == nil {
		run = ExecRunner
	}
	if sleep == nil {
		sleep = sleepCtx
	}
	if now == nil {
		now = time.Now
	}
	settle := r.SettleTime
	if settle <= 0 {
		settle = DefaultSettleTime
	}

	utils.Infof("轮换网络身份: %s", strings.Join(r.Command, " "))
	out, err := run(ctx, r.Command[0], r.Command[1:]...)
	if err != nil {
		return "", fmt.Errorf("执行轮换命令失败: %w (输出: %s)", err, strings.TrimSpace(string(out)))
	}

	if r.Probe == nil {
		return "", sleep(ctx, settle)
	}

	deadline := now().Add(settle)
	for {
		ip, err := r.Probe.CurrentIP(ctx)
		if err == nil {
			return ip, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		utils.Debugf("代理尚未就绪: %v", err)

		if !now().Before(deadline) {
			utils.Warnf("等待代理恢复超时 (%s),继续运行", settle)
			return "", nil
		}
		if err := sleep(ctx, probeInterval); err != nil {
			return "", err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
