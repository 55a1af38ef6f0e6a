package youtube

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/RecoveryAshes/ytwatcher/internal/browser"
	"github.com/RecoveryAshes/ytwatcher/internal/utils"
)

// Outcome 观看结束的原因
type Outcome string

const (
	OutcomeFinished Outcome = "finished" // 出现"接下来播放"提示,视频已播完
	OutcomeTimeCap  Outcome = "time-cap" // 达到单个视频观看上限
)

// WatchResult 一次观看的结果
type WatchResult struct {
	Outcome Outcome
	Elapsed time.Duration
	Polls   int

	// Current / Total 最后一次读取到的播放进度文本
	Current string
	Total   string
}

// playerOffset 指针相对播放器左上角的落点
var playerOffset = browser.Point{X: 100, Y: 100}

// wiggleOffset 每次轮询时指针的水平偏移,保持控制栏显示
const wiggleOffset = 10

// WatchCurrent 观看当前页面上的视频,直到播放结束或达到maxDuration
// 播放器未在等待上限内就绪时返回 *models.TimeoutError
func (c *Client) WatchCurrent(ctx context.Context, maxDuration time.Duration) (WatchResult, error) {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxVideoTime
	}

	player, err := c.session.WaitInteractable(ctx, SelPlayer, c.waitTimeout)
	if err != nil {
		return WatchResult{}, fmt.Errorf("等待播放器失败: %w", err)
	}
	start := c.clock.Now()
	utils.Info("开始观看")

	box, err := player.Box(ctx)
	if err != nil {
		return WatchResult{}, fmt.Errorf("读取播放器位置失败: %w", err)
	}
	anchor := box.Origin().Add(playerOffset.X, playerOffset.Y)
	if err := c.session.MovePointer(ctx, anchor); err != nil {
		return WatchResult{}, fmt.Errorf("移动指针失败: %w", err)
	}

	if c.progress != nil {
		defer c.progress.Finish()
	}

	result := WatchResult{Outcome: OutcomeTimeCap}
	var upNext browser.Element
	for {
		result.Polls++

		// 控制栏隐藏时进度不会刷新
		if err := c.wiggle(ctx, anchor); err != nil {
			return result, err
		}

		result.Current, result.Total = c.readProgress(ctx)
		utils.Logger.Info().
			Str("current", result.Current).
			Str("total", result.Total).
			Msgf("%s of %s", result.Current, result.Total)
		if c.progress != nil {
			c.progress.Update(ParseTimestamp(result.Current), ParseTimestamp(result.Total))
		}

		if err := c.clock.Sleep(ctx, c.pollInterval); err != nil {
			return result, err
		}

		if upNext == nil {
			upNext = c.lookupUpNext(ctx)
		}
		if upNext != nil {
			visible, err := upNext.Visible(ctx)
			if err != nil {
				utils.Debugf("读取接下来播放提示状态失败: %v", err)
			} else if visible {
				result.Outcome = OutcomeFinished
				break
			}
		}

		if c.clock.Now().Sub(start) >= maxDuration {
			break
		}
	}

	result.Elapsed = c.clock.Now().Sub(start)
	utils.Logger.Info().
		Str("outcome", string(result.Outcome)).
		Dur("elapsed", result.Elapsed).
		Msg("观看结束")
	return result, nil
}

// wiggle 将指针右移后停顿再移回
func (c *Client) wiggle(ctx context.Context, anchor browser.Point) error {
	if err := c.session.MovePointer(ctx, anchor.Add(wiggleOffset, 0)); err != nil {
		return fmt.Errorf("移动指针失败: %w", err)
	}
	if err := c.clock.Sleep(ctx, c.wigglePause); err != nil {
		return err
	}
	if err := c.session.MovePointer(ctx, anchor); err != nil {
		return fmt.Errorf("移动指针失败: %w", err)
	}
	return nil
}

// lookupUpNext 查找"接下来播放"提示
// 提示是懒创建的,不存在时记录警告并返回nil
func (c *Client) lookupUpNext(ctx context.Context) browser.Element {
	el, ok, err := c.session.Find(ctx, SelUpNext)
	if err != nil || !ok {
		utils.Warn("观看时未找到接下来播放提示")
		return nil
	}
	return el
}

// readProgress 读取当前播放时间和总时长
// 控制栏隐藏时innerText为空,因此读取textContent
func (c *Client) readProgress(ctx context.Context) (current, total string) {
	return c.readText(ctx, SelTimeCurrent), c.readText(ctx, SelTimeDuration)
}

func (c *Client) readText(ctx context.Context, selector string) string {
	el, ok, err := c.session.Find(ctx, selector)
	if err != nil || !ok {
		return ""
	}
	text, err := el.Property(ctx, "textContent")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// ParseTimestamp 解析播放器时间文本 (如 "4:05"、"1:02:03")
// 无法解析时返回0
func ParseTimestamp(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0
	}
	var total time.Duration
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + time.Duration(n)
	}
	return total * time.Second
}
