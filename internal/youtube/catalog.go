package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RecoveryAshes/ytwatcher/internal/browser"
	"github.com/RecoveryAshes/ytwatcher/internal/models"
	"github.com/RecoveryAshes/ytwatcher/internal/utils"
)

// Search 在站内搜索term并返回非直播的搜索结果
// 搜索框的placeholder不含"Search"时返回 *models.PreconditionError,不会输入或提交
func (c *Client) Search(ctx context.Context, term string) ([]models.VideoRecord, error) {
	box, err := c.session.WaitInteractable(ctx, SelSearchInput, c.waitTimeout)
	if err != nil {
		return nil, fmt.Errorf("等待搜索框失败: %w", err)
	}

	placeholder, _, err := box.Attribute(ctx, "placeholder")
	if err != nil {
		return nil, fmt.Errorf("读取搜索框placeholder失败: %w", err)
	}
	if !strings.Contains(placeholder, "Search") {
		return nil, &models.PreconditionError{
			Control:   SelSearchInput,
			Attribute: "placeholder",
			Want:      "Search",
			Got:       placeholder,
		}
	}

	if err := box.Clear(ctx); err != nil {
		return nil, fmt.Errorf("清空搜索框失败: %w", err)
	}
	if err := box.Type(ctx, term); err != nil {
		return nil, fmt.Errorf("输入搜索词失败: %w", err)
	}
	if err := box.Submit(ctx); err != nil {
		return nil, fmt.Errorf("提交搜索失败: %w", err)
	}

	if _, err := c.session.WaitInteractable(ctx, SelSearchResult, c.waitTimeout); err != nil {
		return nil, fmt.Errorf("等待搜索结果失败 [%s]: %w", term, err)
	}

	els, err := c.session.FindAll(ctx, SelSearchResult)
	if err != nil {
		return nil, err
	}
	videos, err := c.classifyAll(ctx, els, "")
	if err != nil {
		return nil, err
	}
	utils.Debugf("搜索 %q 得到 %d 个视频", term, len(videos))
	return videos, nil
}

// ChannelVideos 打开频道的视频页并返回非直播视频
func (c *Client) ChannelVideos(ctx context.Context, channelURL string) ([]models.VideoRecord, error) {
	url := ChannelVideosURL(channelURL)
	if err := c.session.Navigate(ctx, url); err != nil {
		return nil, err
	}

	if _, err := c.session.WaitInteractable(ctx, SelGridVideo, c.waitTimeout); err != nil {
		return nil, fmt.Errorf("等待频道视频列表失败: %w", err)
	}

	header, ok, err := c.session.Find(ctx, SelChannelHeaderName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: 频道名称 %s", models.ErrElementNotFound, SelChannelHeaderName)
	}
	channelName, err := header.Text(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取频道名称失败: %w", err)
	}

	els, err := c.session.FindAll(ctx, SelGridVideo)
	if err != nil {
		return nil, err
	}
	videos, err := c.classifyAll(ctx, els, channelName)
	if err != nil {
		return nil, err
	}
	utils.Debugf("频道 %s 共 %d 个视频", channelName, len(videos))
	return videos, nil
}

// Suggestions 从当前观看页的侧边栏收集最多count个推荐视频
// 推荐是滚动时懒加载的,只有在滚动后数量不再增长时才会返回少于count个
func (c *Client) Suggestions(ctx context.Context, count int) ([]models.VideoRecord, error) {
	if count < 1 {
		return nil, fmt.Errorf("推荐数量必须大于0: %d", count)
	}

	if _, err := c.session.WaitInteractable(ctx, SelSuggestion, c.waitTimeout); err != nil {
		return nil, fmt.Errorf("等待侧边栏推荐失败: %w", err)
	}

	var tiles []browser.Element
	prev := -1
	for len(tiles) < count && len(tiles) > prev {
		if err := c.session.ScrollToBottom(ctx, SelApp); err != nil {
			return nil, err
		}
		if err := c.clock.Sleep(ctx, c.scrollPause); err != nil {
			return nil, err
		}
		if err := c.session.WaitHidden(ctx, SelContinuationSpinner, c.waitTimeout); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			utils.Warnf("未能确认推荐加载完成: %v", err)
		}

		prev = len(tiles)
		els, err := c.session.FindAll(ctx, SelSuggestion)
		if err != nil {
			return nil, err
		}
		tiles = els
	}

	if len(tiles) > count {
		tiles = tiles[:count]
	}
	return c.classifyAll(ctx, tiles, "")
}

// ChannelVideosURL 频道视频页地址
func ChannelVideosURL(channelURL string) string {
	return strings.TrimRight(channelURL, "/") + "/videos"
}

// IsLivestream 条目是否为正在进行的直播
// 没有徽标或读取失败都视为普通视频
func IsLivestream(ctx context.Context, el browser.Element) bool {
	badge, ok, err := el.Find(ctx, SelLiveBadge)
	if err != nil || !ok {
		return false
	}
	text, err := badge.Text(ctx)
	if err != nil {
		return false
	}
	return strings.TrimSpace(text) == LiveBadgeText
}

// classifyAll 解析条目列表并排除直播
// 结构性错误立即返回; 单个条目缺少子元素或字段时跳过该条目
func (c *Client) classifyAll(ctx context.Context, els []browser.Element, fallbackChannel string) ([]models.VideoRecord, error) {
	videos := make([]models.VideoRecord, 0, len(els))
	for i, el := range els {
		if IsLivestream(ctx, el) {
			continue
		}
		rec, err := Classify(ctx, el, fallbackChannel)
		if err != nil {
			if models.IsStructural(err) || ctx.Err() != nil {
				return nil, err
			}
			if errors.Is(err, models.ErrElementNotFound) || errors.Is(err, models.ErrIncompleteRecord) {
				utils.Warnf("跳过第%d个条目: %v", i+1, err)
				continue
			}
			return nil, err
		}
		videos = append(videos, rec)
	}
	return videos, nil
}

// Open 打开视频观看页
func (c *Client) Open(ctx context.Context, video models.VideoRecord) error {
	return c.session.Navigate(ctx, video.URL)
}
