package youtube

import (
	"context"
	"fmt"

	"github.com/RecoveryAshes/ytwatcher/internal/browser"
	"github.com/RecoveryAshes/ytwatcher/internal/models"
)

// Classify 将页面上的可点击视频条目解析为VideoRecord
// fallbackChannel 仅用于频道网格条目,这类条目本身不包含上传者信息
// 标签不属于已知布局时返回 *models.UnsupportedVariantError
func Classify(ctx context.Context, el browser.Element, fallbackChannel string) (models.VideoRecord, error) {
	tag, err := el.TagName(ctx)
	if err != nil {
		return models.VideoRecord{}, fmt.Errorf("读取标签名失败: %w", err)
	}
	variant, err := models.ParseVariant(tag)
	if err != nil {
		return models.VideoRecord{}, err
	}

	var rec models.VideoRecord
	switch variant {
	case models.VariantSearchResult:
		rec, err = parseSearchResult(ctx, el)
	case models.VariantCompactSidebar:
		rec, err = parseCompactSidebar(ctx, el)
	case models.VariantChannelGrid:
		rec, err = parseChannelGrid(ctx, el, fallbackChannel)
	}
	if err != nil {
		return models.VideoRecord{}, fmt.Errorf("解析%s条目失败: %w", variant, err)
	}
	return rec, nil
}

// parseSearchResult 搜索结果: 标题和链接来自标题链接,频道名和频道链接来自频道名链接
func parseSearchResult(ctx context.Context, el browser.Element) (models.VideoRecord, error) {
	title, url, err := titleLink(ctx, el)
	if err != nil {
		return models.VideoRecord{}, err
	}

	channel, err := require(ctx, el, SelChannelLink)
	if err != nil {
		return models.VideoRecord{}, err
	}
	channelName, err := channel.Text(ctx)
	if err != nil {
		return models.VideoRecord{}, err
	}
	channelURL, err := channel.Property(ctx, "href")
	if err != nil {
		return models.VideoRecord{}, err
	}

	return models.NewVideoRecord(title, url, channelName, channelURL)
}

// parseCompactSidebar 侧边栏推荐: 频道名不可点击,没有频道链接
func parseCompactSidebar(ctx context.Context, el browser.Element) (models.VideoRecord, error) {
	titleEl, err := require(ctx, el, SelTitleSpan)
	if err != nil {
		return models.VideoRecord{}, err
	}
	title, err := titleEl.Text(ctx)
	if err != nil {
		return models.VideoRecord{}, err
	}

	link, err := require(ctx, el, SelFirstLink)
	if err != nil {
		return models.VideoRecord{}, err
	}
	url, err := link.Property(ctx, "href")
	if err != nil {
		return models.VideoRecord{}, err
	}

	channel, err := require(ctx, el, SelChannelNameText)
	if err != nil {
		return models.VideoRecord{}, err
	}
	channelName, err := channel.Text(ctx)
	if err != nil {
		return models.VideoRecord{}, err
	}

	return models.NewVideoRecord(title, url, channelName, "")
}

// parseChannelGrid 频道网格: 频道名由调用方提供
func parseChannelGrid(ctx context.Context, el browser.Element, channelName string) (models.VideoRecord, error) {
	title, url, err := titleLink(ctx, el)
	if err != nil {
		return models.VideoRecord{}, err
	}
	return models.NewVideoRecord(title, url, channelName, "")
}

// titleLink 读取 a#video-title 的 title 和 href 属性
func titleLink(ctx context.Context, el browser.Element) (title, url string, err error) {
	link, err := require(ctx, el, SelTitleLink)
	if err != nil {
		return "", "", err
	}
	if title, err = link.Property(ctx, "title"); err != nil {
		return "", "", err
	}
	if url, err = link.Property(ctx, "href"); err != nil {
		return "", "", err
	}
	return title, url, nil
}

// require 查找必需的子元素
func require(ctx context.Context, el browser.Element, selector string) (browser.Element, error) {
	child, ok, err := el.Find(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("查找 %s 失败: %w", selector, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrElementNotFound, selector)
	}
	return child, nil
}
