package models

import (
	"fmt"
	"strings"
)

// VideoVariant 可点击视频条目的页面布局类型
// 封闭枚举: 只识别三种布局,其他标签一律视为不支持
type VideoVariant int

const (
	VariantSearchResult   VideoVariant = iota + 1 // 搜索结果 (ytd-video-renderer)
	VariantCompactSidebar                         // 侧边栏推荐 (ytd-compact-video-renderer)
	VariantChannelGrid                            // 频道视频网格 (ytd-grid-video-renderer)
)

// variantTags 布局类型与页面标签名的对应关系
var variantTags = map[VideoVariant]string{
	VariantSearchResult:   "ytd-video-renderer",
	VariantCompactSidebar: "ytd-compact-video-renderer",
	VariantChannelGrid:    "ytd-grid-video-renderer",
}

// ParseVariant 根据节点标签名确定布局类型
// 标签名不区分大小写; 无法识别时返回UnsupportedVariantError
func ParseVariant(tag string) (VideoVariant, error) {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	for variant, t := range variantTags {
		if t == normalized {
			return variant, nil
		}
	}
	return 0, &UnsupportedVariantError{Tag: tag}
}

// Tag 返回布局对应的页面标签名
func (v VideoVariant) Tag() string {
	return variantTags[v]
}

// String 实现fmt.Stringer接口
func (v VideoVariant) String() string {
	switch v {
	case VariantSearchResult:
		return "SearchResult"
	case VariantCompactSidebar:
		return "CompactSidebar"
	case VariantChannelGrid:
		return "ChannelGrid"
	default:
		return fmt.Sprintf("VideoVariant(%d)", int(v))
	}
}

// ExposesChannelURL 该布局是否提供上传者频道链接
func (v VideoVariant) ExposesChannelURL() bool {
	return v == VariantSearchResult
}

// VideoRecord 归一化后的视频条目
// 构造后不可修改,按值传递; URL仅在产生它的浏览器会话内有效
type VideoRecord struct {
	Title       string `json:"title"`                 // 视频标题
	URL         string `json:"url"`                   // 观看页完整链接
	ChannelName string `json:"channel_name"`          // 上传者名称(始终存在)
	ChannelURL  string `json:"channel_url,omitempty"` // 上传者频道链接(部分布局不提供,为空表示缺失)
}

// NewVideoRecord 创建视频记录
// 标题、链接、频道名均不能为空; channelURL为空表示该布局不提供
func NewVideoRecord(title, url, channelName, channelURL string) (VideoRecord, error) {
	if title == "" {
		return VideoRecord{}, fmt.Errorf("%w: 视频标题为空", ErrIncompleteRecord)
	}
	if url == "" {
		return VideoRecord{}, fmt.Errorf("%w: 视频链接为空 (%s)", ErrIncompleteRecord, title)
	}
	if channelName == "" {
		return VideoRecord{}, fmt.Errorf("%w: 频道名称为空 (%s)", ErrIncompleteRecord, title)
	}
	return VideoRecord{
		Title:       title,
		URL:         url,
		ChannelName: channelName,
		ChannelURL:  channelURL,
	}, nil
}

// HasChannelURL 是否带有频道链接
func (r VideoRecord) HasChannelURL() bool {
	return r.ChannelURL != ""
}

// String 实现fmt.Stringer接口
func (r VideoRecord) String() string {
	return fmt.Sprintf("%s (%s) - %s", r.Title, r.ChannelName, r.URL)
}
