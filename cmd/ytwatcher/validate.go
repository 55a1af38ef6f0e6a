package main

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/RecoveryAshes/ytwatcher/internal/models"
)

// ValidateSearchTerm 验证搜索关键词
func ValidateSearchTerm(term string) error {
	if strings.TrimSpace(term) == "" {
		return fmt.Errorf("搜索关键词不能为空")
	}
	if len(term) > 200 {
		return fmt.Errorf("搜索关键词过长 (%d 字节, 上限 200)", len(term))
	}
	return nil
}

// ValidateBackend 验证浏览器后端
func ValidateBackend(name string) error {
	for _, b := range models.ValidBackends {
		if models.BrowserBackend(name) == b {
			return nil
		}
	}
	return fmt.Errorf("无效的浏览器后端: %s (有效值: rod, chromedp, remote)", name)
}

// ValidateDuration 解析并验证会话时长
func ValidateDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("无效的会话时长 %q: %w", s, err)
	}
	if d < time.Minute || d > 24*time.Hour {
		return 0, fmt.Errorf("会话时长必须在1分钟-24小时之间,当前值: %s", d)
	}
	return d, nil
}

// MaxSuggestionCount suggestions命令单次最多收集的推荐数量
const MaxSuggestionCount = 200

// ValidateCount 验证推荐数量
func ValidateCount(n int) error {
	if n < 1 || n > MaxSuggestionCount {
		return fmt.Errorf("推荐数量必须在1-%d之间,当前值: %d", MaxSuggestionCount, n)
	}
	return nil
}

// ValidateWatchURL 验证观看页地址,返回规范化后的地址
// 接受 youtube.com/watch?v= 和 youtu.be/ 两种形式
func ValidateWatchURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("无效的视频地址 %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("无效的视频地址 %q: 需要http(s)地址", raw)
	}

	var id string
	switch strings.ToLower(u.Hostname()) {
	case "youtube.com", "www.youtube.com", "m.youtube.com":
		if u.Path == "/watch" {
			id = u.Query().Get("v")
		}
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	}
	if id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("不是视频观看页地址: %s", raw)
	}
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id), nil
}
