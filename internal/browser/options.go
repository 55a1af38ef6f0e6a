package browser

import (
	"fmt"

	"github.com/RecoveryAshes/ytwatcher/internal/models"
)

const (
	// DefaultLanguage 默认界面语言,页面文本匹配依赖英文界面
	DefaultLanguage = "en-US"

	DefaultWindowWidth  = 1280
	DefaultWindowHeight = 800
)

// Flag 一个浏览器启动参数
// Value为空表示无值开关 (如 --mute-audio)
type Flag struct {
	Name  string
	Value string
}

// LaunchFlags 返回本地启动浏览器时需要追加的参数
// 两个本地后端共用同一组参数
func LaunchFlags(cfg models.BrowserConfig) []Flag {
	lang := cfg.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	width, height := cfg.WindowWidth, cfg.WindowHeight
	if width == 0 {
		width = DefaultWindowWidth
	}
	if height == 0 {
		height = DefaultWindowHeight
	}

	return []Flag{
		{Name: "lang", Value: lang},
		{Name: "accept-lang", Value: lang},
		{Name: "autoplay-policy", Value: "no-user-gesture-required"},
		{Name: "mute-audio"},
		{Name: "window-size", Value: fmt.Sprintf("%d,%d", width, height)},
	}
}
