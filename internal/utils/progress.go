package utils

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// WatchProgress 终端播放进度条
// 每个视频一根进度条,单位为秒; Finish后下一次Update开始新的进度条
type WatchProgress struct {
	out         io.Writer
	description string

	bar *progressbar.ProgressBar
	max int64
}

// NewWatchProgress 创建进度条,out为nil时写到标准错误
func NewWatchProgress(out io.Writer, description string) *WatchProgress {
	return &WatchProgress{out: out, description: description}
}

// Update 更新播放进度
// 总时长未知(直播或尚未加载)时显示为不定长进度
func (p *WatchProgress) Update(current, total time.Duration) {
	max := int64(total / time.Second)
	if max <= 0 {
		max = -1
	}

	if p.bar == nil {
		p.bar = newProgressBar(p.out, max, p.description)
		p.max = max
	} else if max != p.max {
		p.bar.ChangeMax64(max)
		p.max = max
	}

	if err := p.bar.Set64(int64(current / time.Second)); err != nil {
		Debugf("更新进度条失败: %v", err)
	}
}

// Finish 结束当前进度条
func (p *WatchProgress) Finish() {
	if p.bar == nil {
		return
	}
	if err := p.bar.Finish(); err != nil {
		Debugf("结束进度条失败: %v", err)
	}
	p.bar = nil
	p.max = 0
}

// newProgressBar 创建进度条
func newProgressBar(out io.Writer, max int64, description string) *progressbar.ProgressBar {
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	}
	if out != nil {
		opts = append(opts, progressbar.OptionSetWriter(out))
	}
	return progressbar.NewOptions64(max, opts...)
}
