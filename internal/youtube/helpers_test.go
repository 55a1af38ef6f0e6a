package youtube

import (
	"context"
	"time"

	"github.com/RecoveryAshes/ytwatcher/internal/browser/browsertest"
)

// fakeClock 虚拟时钟,Sleep立即推进时间
type fakeClock struct {
	now     time.Time
	start   time.Time
	sleeps  []time.Duration
	onSleep func(elapsed time.Duration)
}

func newFakeClock() *fakeClock {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &fakeClock{now: t, start: t}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	if c.onSleep != nil {
		c.onSleep(c.now.Sub(c.start))
	}
	return nil
}

func searchResult(title, id, channel string) *browsertest.Node {
	return browsertest.El("ytd-video-renderer").
		WithChild(SelTitleLink, browsertest.El("a").
			WithProp("title", title).
			WithProp("href", "https://www.youtube.com/watch?v="+id)).
		WithChild(SelChannelLink, browsertest.El("a").
			WithText(channel).
			WithProp("href", "https://www.youtube.com/@"+channel))
}

func compactTile(title, id, channel string) *browsertest.Node {
	return browsertest.El("ytd-compact-video-renderer").
		WithChild(SelTitleSpan, browsertest.El("span").WithText(title)).
		WithChild(SelFirstLink, browsertest.El("a").WithProp("href", "https://www.youtube.com/watch?v="+id)).
		WithChild(SelChannelNameText, browsertest.El("yt-formatted-string").WithText(channel))
}

func gridTile(title, id string) *browsertest.Node {
	return browsertest.El("ytd-grid-video-renderer").
		WithChild(SelTitleLink, browsertest.El("a").
			WithProp("title", title).
			WithProp("href", "https://www.youtube.com/watch?v="+id))
}

func live(n *browsertest.Node) *browsertest.Node {
	return n.WithChild(SelLiveBadge, browsertest.El("span").WithText(LiveBadgeText))
}

func newTestClient(s *browsertest.Session, clock *fakeClock) *Client {
	return NewClient(s, Options{Clock: clock})
}
