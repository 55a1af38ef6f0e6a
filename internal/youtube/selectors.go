package youtube

// 页面选择器集中在这里,站点改版时只需修改本文件
const (
	HomeURL = "https://www.youtube.com/"

	// 搜索
	SelSearchInput  = "input#search"
	SelSearchResult = "ytd-video-renderer"

	// 频道视频页
	SelGridVideo         = "ytd-grid-video-renderer"
	SelChannelHeaderName = "ytd-channel-name.ytd-c4-tabbed-header-renderer > div:nth-child(1) > div:nth-child(1) > yt-formatted-string:nth-child(1)"

	// 观看页侧边栏推荐
	SelSuggestion          = "ytd-compact-video-renderer.ytd-watch-next-secondary-results-renderer"
	SelApp                 = "ytd-app"
	SelContinuationSpinner = "paper-spinner.yt-next-continuation#spinner"

	// 播放器
	SelPlayer       = "div#player.ytd-watch-flexy"
	SelTimeCurrent  = "span.ytp-time-current"
	SelTimeDuration = "span.ytp-time-duration"
	SelUpNext       = "span.ytp-upnext-bottom"

	// 视频条目内部
	SelTitleLink       = "a#video-title"
	SelTitleSpan       = "span#video-title"
	SelFirstLink       = "a"
	SelChannelLink     = "ytd-channel-name a"
	SelChannelNameText = "ytd-channel-name yt-formatted-string"

	// 只匹配条目的直接子节点,嵌套在更深层的徽标不算
	SelLiveBadge = ":scope > div:nth-child(1) > div > ytd-badge-supported-renderer > div:nth-child(1) > span"

	// 首次访问的登录提示
	SelNoThanks = `paper-button[aria-label="No thanks"]`
)

// LiveBadgeText 直播条目徽标的文本
const LiveBadgeText = "LIVE NOW"

// 同意cookie,预置后站点不再弹出隐私声明
const (
	ConsentCookieName   = "CONSENT"
	ConsentCookieValue  = "YES+US.en"
	ConsentCookieDomain = ".youtube.com"
)
