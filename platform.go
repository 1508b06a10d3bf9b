package clipfetch

import "strings"

// Platform identifies the video hosting service an input URL belongs to. It is
// computed once per URL and determines which extraction and fetch strategy applies.
type Platform int

const (
	PlatformUnknown Platform = iota
	PlatformDailymotion
	PlatformTikTok
	PlatformTwitter
	PlatformYouTube
)

func (p Platform) String() string {
	switch p {
	case PlatformDailymotion:
		return "dailymotion"
	case PlatformTikTok:
		return "tiktok"
	case PlatformTwitter:
		return "twitter"
	case PlatformYouTube:
		return "youtube"
	default:
		return "unknown"
	}
}

// platformHosts maps each platform to the host fragments that identify it. Checked
// in declaration order, first match wins.
var platformHosts = []struct {
	platform  Platform
	fragments []string
}{
	{PlatformDailymotion, []string{"dailymotion.com", "dai.ly"}},
	{PlatformTikTok, []string{"tiktok.com", "vm.tiktok.com"}},
	{PlatformTwitter, []string{"twitter.com", "x.com"}},
	{PlatformYouTube, []string{"youtube.com", "youtu.be"}},
}

// DetectPlatform classifies a URL by substring matching against known host
// fragments. It never fails; unrecognised input gives PlatformUnknown.
func DetectPlatform(url string) Platform {
	for _, entry := range platformHosts {
		for _, fragment := range entry.fragments {
			if strings.Contains(url, fragment) {
				return entry.platform
			}
		}
	}
	return PlatformUnknown
}
