// Package tiktok resolves TikTok video URLs. Short links are expanded by
// following redirects before the numeric video id can be extracted; the title
// comes from TikTok's public oEmbed endpoint and the media URL from the tikwm
// third-party resolver.
package tiktok

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/clipfetch/clipfetch"
	"github.com/clipfetch/clipfetch/httpx"
	"github.com/clipfetch/clipfetch/util"
)

const (
	defaultOEmbedURL   = "https://www.tiktok.com/oembed"
	defaultResolverURL = "https://www.tikwm.com/api/"

	// Titles from oEmbed are full post captions; keep filenames manageable.
	maxTitleLength = 100

	matchPriority int16 = 20
)

var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`tiktok\.com/@[^/]+/video/(\d+)`),
	regexp.MustCompile(`tiktok\.com/[^/]+/video/(\d+)`),
}

// shortLinkPatterns are redirect-only URL shapes whose id can only be known
// after expansion. Matching one of these keeps the raw URL as the resolution
// key instead of failing extraction.
var shortLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`vm\.tiktok\.com/([a-zA-Z0-9]+)`),
	regexp.MustCompile(`tiktok\.com/t/([a-zA-Z0-9]+)`),
}

var resolvedIDPattern = regexp.MustCompile(`video/(\d+)`)

type Config struct {
	Client *httpx.Client
	// OEmbedURL and ResolverURL are overridable for tests.
	OEmbedURL   string
	ResolverURL string
}

func NewConfig(client *httpx.Client) Config {
	return Config{
		Client:      client,
		OEmbedURL:   defaultOEmbedURL,
		ResolverURL: defaultResolverURL,
	}
}

// ExtractVideoID returns the numeric video id from a canonical TikTok URL, or
// the URL itself for short-link forms that need redirect expansion first.
// Returns "" when the URL matches neither shape.
func ExtractVideoID(rawURL string) string {
	for _, pattern := range idPatterns {
		if match := pattern.FindStringSubmatch(rawURL); match != nil {
			return match[1]
		}
	}
	for _, pattern := range shortLinkPatterns {
		if pattern.MatchString(rawURL) {
			return rawURL
		}
	}
	return ""
}

// IsShortLink reports whether the URL is a redirect-only short form.
func IsShortLink(rawURL string) bool {
	for _, pattern := range shortLinkPatterns {
		if pattern.MatchString(rawURL) {
			return true
		}
	}
	return false
}

func (c Config) Match(s string) (clipfetch.Source, error) {
	videoID := ExtractVideoID(s)
	if videoID == "" {
		return nil, fmt.Errorf("not a recognised TikTok URL")
	}
	return &source{config: c, rawURL: s, videoID: videoID}, nil
}

func (c Config) Provider() clipfetch.Provider {
	return clipfetch.Provider{
		Name:     "tiktok",
		Platform: clipfetch.PlatformTikTok,
		Match:    c.Match,
		Priority: matchPriority,
	}
}

type source struct {
	config  Config
	rawURL  string
	videoID string
}

func (s *source) URL() string {
	return s.rawURL
}

func (s *source) Platform() clipfetch.Platform {
	return clipfetch.PlatformTikTok
}

func (s *source) VideoID() string {
	return s.videoID
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Recon(ctx context.Context) (clipfetch.ResolvedSource, error) {
	log := clipfetch.Logger(ctx).Sugar().Named("tiktok")

	resolvedURL := s.rawURL
	if IsShortLink(s.rawURL) {
		resolvedURL = s.config.Client.ExpandURL(ctx, s.rawURL)
	}
	videoID := s.videoID
	if match := resolvedIDPattern.FindStringSubmatch(resolvedURL); match != nil {
		videoID = match[1]
	} else if IsShortLink(s.rawURL) {
		return nil, fmt.Errorf("%w: short link did not expand to a video URL", clipfetch.ErrFetchFailed)
	}

	// Title lookup is best-effort; resolution never aborts because of it.
	title := s.fetchTitle(ctx, resolvedURL, videoID)

	downloadURL, err := s.fetchDownloadURL(ctx, resolvedURL)
	if err != nil {
		log.Debugw("media resolution failed", "error", err)
		return nil, fmt.Errorf("%w: %v", clipfetch.ErrFetchFailed, err)
	}

	return &resolvedSource{
		source: *s,
		info: &clipfetch.VideoInfo{
			ID:          videoID,
			Title:       title,
			DownloadURL: downloadURL,
			Platform:    clipfetch.PlatformTikTok,
		},
	}, nil
}

func (s *source) fetchTitle(ctx context.Context, resolvedURL string, videoID string) string {
	fallbackTitle := fmt.Sprintf("TikTok_%s", videoID)
	oembed, err := s.config.Client.GetJSON(ctx, fmt.Sprintf("%s?url=%s", s.config.OEmbedURL, url.QueryEscape(resolvedURL)))
	if err != nil {
		return fallbackTitle
	}
	title := oembed.Get("title").MustString(fallbackTitle)
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength])
	}
	return title
}

// fetchDownloadURL asks the tikwm resolver for the media URL, preferring the HD
// rendition over the standard one.
func (s *source) fetchDownloadURL(ctx context.Context, resolvedURL string) (string, error) {
	form := url.Values{}
	form.Set("url", resolvedURL)
	form.Set("hd", "1")
	response, err := s.config.Client.PostFormJSON(ctx, s.config.ResolverURL, form, nil)
	if err != nil {
		return "", err
	}
	if code := response.Get("code").MustInt(); code != 0 {
		return "", fmt.Errorf("resolver returned code %d", code)
	}
	data := response.Get("data")
	if hd := data.Get("hdplay").MustString(); hd != "" {
		return hd, nil
	}
	if play := data.Get("play").MustString(); play != "" {
		return play, nil
	}
	return "", fmt.Errorf("resolver returned no media URL")
}

type resolvedSource struct {
	source
	info *clipfetch.VideoInfo
}

func (s *resolvedSource) Info() *clipfetch.VideoInfo {
	return s.info
}

func (s *resolvedSource) String() string {
	return s.info.String()
}

func (s *resolvedSource) Download(d clipfetch.Download) error {
	return d.SaveURL(util.VideoFilename(s.info), s.info.DownloadURL)
}

func init() {
	clipfetch.DefaultProviderRegistry.MustAdd(NewConfig(httpx.New()).Provider())
}
