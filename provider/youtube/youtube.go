// Package youtube resolves YouTube video URLs. The title comes from the oEmbed
// endpoint; the media URL is resolved through a fixed chain of third-party
// conversion services, with a native innertube client as the last resort.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/bitly/go-simplejson"
	kkdai "github.com/kkdai/youtube/v2"

	"github.com/clipfetch/clipfetch"
	"github.com/clipfetch/clipfetch/fallback"
	"github.com/clipfetch/clipfetch/httpx"
	"github.com/clipfetch/clipfetch/util"
)

const matchPriority int16 = 40

var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
}

// Endpoints are the third-party conversion services, in fixed priority order.
// Each is overridable for tests.
type Endpoints struct {
	OEmbed     string
	Ssyoutube  string
	Y2mateBase string
	Yt1sBase   string
	// DisableNativeClient skips the innertube fallback, mainly for tests.
	DisableNativeClient bool
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		OEmbed:     "https://www.youtube.com/oembed",
		Ssyoutube:  "https://ssyoutube.com",
		Y2mateBase: "https://www.y2mate.com",
		Yt1sBase:   "https://www.yt1s.com",
	}
}

type Config struct {
	Client    *httpx.Client
	Endpoints Endpoints
}

func NewConfig(client *httpx.Client) Config {
	return Config{
		Client:    client,
		Endpoints: DefaultEndpoints(),
	}
}

// ExtractVideoID returns the 11-character video id, or "" when the URL matches
// no known YouTube shape.
func ExtractVideoID(rawURL string) string {
	for _, pattern := range idPatterns {
		if match := pattern.FindStringSubmatch(rawURL); match != nil {
			return match[1]
		}
	}
	return ""
}

func (c Config) Match(s string) (clipfetch.Source, error) {
	videoID := ExtractVideoID(s)
	if videoID == "" {
		return nil, fmt.Errorf("not a recognised YouTube URL")
	}
	return &source{config: c, videoID: videoID}, nil
}

func (c Config) Provider() clipfetch.Provider {
	return clipfetch.Provider{
		Name:     "youtube",
		Platform: clipfetch.PlatformYouTube,
		Match:    c.Match,
		Priority: matchPriority,
	}
}

type source struct {
	config  Config
	videoID string
}

func (s *source) URL() string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", s.videoID)
}

func (s *source) Platform() clipfetch.Platform {
	return clipfetch.PlatformYouTube
}

func (s *source) VideoID() string {
	return s.videoID
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Recon(ctx context.Context) (clipfetch.ResolvedSource, error) {
	log := clipfetch.Logger(ctx).Sugar().Named("youtube")

	// Title lookup is best-effort; resolution never aborts because of it.
	title := s.fetchTitle(ctx)

	downloadURL, outcomes, err := fallback.First(ctx, s.mediaMethods())
	if err != nil {
		for _, outcome := range outcomes {
			log.Debugw("method failed", "method", outcome.Method, "error", outcome.Result.Error())
		}
		return nil, fmt.Errorf("%w: %v", clipfetch.ErrFetchFailed, err)
	}

	return &resolvedSource{
		source: *s,
		info: &clipfetch.VideoInfo{
			ID:          s.videoID,
			Title:       title,
			DownloadURL: downloadURL,
			Platform:    clipfetch.PlatformYouTube,
		},
	}, nil
}

func (s *source) fetchTitle(ctx context.Context) string {
	fallbackTitle := fmt.Sprintf("YouTube_%s", s.videoID)
	oembedURL := fmt.Sprintf("%s?url=%s&format=json", s.config.Endpoints.OEmbed, url.QueryEscape(s.URL()))
	oembed, err := s.config.Client.GetJSON(ctx, oembedURL)
	if err != nil {
		return fallbackTitle
	}
	return oembed.Get("title").MustString(fallbackTitle)
}

func (s *source) mediaMethods() []fallback.Method[string] {
	methods := []fallback.Method[string]{
		fallback.New("ssyoutube", s.fetchFromSsyoutube),
		fallback.New("y2mate", s.fetchFromY2mate),
		fallback.New("yt1s", s.fetchFromYt1s),
	}
	if !s.config.Endpoints.DisableNativeClient {
		methods = append(methods, fallback.New("innertube", s.fetchFromNativeClient))
	}
	return methods
}

var ssyoutubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)href="(https://[^"]+)"[^>]*class="[^"]*download[^"]*"[^>]*>`),
	regexp.MustCompile(`"url"\s*:\s*"(https://[^"]+googlevideo[^"]+)"`),
	regexp.MustCompile(`(https://r[0-9]+---[a-z0-9-]+\.googlevideo\.com/videoplayback[^"'\s]+)`),
}

func (s *source) fetchFromSsyoutube(ctx context.Context) (string, error) {
	html, err := s.config.Client.GetString(ctx, fmt.Sprintf("%s/watch?v=%s", s.config.Endpoints.Ssyoutube, s.videoID), nil)
	if err != nil {
		return "", err
	}
	for _, pattern := range ssyoutubePatterns {
		if match := pattern.FindStringSubmatch(html); match != nil {
			mediaURL := strings.ReplaceAll(match[1], `\u0026`, "&")
			if strings.Contains(mediaURL, "googlevideo.com") {
				return mediaURL, nil
			}
		}
	}
	return "", fmt.Errorf("no googlevideo URL in response")
}

// y2matePreferredQualities is the download quality preference order, best first.
var y2matePreferredQualities = []string{"720", "480", "360", "240"}

// fetchFromY2mate runs y2mate's two-step protocol: analyze the video, then
// convert the chosen quality's key into a download link.
func (s *source) fetchFromY2mate(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("url", s.URL())
	form.Set("q_auto", "0")
	form.Set("ajax", "1")
	analysis, err := s.config.Client.PostFormJSON(ctx, s.config.Endpoints.Y2mateBase+"/mates/analyzeV2/ajax", form, ajaxHeader())
	if err != nil {
		return "", err
	}
	if status := analysis.Get("status").MustString(); status != "ok" {
		return "", fmt.Errorf("analyze returned status %q", status)
	}
	mp4 := analysis.Get("links").Get("mp4")
	for _, quality := range y2matePreferredQualities {
		item, ok := mp4.CheckGet(quality)
		if !ok {
			continue
		}
		key := item.Get("k").MustString()
		if key == "" {
			continue
		}
		if downloadURL, err := s.convert(ctx, s.config.Endpoints.Y2mateBase+"/mates/convertV2/index", key); err == nil {
			return downloadURL, nil
		}
	}
	return "", fmt.Errorf("no convertible mp4 quality")
}

// fetchFromYt1s runs yt1s's two-step protocol, accepting any of the common mp4
// qualities.
func (s *source) fetchFromYt1s(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("url", s.URL())
	search, err := s.config.Client.PostFormJSON(ctx, s.config.Endpoints.Yt1sBase+"/api/ajaxSearch/index", form, ajaxHeader())
	if err != nil {
		return "", err
	}
	if status := search.Get("status").MustString(); status != "ok" {
		return "", fmt.Errorf("search returned status %q", status)
	}
	mp4 := search.Get("links").Get("mp4")
	for _, key := range acceptableYt1sKeys(mp4) {
		if downloadURL, err := s.convert(ctx, s.config.Endpoints.Yt1sBase+"/api/ajaxConvert/convert", key); err == nil {
			return downloadURL, nil
		}
	}
	return "", fmt.Errorf("no convertible mp4 quality")
}

// acceptableYt1sKeys collects conversion keys for the common progressive
// qualities, in a deterministic order.
func acceptableYt1sKeys(mp4 *simplejson.Json) []string {
	entries, err := mp4.Map()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	var keys []string
	for _, name := range names {
		item := mp4.Get(name)
		switch item.Get("q").MustString() {
		case "720p", "480p", "360p":
			if key := item.Get("k").MustString(); key != "" {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// convert exchanges a conversion key for a final download link; both y2mate and
// yt1s share the vid/k form and {status, dlink} response shape.
func (s *source) convert(ctx context.Context, endpoint string, key string) (string, error) {
	form := url.Values{}
	form.Set("vid", s.videoID)
	form.Set("k", key)
	response, err := s.config.Client.PostFormJSON(ctx, endpoint, form, ajaxHeader())
	if err != nil {
		return "", err
	}
	if status := response.Get("status").MustString(); status != "ok" {
		return "", fmt.Errorf("convert returned status %q", status)
	}
	downloadURL := response.Get("dlink").MustString()
	if downloadURL == "" {
		return "", fmt.Errorf("convert returned no link")
	}
	return downloadURL, nil
}

// fetchFromNativeClient resolves the stream URL with the innertube API client,
// picking the first format with audio. Slower than the scraping services but
// not dependent on any third party.
func (s *source) fetchFromNativeClient(ctx context.Context) (string, error) {
	client := kkdai.Client{}
	video, err := client.GetVideoContext(ctx, s.URL())
	if err != nil {
		return "", fmt.Errorf("failed to get video info: %w", err)
	}
	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return "", fmt.Errorf("no formats with audio")
	}
	streamURL, err := client.GetStreamURLContext(ctx, video, &formats[0])
	if err != nil {
		return "", fmt.Errorf("failed to get stream URL: %w", err)
	}
	return streamURL, nil
}

func ajaxHeader() http.Header {
	header := http.Header{}
	header.Set("X-Requested-With", "XMLHttpRequest")
	return header
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
