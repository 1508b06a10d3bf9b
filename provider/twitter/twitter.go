// Package twitter resolves Twitter/X tweet URLs to mp4 assets on the platform's
// video CDN. There is no usable official endpoint, so resolution scrapes a fixed
// chain of third-party services, stopping at the first that yields a match.
package twitter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/clipfetch/clipfetch"
	"github.com/clipfetch/clipfetch/fallback"
	"github.com/clipfetch/clipfetch/httpx"
	"github.com/clipfetch/clipfetch/util"
)

const matchPriority int16 = 30

var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:twitter\.com|x\.com)/[^/]+/status/(\d+)`),
	regexp.MustCompile(`(?:twitter\.com|x\.com)/i/status/(\d+)`),
}

// Endpoints are the third-party scraping services, in fixed priority order.
// Each is overridable for tests.
type Endpoints struct {
	Twdown                 string
	Ssstwitter             string
	Twitsave               string
	TwitterVideoDownloader string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Twdown:                 "https://twdown.net/download.php",
		Ssstwitter:             "https://ssstwitter.com/",
		Twitsave:               "https://twitsave.com/info",
		TwitterVideoDownloader: "https://twittervideodownloader.com/download",
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

// ExtractTweetID returns the numeric status id, or "" when the URL doesn't
// reference a tweet.
func ExtractTweetID(rawURL string) string {
	for _, pattern := range idPatterns {
		if match := pattern.FindStringSubmatch(rawURL); match != nil {
			return match[1]
		}
	}
	return ""
}

func (c Config) Match(s string) (clipfetch.Source, error) {
	tweetID := ExtractTweetID(s)
	if tweetID == "" {
		return nil, fmt.Errorf("not a recognised Twitter/X status URL")
	}
	return &source{config: c, rawURL: s, tweetID: tweetID}, nil
}

func (c Config) Provider() clipfetch.Provider {
	return clipfetch.Provider{
		Name:     "twitter",
		Platform: clipfetch.PlatformTwitter,
		Match:    c.Match,
		Priority: matchPriority,
	}
}

type source struct {
	config  Config
	rawURL  string
	tweetID string
}

func (s *source) URL() string {
	return s.rawURL
}

func (s *source) Platform() clipfetch.Platform {
	return clipfetch.PlatformTwitter
}

func (s *source) VideoID() string {
	return s.tweetID
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Recon(ctx context.Context) (clipfetch.ResolvedSource, error) {
	log := clipfetch.Logger(ctx).Sugar().Named("twitter")

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
			ID: s.tweetID,
			// No title endpoint is used for Twitter; synthesize one.
			Title:       fmt.Sprintf("Twitter_%s", s.tweetID),
			DownloadURL: downloadURL,
			Platform:    clipfetch.PlatformTwitter,
		},
	}, nil
}

func (s *source) mediaMethods() []fallback.Method[string] {
	return []fallback.Method[string]{
		fallback.New("twdown", s.fetchFromTwdown),
		fallback.New("ssstwitter", s.fetchFromSsstwitter),
		fallback.New("twitsave", s.fetchFromTwitsave),
		fallback.New("twittervideodownloader", s.fetchFromTwitterVideoDownloader),
	}
}

var twdownPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)href="(https://[^"]+\.mp4[^"]*)"[^>]*>.*?Download`),
	regexp.MustCompile(`(https://video\.twimg\.com/[^"'\s]+\.mp4[^"'\s]*)`),
	regexp.MustCompile(`(https://[^"'\s]+twimg[^"'\s]+\.mp4[^"'\s]*)`),
}

func (s *source) fetchFromTwdown(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("URL", s.rawURL)
	header := http.Header{}
	header.Set("Origin", "https://twdown.net")
	header.Set("Referer", "https://twdown.net/")
	html, err := s.config.Client.PostForm(ctx, s.config.Endpoints.Twdown, form, header)
	if err != nil {
		return "", err
	}
	return firstMatch(html, twdownPatterns)
}

var ssstwitterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)href="(https://[^"]+\.mp4[^"]*)"[^>]*>.*?HD`),
	regexp.MustCompile(`href="(https://[^"]+\.mp4[^"]*)"`),
	regexp.MustCompile(`(https://video\.twimg\.com/[^"'\s]+\.mp4[^"'\s]*)`),
}

func (s *source) fetchFromSsstwitter(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("id", s.rawURL)
	form.Set("locale", "en")
	header := http.Header{}
	header.Set("Origin", "https://ssstwitter.com")
	header.Set("Referer", "https://ssstwitter.com/")
	html, err := s.config.Client.PostForm(ctx, s.config.Endpoints.Ssstwitter, form, header)
	if err != nil {
		return "", err
	}
	return firstMatch(html, ssstwitterPatterns)
}

var twitsavePatterns = []*regexp.Regexp{
	regexp.MustCompile(`href="(https://[^"]*twimg\.com/[^"]*\.mp4[^"]*)"[^>]*>`),
	regexp.MustCompile(`(https://video\.twimg\.com/[^"'\s]+\.mp4[^"'\s]*)`),
}

func (s *source) fetchFromTwitsave(ctx context.Context) (string, error) {
	html, err := s.config.Client.GetString(ctx, fmt.Sprintf("%s?url=%s", s.config.Endpoints.Twitsave, url.QueryEscape(s.rawURL)), nil)
	if err != nil {
		return "", err
	}
	return firstMatch(html, twitsavePatterns)
}

var twitterVideoDownloaderPattern = regexp.MustCompile(`(https://video\.twimg\.com/[^"'\s]+\.mp4[^"'\s]*)`)

func (s *source) fetchFromTwitterVideoDownloader(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("tweet", s.rawURL)
	html, err := s.config.Client.PostForm(ctx, s.config.Endpoints.TwitterVideoDownloader, form, nil)
	if err != nil {
		return "", err
	}
	return firstMatch(html, []*regexp.Regexp{twitterVideoDownloaderPattern})
}

func firstMatch(html string, patterns []*regexp.Regexp) (string, error) {
	for _, pattern := range patterns {
		if match := pattern.FindStringSubmatch(html); match != nil {
			return match[1], nil
		}
	}
	return "", fmt.Errorf("no mp4 asset URL in response")
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
