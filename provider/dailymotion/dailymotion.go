// Package dailymotion resolves Dailymotion video URLs through the public player
// metadata endpoint and the HLS manifest it points at.
package dailymotion

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bitly/go-simplejson"

	"github.com/clipfetch/clipfetch"
	"github.com/clipfetch/clipfetch/hls"
	"github.com/clipfetch/clipfetch/httpx"
	"github.com/clipfetch/clipfetch/util"
)

const (
	defaultMetadataBaseURL = "https://www.dailymotion.com/player/metadata/video"

	matchPriority int16 = 10
)

var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`dailymotion\.com/video/([a-zA-Z0-9]+)`),
	regexp.MustCompile(`dai\.ly/([a-zA-Z0-9]+)`),
	regexp.MustCompile(`dailymotion\.com/embed/video/([a-zA-Z0-9]+)`),
}

// bareIDPattern accepts input that already is a video identifier, with no URL
// around it.
var bareIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

type Config struct {
	Client *httpx.Client
	// MetadataBaseURL is the player metadata endpoint, overridable for tests.
	MetadataBaseURL string
}

func NewConfig(client *httpx.Client) Config {
	return Config{
		Client:          client,
		MetadataBaseURL: defaultMetadataBaseURL,
	}
}

// ExtractVideoID applies the known URL shapes in order and returns the first
// captured identifier, or "" when nothing matches.
func ExtractVideoID(url string) string {
	for _, pattern := range idPatterns {
		if match := pattern.FindStringSubmatch(url); match != nil {
			return match[1]
		}
	}
	if bareIDPattern.MatchString(url) {
		return url
	}
	return ""
}

func (c Config) Match(s string) (clipfetch.Source, error) {
	videoID := ExtractVideoID(s)
	if videoID == "" {
		return nil, fmt.Errorf("not a recognised Dailymotion URL")
	}
	return &source{config: c, videoID: videoID}, nil
}

func (c Config) Provider() clipfetch.Provider {
	return clipfetch.Provider{
		Name:     "dailymotion",
		Platform: clipfetch.PlatformDailymotion,
		Match:    c.Match,
		Priority: matchPriority,
	}
}

type source struct {
	config  Config
	videoID string
}

func (s *source) URL() string {
	return fmt.Sprintf("https://www.dailymotion.com/video/%s", s.videoID)
}

func (s *source) Platform() clipfetch.Platform {
	return clipfetch.PlatformDailymotion
}

func (s *source) VideoID() string {
	return s.videoID
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Recon(ctx context.Context) (clipfetch.ResolvedSource, error) {
	log := clipfetch.Logger(ctx).Sugar().Named("dailymotion")

	metadata, err := s.config.Client.GetJSON(ctx, fmt.Sprintf("%s/%s", s.config.MetadataBaseURL, s.videoID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clipfetch.ErrFetchFailed, err)
	}
	if _, hasError := metadata.CheckGet("error"); hasError {
		return nil, fmt.Errorf("%w: metadata endpoint reported an error", clipfetch.ErrFetchFailed)
	}

	title := metadata.Get("title").MustString(fmt.Sprintf("Video_%s", s.videoID))
	manifestURL := manifestURLFromMetadata(metadata)
	if manifestURL == "" {
		return nil, fmt.Errorf("%w: no HLS manifest in metadata", clipfetch.ErrFetchFailed)
	}

	// Prefer the best single variant; if the manifest is unfetchable or has no
	// variants, the adaptive manifest URL itself is still a valid download target.
	downloadURL, err := hls.ResolveBestVariant(ctx, s.config.Client, manifestURL)
	if err != nil {
		if !errors.Is(err, hls.ErrNoVariants) {
			log.Debugw("falling back to manifest URL", "error", err)
		}
		downloadURL = manifestURL
	}

	return &resolvedSource{
		source: *s,
		info: &clipfetch.VideoInfo{
			ID:          s.videoID,
			Title:       title,
			DownloadURL: downloadURL,
			Platform:    clipfetch.PlatformDailymotion,
		},
	}, nil
}

// manifestURLFromMetadata walks qualities.auto looking for the first entry whose
// type declares an HLS playlist.
func manifestURLFromMetadata(metadata *simplejson.Json) string {
	auto := metadata.Get("qualities").Get("auto")
	for i := 0; i < len(auto.MustArray()); i++ {
		item := auto.GetIndex(i)
		mimeType := item.Get("type").MustString()
		if strings.Contains(mimeType, "mpegURL") || strings.Contains(mimeType, "m3u8") {
			if url := item.Get("url").MustString(); url != "" {
				return url
			}
		}
	}
	return ""
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
