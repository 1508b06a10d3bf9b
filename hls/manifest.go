// Package hls parses HTTP Live Streaming master playlists and picks the variant
// stream a downloader should fetch.
package hls

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/clipfetch/clipfetch/httpx"
)

const streamInfTag = "#EXT-X-STREAM-INF"

// ErrNoVariants means the playlist contained no stream-info tags, i.e. it is a
// media playlist (or garbage) rather than a master playlist. Callers typically
// fall back to using the manifest URL itself as the download target.
var ErrNoVariants = errors.New("manifest contains no variant streams")

var bandwidthPattern = regexp.MustCompile(`BANDWIDTH=(\d+)`)

// Variant is one quality option within a master playlist.
type Variant struct {
	// Bandwidth in bits per second, 0 when the attribute is absent or unparsable.
	Bandwidth int64
	// URL of the variant playlist, always absolute.
	URL string
}

// Manifest is the set of variants parsed from a master playlist, in document
// order. Document order is parse order, not preference order.
type Manifest struct {
	Variants []Variant
}

// Parse reads playlist text and collects variant streams. Each stream-info tag's
// variant URL is the next non-blank, non-comment line. Relative variant URLs are
// resolved against the manifest URL's directory (everything up to the last "/").
func Parse(content string, manifestURL string) *Manifest {
	manifest := &Manifest{}
	lines := strings.Split(content, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, streamInfTag) {
			continue
		}
		bandwidth := parseBandwidth(line)
		for j := i + 1; j < len(lines); j++ {
			urlLine := strings.TrimSpace(lines[j])
			if urlLine == "" || strings.HasPrefix(urlLine, "#") {
				continue
			}
			manifest.Variants = append(manifest.Variants, Variant{
				Bandwidth: bandwidth,
				URL:       absoluteURL(manifestURL, urlLine),
			})
			i = j
			break
		}
	}
	return manifest
}

// Best returns the variant with the highest bandwidth. Ties keep the first
// variant in document order; only a strictly greater bandwidth replaces the
// current best. Returns nil for an empty manifest.
func (m *Manifest) Best() *Variant {
	var best *Variant
	for i := range m.Variants {
		if best == nil || m.Variants[i].Bandwidth > best.Bandwidth {
			best = &m.Variants[i]
		}
	}
	return best
}

// ResolveBestVariant fetches a master playlist and returns the URL of its
// highest-bandwidth variant. Returns ErrNoVariants when the playlist has no
// stream-info tags, or the transport error when it could not be fetched.
func ResolveBestVariant(ctx context.Context, client *httpx.Client, manifestURL string) (string, error) {
	content, err := client.GetString(ctx, manifestURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch manifest: %w", err)
	}
	best := Parse(content, manifestURL).Best()
	if best == nil {
		return "", ErrNoVariants
	}
	return best.URL, nil
}

func parseBandwidth(line string) int64 {
	match := bandwidthPattern.FindStringSubmatch(line)
	if match == nil {
		return 0
	}
	bandwidth, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0
	}
	return bandwidth
}

func absoluteURL(manifestURL string, variantLine string) string {
	if strings.HasPrefix(variantLine, "http://") || strings.HasPrefix(variantLine, "https://") {
		return variantLine
	}
	base := manifestURL
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[:idx]
	}
	return base + "/" + variantLine
}
