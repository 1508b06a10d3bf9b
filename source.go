package clipfetch

import (
	"context"
	"fmt"
)

// VideoInfo is the engine's output: everything the download layer needs to fetch
// one video. DownloadURL is either a direct progressive-download URL or a single
// HLS variant playlist URL, never a segment list.
type VideoInfo struct {
	ID          string
	Title       string
	DownloadURL string
	Platform    Platform
}

func (i *VideoInfo) String() string {
	return fmt.Sprintf("%s [%s:%s]", i.Title, i.Platform, i.ID)
}

// A Source is a matched-but-unresolved video reference. Matching is pure (no
// network access); everything that needs the network happens in Recon.
type Source interface {
	// URL should return the canonical URL for this source. It is assumed that the
	// Provider.Match that created the Source would successfully match this
	// canonical URL.
	URL() string
	// Platform identifies the hosting service this source was matched against.
	Platform() Platform
	// VideoID returns the extracted identifier, or the raw URL for short-link
	// forms that can only be identified after redirect expansion.
	VideoID() string
	// Recon fetches metadata and resolves the final media URL.
	Recon(context.Context) (ResolvedSource, error)
}

// A ResolvedSource is a Source whose media URL has been resolved and can be
// handed to the download layer.
type ResolvedSource interface {
	Source
	// Info returns the resolved video information. Never nil.
	Info() *VideoInfo
	// Download fetches the actual video.
	Download(Download) error
}
