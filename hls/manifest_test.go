package hls

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clipfetch/clipfetch/httpx"
)

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=500000,RESOLUTION=640x360
low/index.m3u8
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=1500000,RESOLUTION=1280x720
high/index.m3u8
#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=1200000,RESOLUTION=960x540
mid/index.m3u8
`

func TestParseCollectsVariantsInDocumentOrder(t *testing.T) {
	assert := assert.New(t)

	manifest := Parse(masterPlaylist, "https://cdn.example.com/video/master.m3u8")
	assert.Len(manifest.Variants, 3)
	assert.Equal(int64(500000), manifest.Variants[0].Bandwidth)
	assert.Equal(int64(1500000), manifest.Variants[1].Bandwidth)
	assert.Equal(int64(1200000), manifest.Variants[2].Bandwidth)
}

func TestBestSelectsHighestBandwidth(t *testing.T) {
	assert := assert.New(t)

	best := Parse(masterPlaylist, "https://cdn.example.com/video/master.m3u8").Best()
	assert.NotNil(best)
	assert.Equal(int64(1500000), best.Bandwidth)
	assert.Equal("https://cdn.example.com/video/high/index.m3u8", best.URL)
}

func TestBestTieKeepsFirstInDocumentOrder(t *testing.T) {
	assert := assert.New(t)

	playlist := `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=800000
first/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=800000
second/index.m3u8
`
	best := Parse(playlist, "https://cdn.example.com/video/master.m3u8").Best()
	assert.Equal("https://cdn.example.com/video/first/index.m3u8", best.URL)
}

func TestParseRelativeURLResolution(t *testing.T) {
	assert := assert.New(t)

	playlist := "#EXT-X-STREAM-INF:BANDWIDTH=100\nlow/index.m3u8\n"
	manifest := Parse(playlist, "https://cdn.example.com/video/master.m3u8")
	assert.Equal("https://cdn.example.com/video/low/index.m3u8", manifest.Variants[0].URL)
}

func TestParseAbsoluteURLUntouched(t *testing.T) {
	assert := assert.New(t)

	playlist := "#EXT-X-STREAM-INF:BANDWIDTH=100\nhttps://other.example.com/v.m3u8\n"
	manifest := Parse(playlist, "https://cdn.example.com/video/master.m3u8")
	assert.Equal("https://other.example.com/v.m3u8", manifest.Variants[0].URL)
}

func TestParseMissingBandwidthDefaultsToZero(t *testing.T) {
	assert := assert.New(t)

	playlist := "#EXT-X-STREAM-INF:RESOLUTION=640x360\nv.m3u8\n"
	manifest := Parse(playlist, "https://cdn.example.com/master.m3u8")
	assert.Equal(int64(0), manifest.Variants[0].Bandwidth)
}

func TestParseSkipsBlankAndCommentLinesBeforeVariantURL(t *testing.T) {
	assert := assert.New(t)

	playlist := "#EXT-X-STREAM-INF:BANDWIDTH=100\n\n# a comment\nv.m3u8\n"
	manifest := Parse(playlist, "https://cdn.example.com/master.m3u8")
	assert.Len(manifest.Variants, 1)
	assert.Equal("https://cdn.example.com/v.m3u8", manifest.Variants[0].URL)
}

func TestBestEmptyManifest(t *testing.T) {
	assert := assert.New(t)
	assert.Nil(Parse("#EXTM3U\n#EXTINF:4.0,\nsegment0.ts\n", "https://cdn.example.com/media.m3u8").Best())
}

func TestResolveBestVariant(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(masterPlaylist))
	}))
	defer server.Close()

	url, err := ResolveBestVariant(context.Background(), httpx.New(), server.URL+"/video/master.m3u8")
	assert.NoError(err)
	assert.Equal(server.URL+"/video/high/index.m3u8", url)
}

func TestResolveBestVariantNoVariants(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n#EXTINF:4.0,\nsegment0.ts\n"))
	}))
	defer server.Close()

	_, err := ResolveBestVariant(context.Background(), httpx.New(), server.URL+"/media.m3u8")
	assert.ErrorIs(err, ErrNoVariants)
}

func TestResolveBestVariantUnfetchable(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := ResolveBestVariant(context.Background(), httpx.New(), server.URL+"/master.m3u8")
	assert.Error(err)
	assert.NotErrorIs(err, ErrNoVariants)
}
