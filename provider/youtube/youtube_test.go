package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clipfetch/clipfetch"
	"github.com/clipfetch/clipfetch/httpx"
)

func TestExtractVideoID(t *testing.T) {
	assert := assert.New(t)

	for url, expected := range map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ": "dQw4w9WgXcQ",
		"https://youtube.com/watch?v=dQw4w9WgXcQ&t=1": "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":   "dQw4w9WgXcQ",
		"https://www.youtube.com/v/dQw4w9WgXcQ":       "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ":  "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=tooshort":    "",
		"https://example.com/watch?v=dQw4w9WgXcQ":     "",
	} {
		assert.Equal(expected, ExtractVideoID(url), "url: %s", url)
	}
}

const videoplaybackURL = "https://r4---sn-abc123.googlevideo.com/videoplayback?expire=123&id=abc"

// testConfig points every endpoint at the test server and disables the native
// client so tests never touch the real network.
func testConfig(server *httptest.Server) Config {
	config := NewConfig(httpx.New())
	config.Endpoints = Endpoints{
		OEmbed:              server.URL + "/oembed",
		Ssyoutube:           server.URL + "/ssyoutube",
		Y2mateBase:          server.URL + "/y2mate",
		Yt1sBase:            server.URL + "/yt1s",
		DisableNativeClient: true,
	}
	return config
}

func TestReconSsyoutube(t *testing.T) {
	assert := assert.New(t)

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title": "Never Gonna Give You Up"}`)
	})
	mux.HandleFunc("/ssyoutube/watch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("dQw4w9WgXcQ", r.URL.Query().Get("v"))
		// Media URL with JSON-escaped ampersands, as served inside embedded JSON.
		fmt.Fprint(w, `{"url":"https://r4---sn-abc123.googlevideo.com/videoplayback?expire=123&id=abc"}`)
	})

	source, err := testConfig(server).Match("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	assert.NoError(err)
	resolved, err := source.Recon(context.Background())
	assert.NoError(err)

	info := resolved.Info()
	assert.Equal("dQw4w9WgXcQ", info.ID)
	assert.Equal("Never Gonna Give You Up", info.Title)
	assert.Equal(videoplaybackURL, info.DownloadURL)
	assert.Equal(clipfetch.PlatformYouTube, info.Platform)
}

func TestReconFallsThroughToY2mate(t *testing.T) {
	assert := assert.New(t)

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title": "Sample"}`)
	})
	mux.HandleFunc("/ssyoutube/watch", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/y2mate/mates/analyzeV2/ajax", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("XMLHttpRequest", r.Header.Get("X-Requested-With"))
		_ = r.ParseForm()
		assert.Contains(r.PostForm.Get("url"), "dQw4w9WgXcQ")
		fmt.Fprint(w, `{
			"status": "ok",
			"links": {"mp4": {
				"720": {"k": "key720", "q": "720p"},
				"360": {"k": "key360", "q": "360p"}
			}}
		}`)
	})
	mux.HandleFunc("/y2mate/mates/convertV2/index", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		assert.Equal("dQw4w9WgXcQ", r.PostForm.Get("vid"))
		assert.Equal("key720", r.PostForm.Get("k"))
		fmt.Fprint(w, `{"status": "ok", "dlink": "https://dl.example.com/video720.mp4"}`)
	})

	source, err := testConfig(server).Match("https://youtu.be/dQw4w9WgXcQ")
	assert.NoError(err)
	resolved, err := source.Recon(context.Background())
	assert.NoError(err)
	assert.Equal("https://dl.example.com/video720.mp4", resolved.Info().DownloadURL)
}

func TestReconY2mateSkipsUnconvertibleQuality(t *testing.T) {
	assert := assert.New(t)

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title": "Sample"}`)
	})
	mux.HandleFunc("/ssyoutube/watch", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/y2mate/mates/analyzeV2/ajax", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"status": "ok",
			"links": {"mp4": {
				"720": {"k": "key720", "q": "720p"},
				"480": {"k": "key480", "q": "480p"}
			}}
		}`)
	})
	mux.HandleFunc("/y2mate/mates/convertV2/index", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("k") == "key720" {
			fmt.Fprint(w, `{"status": "processing"}`)
			return
		}
		fmt.Fprint(w, `{"status": "ok", "dlink": "https://dl.example.com/video480.mp4"}`)
	})

	source, err := testConfig(server).Match("https://youtu.be/dQw4w9WgXcQ")
	assert.NoError(err)
	resolved, err := source.Recon(context.Background())
	assert.NoError(err)
	assert.Equal("https://dl.example.com/video480.mp4", resolved.Info().DownloadURL)
}

func TestReconFallsThroughToYt1s(t *testing.T) {
	assert := assert.New(t)

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title": "Sample"}`)
	})
	mux.HandleFunc("/ssyoutube/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>no media</html>")
	})
	mux.HandleFunc("/y2mate/mates/analyzeV2/ajax", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "error"}`)
	})
	mux.HandleFunc("/yt1s/api/ajaxSearch/index", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"status": "ok",
			"links": {"mp4": {
				"137": {"k": "keyHD", "q": "1080p"},
				"22": {"k": "key720", "q": "720p"}
			}}
		}`)
	})
	mux.HandleFunc("/yt1s/api/ajaxConvert/convert", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		assert.Equal("key720", r.PostForm.Get("k"))
		fmt.Fprint(w, `{"status": "ok", "dlink": "https://dl.example.com/yt1s.mp4"}`)
	})

	source, err := testConfig(server).Match("https://www.youtube.com/shorts/dQw4w9WgXcQ")
	assert.NoError(err)
	resolved, err := source.Recon(context.Background())
	assert.NoError(err)
	assert.Equal("https://dl.example.com/yt1s.mp4", resolved.Info().DownloadURL)
}

func TestReconAllServicesExhausted(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	source, err := testConfig(server).Match("https://youtu.be/dQw4w9WgXcQ")
	assert.NoError(err)
	_, err = source.Recon(context.Background())
	assert.ErrorIs(err, clipfetch.ErrFetchFailed)
}

func TestReconTitleFallback(t *testing.T) {
	assert := assert.New(t)

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/ssyoutube/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"url":"%s"}`, videoplaybackURL)
	})

	source, err := testConfig(server).Match("https://youtu.be/dQw4w9WgXcQ")
	assert.NoError(err)
	resolved, err := source.Recon(context.Background())
	assert.NoError(err)
	assert.Equal("YouTube_dQw4w9WgXcQ", resolved.Info().Title)
}
