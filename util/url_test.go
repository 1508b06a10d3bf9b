package util

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clipfetch/clipfetch"
)

func TestFilenameFromURL(t *testing.T) {
	assert := assert.New(t)

	for input, expected := range map[string]string{
		"https://example.com/foo/bar.mp4":     "bar.mp4",
		"https://example.com/foo/bar.mp4?x=1": "bar.mp4",
		"https://example.com/bar.mp4/":        "bar.mp4",
	} {
		parsed, err := url.Parse(input)
		assert.NoError(err)
		filename, err := FilenameFromURL(parsed)
		assert.NoError(err)
		assert.Equal(expected, filename, "url: %s", input)
	}

	for _, input := range []string{
		"https://example.com",
		"https://example.com/",
		"https://example.com/..",
	} {
		parsed, err := url.Parse(input)
		assert.NoError(err)
		_, err = FilenameFromURL(parsed)
		assert.ErrorIs(err, ErrNoFilename, "url: %s", input)
	}

	_, err := FilenameFromURL(nil)
	assert.ErrorIs(err, ErrNoFilename)
}

func TestMediaExt(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("mp4", MediaExt("https://cdn.example.com/v/video.mp4"))
	assert.Equal("m3u8", MediaExt("https://cdn.example.com/v/index.m3u8?auth=abc"))
	assert.Equal("mp4", MediaExt("https://cdn.example.com/v/stream"))
	assert.Equal("mp4", MediaExt("://not a url"))
}

func TestSanitizeFilename(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("A Perfectly Fine Title", SanitizeFilename("A Perfectly Fine Title"))
	assert.Equal("a-b-c", SanitizeFilename(`a/b\c`))
	assert.Equal("what- now", SanitizeFilename("what? now."))
	assert.Equal("video", SanitizeFilename("  .. "))
	assert.Equal("video", SanitizeFilename(""))
}

func TestVideoFilename(t *testing.T) {
	assert := assert.New(t)

	info := &clipfetch.VideoInfo{
		ID:          "x1abc23",
		Title:       "Some: Video?",
		Platform:    clipfetch.PlatformDailymotion,
		DownloadURL: "https://cdn.example.com/v/index.m3u8",
	}
	assert.Equal("Some- Video-.x1abc23.m3u8", VideoFilename(info))
}
