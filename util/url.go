// Package util holds small URL and filename helpers shared by the providers.
package util

import (
	"errors"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/clipfetch/clipfetch"
)

var (
	ErrNoFilename = errors.New("cannot extract valid filename")
)

var unsafeFilenameChars = regexp.MustCompile(`[/\\:*?"<>|\r\n]+`)

// FilenameFromURL extracts the final path element of a URL as a filename.
func FilenameFromURL(u *url.URL) (string, error) {
	if u == nil {
		return "", ErrNoFilename
	}
	trimmed := strings.Trim(u.Path, "/")
	if trimmed == "" {
		return "", ErrNoFilename
	}
	pathElements := strings.Split(trimmed, "/")
	filename := pathElements[len(pathElements)-1]
	if filename == "" {
		return "", ErrNoFilename
	}
	// Don't allow "filenames" that are just ".", "..", etc.
	if strings.ReplaceAll(filename, ".", "") == "" {
		return "", ErrNoFilename
	}
	return filename, nil
}

// MediaExt guesses a file extension from a media URL's path, defaulting to mp4
// when the path has none. Query strings are ignored.
func MediaExt(rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		if ext := strings.TrimPrefix(path.Ext(parsed.Path), "."); ext != "" {
			return ext
		}
	}
	return "mp4"
}

// SanitizeFilename replaces filesystem-hostile characters so a video title can
// be used as a file name.
func SanitizeFilename(name string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(name, "-")
	cleaned = strings.Trim(cleaned, " .")
	if cleaned == "" {
		return "video"
	}
	return cleaned
}

// VideoFilename builds the target filename for a resolved video as
// "Title.ID.ext", matching how downloads are named across providers.
func VideoFilename(info *clipfetch.VideoInfo) string {
	return strings.Join([]string{SanitizeFilename(info.Title), info.ID, MediaExt(info.DownloadURL)}, ".")
}
