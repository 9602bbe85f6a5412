package youtube

import (
	"errors"
	"net/url"
	"regexp"
)

var (
	ErrNoVideoID    = errors.New("no video id in URL")
	ErrNoPlaylistID = errors.New("no playlist id in URL")
)

var videoIDPattern = regexp.MustCompile(`(?:v=|youtu\.be/)([\w-]+)`)

// ExtractVideoID accepts watch URLs (…?v=ID) and short links (youtu.be/ID).
// Only the [A-Za-z0-9_-] run after the marker is taken, so the ID is always
// safe as a path segment.
func ExtractVideoID(raw string) (string, error) {
	m := videoIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", ErrNoVideoID
	}
	return m[1], nil
}

// ExtractPlaylistID returns the list query parameter of a playlist URL.
func ExtractPlaylistID(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	id := u.Query().Get("list")
	if id == "" {
		return "", ErrNoPlaylistID
	}
	return id, nil
}
