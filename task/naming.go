package task

import (
	"path/filepath"
	"regexp"

	"ytaudio/youtube"
)

var (
	nonWord   = regexp.MustCompile(`[^\w]+`)
	nonIDChar = regexp.MustCompile(`[^\w-]+`)
)

// Sanitize strips every character outside [0-9A-Za-z_].
func Sanitize(s string) string {
	return nonWord.ReplaceAllString(s, "")
}

// GroupDir returns the output directory for a record's group under audioDir.
// A group that sanitizes to nothing falls back to the singles bucket.
func GroupDir(audioDir, groupName string) string {
	group := Sanitize(groupName)
	if group == "" {
		group = youtube.SinglesGroup
	}
	return filepath.Join(audioDir, group)
}

// FileName is the deterministic MP3 name for a video. Characters outside the
// video ID alphabet are dropped so the ID can never add a path segment.
func FileName(name, videoID string) string {
	return Sanitize(name) + "_" + nonIDChar.ReplaceAllString(videoID, "") + ".mp3"
}

// OutputPath combines GroupDir and FileName.
func OutputPath(audioDir string, rec youtube.VideoRecord) string {
	return filepath.Join(GroupDir(audioDir, rec.GroupName), FileName(rec.Name, rec.ID))
}
