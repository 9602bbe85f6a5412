package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url      string
		expected string
		ok       bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?si=share", "dQw4w9WgXcQ", true},
		{"https://youtu.be/abc/x", "abc", true},
		{"https://youtu.be/abc#t=10", "abc", true},
		{"https://www.youtube.com/watch?v=a-b_c/../../etc", "a-b_c", true},
		{"https://youtu.be/", "", false},
		{"https://www.youtube.com/playlist?list=PL123", "", false},
	}

	for _, test := range tests {
		id, err := ExtractVideoID(test.url)
		if test.ok {
			assert.NoError(t, err, test.url)
			assert.Equal(t, test.expected, id, test.url)
		} else {
			assert.ErrorIs(t, err, ErrNoVideoID, test.url)
		}
	}
}

func TestExtractPlaylistID(t *testing.T) {
	id, err := ExtractPlaylistID("https://www.youtube.com/playlist?list=PLabc123")
	assert.NoError(t, err)
	assert.Equal(t, "PLabc123", id)

	id, err = ExtractPlaylistID("https://www.youtube.com/watch?v=x&list=PLxyz&index=2")
	assert.NoError(t, err)
	assert.Equal(t, "PLxyz", id)

	_, err = ExtractPlaylistID("https://www.youtube.com/watch?v=x")
	assert.ErrorIs(t, err, ErrNoPlaylistID)

	_, err = ExtractPlaylistID("://bad")
	assert.Error(t, err)
}
