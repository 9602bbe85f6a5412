package task

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProber returns durations keyed by path.
type stubProber struct {
	durations map[string]float64
	err       error
}

func (p *stubProber) Duration(ctx context.Context, path string) (float64, error) {
	if p.err != nil {
		return 0, p.err
	}
	d, ok := p.durations[path]
	if !ok {
		return 0, errors.New("no such probe result")
	}
	return d, nil
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("mp3"), 0644))
}

func TestFileVerifier(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song_id.mp3")
	touch(t, path)

	t.Run("missing file is never verified", func(t *testing.T) {
		v := NewFileVerifier(&stubProber{}, 2*time.Second, nil)
		for _, expected := range []int{0, 1, 3600} {
			assert.False(t, v.Verify(context.Background(), filepath.Join(dir, "nope.mp3"), expected))
		}
	})

	tests := []struct {
		name     string
		measured float64
		expected bool
	}{
		{"exact", 200, true},
		{"under by 2s", 198, true},
		{"over by 2s", 202, true},
		{"fractional inside", 201.7, true},
		{"over by 3s", 203, false},
		{"under by 3s", 197, false},
		{"truncated download", 45.2, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v := NewFileVerifier(&stubProber{durations: map[string]float64{path: test.measured}}, 2*time.Second, nil)
			assert.Equal(t, test.expected, v.Verify(context.Background(), path, 200))
		})
	}

	t.Run("probe error is a verification failure", func(t *testing.T) {
		v := NewFileVerifier(&stubProber{err: errors.New("moov atom not found")}, 2*time.Second, nil)
		assert.False(t, v.Verify(context.Background(), path, 200))
	})
}
