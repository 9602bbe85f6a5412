package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(Config{Level: "warn"}, &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", zap.String("video_id", "abc"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "abc")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(Config{Level: "INFO", Format: FormatJSON}, &buf)
	require.NoError(t, err)

	log.Info("fetched playlist", zap.Int("videos", 3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fetched playlist", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, 3, entry["videos"])
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ytaudio.log")
	var buf bytes.Buffer
	log, err := newLogger(Config{Level: "info", File: path, MaxSize: 1}, &buf)
	require.NoError(t, err)

	log.Info("to both")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to both"`)
	assert.Contains(t, buf.String(), "to both")
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := newLogger(Config{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = newLogger(Config{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}
