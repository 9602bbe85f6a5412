// ytaudio/config/config_test.go
package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytaudio/config"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"YTAUDIO_API_KEY", "YOUTUBE_API_KEY", "YTAUDIO_DATASET", "YTAUDIO_MAX_RETRIES",
		"YTAUDIO_MAX_CONCURRENCY", "YTAUDIO_WORKER_TIMEOUT", "YTAUDIO_MAX_SOURCE_SIZE",
		"YTAUDIO_SINGLE", "YTAUDIO_WORKER_MODE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("loads default values correctly", func(t *testing.T) {
		clearEnv(t)

		cfg, err := config.Load(nil)
		require.NoError(t, err)

		assert.Equal(t, "https://www.googleapis.com/youtube/v3", cfg.APIBaseURL)
		assert.Equal(t, "default", cfg.Dataset)
		assert.False(t, cfg.Single)
		assert.Equal(t, 3, cfg.MaxRetries)
		assert.Equal(t, 4, cfg.MaxConcurrency)
		assert.Equal(t, 2*time.Second, cfg.DurationTolerance)
		assert.Equal(t, config.WorkerModeProcess, cfg.WorkerMode)
		assert.Equal(t, 30*time.Minute, cfg.WorkerTimeout)
		assert.Equal(t, "ffmpeg", cfg.FFBin)
		assert.Equal(t, "ffprobe", cfg.FFProbeBin)
		assert.Equal(t, int64(1024*1024*1024), cfg.MaxSourceSize)
		assert.Equal(t, int64(200*1024*1024), cfg.ThrottleFreeMem)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("overrides defaults with environment variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("YTAUDIO_API_KEY", "key-from-env")
		t.Setenv("YTAUDIO_DATASET", "lofi")
		t.Setenv("YTAUDIO_MAX_RETRIES", "0")
		t.Setenv("YTAUDIO_WORKER_TIMEOUT", "90s")
		t.Setenv("YTAUDIO_MAX_SOURCE_SIZE", "50MB")
		t.Setenv("YTAUDIO_SINGLE", "true")

		cfg, err := config.Load(nil)
		require.NoError(t, err)

		assert.Equal(t, "key-from-env", cfg.APIKey)
		assert.Equal(t, "lofi", cfg.Dataset)
		assert.Equal(t, 0, cfg.MaxRetries)
		assert.Equal(t, 90*time.Second, cfg.WorkerTimeout)
		assert.Equal(t, int64(50*1024*1024), cfg.MaxSourceSize)
		assert.True(t, cfg.Single)
	})

	t.Run("accepts YOUTUBE_API_KEY", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("YOUTUBE_API_KEY", "legacy-key")

		cfg, err := config.Load(nil)
		require.NoError(t, err)
		assert.Equal(t, "legacy-key", cfg.APIKey)
	})

	t.Run("flags take precedence over environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("YTAUDIO_DATASET", "from-env")

		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.StringP("dataset", "d", "", "")
		fs.IntP("max-retries", "r", 0, "")
		fs.BoolP("single", "s", false, "")
		require.NoError(t, fs.Parse([]string{"-d", "from-flag", "-r", "7", "--single"}))

		cfg, err := config.Load(fs)
		require.NoError(t, err)
		assert.Equal(t, "from-flag", cfg.Dataset)
		assert.Equal(t, 7, cfg.MaxRetries)
		assert.True(t, cfg.Single)
	})

	t.Run("unset flags keep configured values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("YTAUDIO_MAX_CONCURRENCY", "9")

		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.IntP("concurrency", "c", 1, "")
		require.NoError(t, fs.Parse(nil))

		cfg, err := config.Load(fs)
		require.NoError(t, err)
		assert.Equal(t, 9, cfg.MaxConcurrency)
	})
}

func validConfig() *config.Config {
	return &config.Config{
		APIKey:         "key",
		Dataset:        "default",
		MaxRetries:     3,
		MaxConcurrency: 4,
		WorkerMode:     config.WorkerModeProcess,
		FFExtraArgs:    "-q:a 0",
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"missing api key", func(c *config.Config) { c.APIKey = "" }},
		{"negative retries", func(c *config.Config) { c.MaxRetries = -1 }},
		{"zero concurrency", func(c *config.Config) { c.MaxConcurrency = 0 }},
		{"negative tolerance", func(c *config.Config) { c.DurationTolerance = -time.Second }},
		{"unknown worker mode", func(c *config.Config) { c.WorkerMode = "threads" }},
		{"empty dataset", func(c *config.Config) { c.Dataset = "" }},
		{"reserved ffmpeg flag", func(c *config.Config) { c.FFExtraArgs = "-i /etc/passwd" }},
		{"shell metacharacters", func(c *config.Config) { c.FFExtraArgs = "-q:a 0; rm -rf /" }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := validConfig()
			test.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestPaths(t *testing.T) {
	c := &config.Config{DataDir: "data", Dataset: "lofi"}
	assert.Equal(t, filepath.Join("data", "lofi", "playlist_urls.txt"), c.InputPath())
	assert.Equal(t, filepath.Join("data", "lofi", "audio"), c.AudioDir())

	c.Single = true
	assert.Equal(t, filepath.Join("data", "lofi", "video_urls.txt"), c.InputPath())
}
