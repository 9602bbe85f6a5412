// ytaudio/config/config.go
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"ytaudio/ffmpeg"
)

const (
	WorkerModeProcess   = "process"
	WorkerModeInProcess = "inprocess"
)

type Config struct {
	APIKey      string        `mapstructure:"API_KEY"`
	APIBaseURL  string        `mapstructure:"API_BASE_URL"`
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"`

	DataDir string `mapstructure:"DATA_DIR"`
	Dataset string `mapstructure:"DATASET"`
	Single  bool   `mapstructure:"SINGLE"`

	MaxRetries        int           `mapstructure:"MAX_RETRIES"`
	MaxConcurrency    int           `mapstructure:"MAX_CONCURRENCY"`
	DurationTolerance time.Duration `mapstructure:"DURATION_TOLERANCE"`
	WorkerMode        string        `mapstructure:"WORKER_MODE"`
	WorkerTimeout     time.Duration `mapstructure:"WORKER_TIMEOUT"`

	FFBin         string `mapstructure:"FF_BIN"`
	FFProbeBin    string `mapstructure:"FFPROBE_BIN"`
	FFExtraArgs   string `mapstructure:"FF_EXTRA_ARGS"`
	ScratchDir    string `mapstructure:"SCRATCH_DIR"`
	MaxSourceSize int64  `mapstructure:"MAX_SOURCE_SIZE"`

	ThrottleCPU      float64 `mapstructure:"THROTTLE_CPU"`
	ThrottleFreeMem  int64   `mapstructure:"THROTTLE_FREEMEM"`
	ThrottleFreeDisk int64   `mapstructure:"THROTTLE_FREEDISK"`

	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFormat     string `mapstructure:"LOG_FORMAT"`
	LogFile       string `mapstructure:"LOG_FILE"`
	LogMaxSize    int    `mapstructure:"LOG_MAX_SIZE"`
	LogMaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAge     int    `mapstructure:"LOG_MAX_AGE"`

	StatusAddr string `mapstructure:"STATUS_ADDR"`
	StatusKey  string `mapstructure:"STATUS_KEY"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"dataset":     "DATASET",
	"single":      "SINGLE",
	"max-retries": "MAX_RETRIES",
	"concurrency": "MAX_CONCURRENCY",
	"worker-mode": "WORKER_MODE",
	"status-addr": "STATUS_ADDR",
	"data-dir":    "DATA_DIR",
}

// stringToDurationHookFunc is a custom Viper hook for parsing Go's duration strings.
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc is a custom Viper hook for parsing human-readable size strings.
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		var size datasize.ByteSize
		err := size.UnmarshalText([]byte(data.(string)))
		if err != nil {
			// Not a valid size string, let other parsers handle it.
			return data, nil
		}

		return int64(size.Bytes()), nil
	}
}

// Load builds the configuration from defaults, an optional config file, a .env
// file, the environment and (when fs is non-nil) command line flags, in
// increasing order of precedence.
func Load(fs *pflag.FlagSet) (*Config, error) {
	// godotenv never overrides variables that are already set.
	_ = godotenv.Load()

	vp := viper.New()

	vp.SetDefault("API_KEY", "")
	vp.SetDefault("API_BASE_URL", "https://www.googleapis.com/youtube/v3")
	vp.SetDefault("HTTP_TIMEOUT", "30s")
	vp.SetDefault("DATA_DIR", "./data")
	vp.SetDefault("DATASET", "default")
	vp.SetDefault("SINGLE", false)
	vp.SetDefault("MAX_RETRIES", 3)
	vp.SetDefault("MAX_CONCURRENCY", 4)
	vp.SetDefault("DURATION_TOLERANCE", "2s")
	vp.SetDefault("WORKER_MODE", WorkerModeProcess)
	vp.SetDefault("WORKER_TIMEOUT", "30m")
	vp.SetDefault("FF_BIN", "ffmpeg")
	vp.SetDefault("FFPROBE_BIN", "ffprobe")
	vp.SetDefault("FF_EXTRA_ARGS", "-q:a 0")
	vp.SetDefault("SCRATCH_DIR", "")
	vp.SetDefault("MAX_SOURCE_SIZE", "1GB")
	vp.SetDefault("THROTTLE_CPU", 0.0)
	vp.SetDefault("THROTTLE_FREEMEM", "200MB")
	vp.SetDefault("THROTTLE_FREEDISK", "200MB")
	vp.SetDefault("LOG_LEVEL", "info")
	vp.SetDefault("LOG_FORMAT", "console")
	vp.SetDefault("LOG_FILE", "")
	vp.SetDefault("LOG_MAX_SIZE", 10)
	vp.SetDefault("LOG_MAX_BACKUPS", 3)
	vp.SetDefault("LOG_MAX_AGE", 28)
	vp.SetDefault("STATUS_ADDR", "")
	vp.SetDefault("STATUS_KEY", "")

	vp.SetConfigName("ytaudio_config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")
	vp.AddConfigPath("/etc/ytaudio/")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	vp.SetEnvPrefix("YTAUDIO")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	// YOUTUBE_API_KEY is what existing .env files carry.
	if err := vp.BindEnv("API_KEY", "YTAUDIO_API_KEY", "YOUTUBE_API_KEY"); err != nil {
		return nil, err
	}

	if fs != nil {
		for name, key := range flagKeys {
			if flag := fs.Lookup(name); flag != nil {
				if err := vp.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
		),
	))
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings a download run depends on. The worker
// subcommand does not need an API key and skips it.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("API key is required: set YOUTUBE_API_KEY")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max concurrency must be >= 1, got %d", c.MaxConcurrency)
	}
	if c.DurationTolerance < 0 {
		return fmt.Errorf("duration tolerance must not be negative, got %s", c.DurationTolerance)
	}
	switch c.WorkerMode {
	case WorkerModeProcess, WorkerModeInProcess:
	default:
		return fmt.Errorf("unknown worker mode %q", c.WorkerMode)
	}
	if c.Dataset == "" {
		return errors.New("dataset must not be empty")
	}

	args, err := ffmpeg.SplitCommand(c.FFExtraArgs)
	if err != nil {
		return err
	}
	return ffmpeg.ValidateExtraArgs(args)
}

// InputPath is the newline-delimited URL list for the configured dataset and mode.
func (c *Config) InputPath() string {
	name := "playlist_urls.txt"
	if c.Single {
		name = "video_urls.txt"
	}
	return filepath.Join(c.DataDir, c.Dataset, name)
}

// AudioDir is the root under which per-group output directories are created.
func (c *Config) AudioDir() string {
	return filepath.Join(c.DataDir, c.Dataset, "audio")
}
