package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ytaudio/config"
	"ytaudio/ffmpeg"
	"ytaudio/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ytaudio",
	Short: "Download YouTube audio as verified MP3 files.",
	Long: `ytaudio reads a list of YouTube playlist (or video) URLs from
DATA_DIR/DATASET, fetches their metadata from the YouTube Data API and
downloads every video's audio as an MP3 whose duration has been verified.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDownloads,
}

func init() {
	f := rootCmd.Flags()
	f.StringP("dataset", "d", "default", "dataset directory under DATA_DIR")
	f.BoolP("single", "s", false, "treat URLs as single videos instead of playlists")
	f.IntP("max-retries", "r", 3, "retries after the first attempt of each download")
	f.IntP("concurrency", "c", 4, "maximum downloads in flight")
	f.String("worker-mode", config.WorkerModeProcess, "run workers as a separate \"process\" or \"inprocess\"")
	f.String("status-addr", "", "serve the status API on this address")
	f.String("data-dir", "./data", "root of all datasets")

	rootCmd.AddCommand(workerCmd)
}

// exitCodeError ends the process with a specific status and no message.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var codeErr *exitCodeError
	if errors.As(err, &codeErr) {
		return codeErr.code
	}
	return 1
}

// Execute executes the root command.
func Execute() {
	err := rootCmd.Execute()
	var codeErr *exitCodeError
	if err != nil && !errors.As(err, &codeErr) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}

func loggerConfig(cfg *config.Config) logger.Config {
	return logger.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
	}
}

// workerLoggerConfig drops the log file: lumberjack rotation assumes a single
// writing process, so only the parent owns the file. Worker stderr reaches
// it through ProcessLauncher.
func workerLoggerConfig(cfg *config.Config) logger.Config {
	lc := loggerConfig(cfg)
	lc.File = ""
	return lc
}

func newRunner(cfg *config.Config, log *zap.Logger) (*ffmpeg.Runner, error) {
	extraArgs, err := ffmpeg.SplitCommand(cfg.FFExtraArgs)
	if err != nil {
		return nil, err
	}
	if err := ffmpeg.ValidateExtraArgs(extraArgs); err != nil {
		return nil, err
	}
	return ffmpeg.NewRunner(ffmpeg.Options{
		FFBin:            cfg.FFBin,
		ExtraArgs:        extraArgs,
		ScratchDir:       cfg.ScratchDir,
		MaxSourceSize:    cfg.MaxSourceSize,
		ThrottleCPU:      cfg.ThrottleCPU,
		ThrottleFreeMem:  cfg.ThrottleFreeMem,
		ThrottleFreeDisk: cfg.ThrottleFreeDisk,
		Logger:           log,
	})
}
