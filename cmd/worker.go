package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ytaudio/config"
	"ytaudio/logger"
	"ytaudio/task"
	"ytaudio/worker"
)

// workerCmd is what ProcessLauncher executes. It exits 0 once the MP3 is in
// place and 1 otherwise, with diagnostics on stderr.
var workerCmd = &cobra.Command{
	Use:    "worker <video-id> <name> <output-dir>",
	Short:  "Download one video's audio (used internally)",
	Hidden: true,
	Args:   cobra.ExactArgs(3),
	RunE:   runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(workerLoggerConfig(cfg))
	if err != nil {
		return err
	}
	defer log.Sync()
	if runID := os.Getenv(runIDEnv); runID != "" {
		log = log.With(zap.String("run_id", runID))
	}
	log = log.Named("worker")

	runner, err := newRunner(cfg, log.Named("ffmpeg"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := worker.New(worker.NewYouTubeSource(cfg.HTTPTimeout), runner, log)
	job := task.Job{VideoID: args[0], Name: args[1], OutputDir: args[2]}
	if err := w.Run(ctx, job); err != nil {
		log.Warn("worker failed", zap.String("video_id", job.VideoID), zap.Error(err))
		return err
	}
	return nil
}
