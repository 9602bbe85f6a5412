package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ytaudio/api"
	"ytaudio/config"
	"ytaudio/ffmpeg"
	"ytaudio/logger"
	"ytaudio/pipeline"
	"ytaudio/task"
	"ytaudio/worker"
	"ytaudio/youtube"
)

// runIDEnv carries the run ID into worker processes so their log lines can
// be correlated with the parent's.
const runIDEnv = "YTAUDIO_RUN_ID"

func runDownloads(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	baseLog, err := logger.New(loggerConfig(cfg))
	if err != nil {
		return err
	}
	defer baseLog.Sync()

	runID := uuid.NewString()
	log := baseLog.With(zap.String("run_id", runID))

	if _, err := exec.LookPath(cfg.FFProbeBin); err != nil {
		return fmt.Errorf("ffprobe binary not found or not in PATH: %s", cfg.FFProbeBin)
	}
	verifier := task.NewFileVerifier(ffmpeg.NewProber(cfg.FFProbeBin), cfg.DurationTolerance, log.Named("verify"))

	launcher, err := newLauncher(cfg, runID, log)
	if err != nil {
		return err
	}

	mgr, err := task.NewManager(task.Options{
		MaxRetries:     cfg.MaxRetries,
		MaxConcurrency: cfg.MaxConcurrency,
		WorkerTimeout:  cfg.WorkerTimeout,
	}, launcher, verifier, log.Named("task"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StatusAddr != "" {
		srv := api.NewServer(cfg.StatusAddr, api.SetupRouter(mgr, cfg.StatusKey, log.Named("api")), log.Named("api"))
		if err := srv.Start(); err != nil {
			return fmt.Errorf("starting status API: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("status API forced to shut down", zap.Error(err))
			}
		}()
	}

	client := youtube.NewClient(cfg.APIBaseURL, cfg.APIKey, cfg.HTTPTimeout, log.Named("youtube"))
	p := pipeline.New(pipeline.Options{
		InputPath: cfg.InputPath(),
		AudioDir:  cfg.AudioDir(),
		Single:    cfg.Single,
	}, client, verifier, mgr, log.Named("pipeline"))

	log.Info("starting run",
		zap.String("dataset", cfg.Dataset),
		zap.Bool("single", cfg.Single),
		zap.String("worker_mode", cfg.WorkerMode))

	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}
	if code := summary.ExitCode(); code != pipeline.ExitOK {
		return &exitCodeError{code: code}
	}
	return nil
}

func newLauncher(cfg *config.Config, runID string, log *zap.Logger) (task.Launcher, error) {
	// Built in both modes so a missing ffmpeg is a startup error.
	runner, err := newRunner(cfg, log.Named("ffmpeg"))
	if err != nil {
		return nil, err
	}

	if cfg.WorkerMode == config.WorkerModeInProcess {
		w := worker.New(worker.NewYouTubeSource(cfg.HTTPTimeout), runner, log.Named("worker"))
		return worker.InProcessLauncher{Worker: w}, nil
	}

	launcher, err := worker.NewProcessLauncher(os.Stderr)
	if err != nil {
		return nil, err
	}
	launcher.Env = []string{runIDEnv + "=" + runID}
	return launcher, nil
}
