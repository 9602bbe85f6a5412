package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"ytaudio/config"
	"ytaudio/pipeline"
	"ytaudio/task"
	"ytaudio/worker"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("invalid configuration")))
	assert.Equal(t, pipeline.ExitFailures, exitCode(&exitCodeError{code: pipeline.ExitFailures}))
	assert.Equal(t, 2, exitCode(fmt.Errorf("wrapped: %w", &exitCodeError{code: 2})))
}

func TestWorkerLoggerConfig_NeverWritesLogFile(t *testing.T) {
	cfg := &config.Config{LogLevel: "debug", LogFormat: "json", LogFile: "/var/log/ytaudio.log", LogMaxSize: 10}

	parent := loggerConfig(cfg)
	assert.Equal(t, "/var/log/ytaudio.log", parent.File)

	child := workerLoggerConfig(cfg)
	assert.Empty(t, child.File)
	assert.Equal(t, "debug", child.Level)
	assert.Equal(t, "json", child.Format)
	assert.Equal(t, "/var/log/ytaudio.log", cfg.LogFile)
}

func TestWorkerCmdArgs(t *testing.T) {
	assert.Error(t, workerCmd.Args(workerCmd, []string{"abc", "Song"}))
	assert.NoError(t, workerCmd.Args(workerCmd, []string{"abc", "Song", "/out"}))
}

// The launcher and the worker subcommand must agree on the command line.
func TestWorkerArgsResolveToWorkerCmd(t *testing.T) {
	args := worker.WorkerArgs(task.Job{VideoID: "-abc", Name: "Song", OutputDir: "/out/Mix"})

	found, rest, err := rootCmd.Find(args)
	assert.NoError(t, err)
	assert.Equal(t, workerCmd, found)

	assert.NoError(t, found.ParseFlags(rest))
	assert.Equal(t, []string{"-abc", "Song", "/out/Mix"}, found.Flags().Args())
}
