package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"ytaudio/task"
)

// ExitError reports a worker process that exited with a non-zero status.
type ExitError struct {
	Code     int
	LastLine string
}

func (e *ExitError) Error() string {
	if e.LastLine == "" {
		return fmt.Sprintf("worker exited with status %d", e.Code)
	}
	return fmt.Sprintf("worker exited with status %d: %s", e.Code, e.LastLine)
}

// ProcessLauncher runs every attempt in a fresh child process so a crashing
// download or transcoder cannot take the orchestrator down with it.
type ProcessLauncher struct {
	Executable string
	// Args are placed before the worker subcommand.
	Args []string
	// Env is appended to the parent environment.
	Env []string
	// Stderr receives the child's diagnostics as they are written.
	Stderr io.Writer
}

// NewProcessLauncher re-executes the running binary.
func NewProcessLauncher(stderr io.Writer) (*ProcessLauncher, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating own executable: %w", err)
	}
	return &ProcessLauncher{Executable: exe, Stderr: stderr}, nil
}

// WorkerArgs is the command line understood by the worker subcommand. Video
// IDs may start with '-', hence the separator.
func WorkerArgs(job task.Job) []string {
	return []string{"worker", "--", job.VideoID, job.Name, job.OutputDir}
}

func (l *ProcessLauncher) Launch(ctx context.Context, job task.Job) error {
	args := append(append([]string{}, l.Args...), WorkerArgs(job)...)
	cmd := exec.CommandContext(ctx, l.Executable, args...)
	cmd.Env = append(os.Environ(), l.Env...)

	sink := l.Stderr
	if sink == nil {
		sink = io.Discard
	}
	var captured strings.Builder
	cmd.Stdout = sink
	cmd.Stderr = io.MultiWriter(sink, &captured)

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode(), LastLine: lastLine(captured.String())}
	}
	return fmt.Errorf("starting worker: %w", err)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// InProcessLauncher runs attempts on the caller's goroutine. It trades crash
// isolation for a single address space; panics are turned into errors.
type InProcessLauncher struct {
	Worker *Worker
}

func (l InProcessLauncher) Launch(ctx context.Context, job task.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panicked: %v", r)
		}
	}()
	return l.Worker.Run(ctx, job)
}
