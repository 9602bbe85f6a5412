package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

var (
	ErrSourceTooLarge        = errors.New("source exceeds size limit")
	ErrInsufficientResources = errors.New("insufficient system resources")
)

// Options configures a Runner.
type Options struct {
	FFBin      string
	ExtraArgs  []string
	ScratchDir string

	// MaxSourceSize caps the scratch copy of the source media. Zero disables the cap.
	MaxSourceSize int64

	// ThrottleCPU is the idle CPU percentage required to start. Zero disables the check.
	ThrottleCPU      float64
	ThrottleFreeMem  int64
	ThrottleFreeDisk int64

	Logger *zap.Logger
}

type Runner struct {
	opts Options
	log  *zap.Logger
}

func NewRunner(opts Options) (*Runner, error) {
	if _, err := exec.LookPath(opts.FFBin); err != nil {
		return nil, fmt.Errorf("ffmpeg binary not found or not in PATH: %s", opts.FFBin)
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = os.TempDir()
	}
	if err := os.MkdirAll(opts.ScratchDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create scratch directory: %w", err)
	}
	return newRunner(opts), nil
}

func newRunner(opts Options) *Runner {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{opts: opts, log: log}
}

// PrepareInput copies src into a scratch file and returns its path together
// with a cleanup function that removes it. The cleanup function is always
// safe to call, including after an error.
func (r *Runner) PrepareInput(src io.Reader, prefix string) (string, func() error, error) {
	tmpFile, err := os.CreateTemp(r.opts.ScratchDir, prefix+"_source_*")
	if err != nil {
		return "", func() error { return nil }, err
	}

	cleanup := func() error {
		tmpFile.Close()
		if err := os.Remove(tmpFile.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	reader := src
	if r.opts.MaxSourceSize > 0 {
		// Use a LimitedReader to enforce max input size
		reader = &io.LimitedReader{R: src, N: r.opts.MaxSourceSize + 1}
	}

	written, err := io.Copy(tmpFile, reader)
	if err != nil {
		return "", cleanup, fmt.Errorf("failed to write scratch file: %w", err)
	}
	if r.opts.MaxSourceSize > 0 && written > r.opts.MaxSourceSize {
		return "", cleanup, fmt.Errorf("%w: limit is %d bytes", ErrSourceTooLarge, r.opts.MaxSourceSize)
	}

	// Need to close here to ensure data is flushed before ffmpeg reads it
	if err := tmpFile.Close(); err != nil {
		return "", cleanup, err
	}
	return tmpFile.Name(), cleanup, nil
}

// Transcode converts inputPath to MP3 at outputPath. ffmpeg writes to a
// sibling .part file that is renamed into place only on success, so a
// crashed transcode never leaves a plausible-looking output behind.
// It returns the combined stdout/stderr of ffmpeg.
func (r *Runner) Transcode(ctx context.Context, inputPath, outputPath string) (string, error) {
	partPath := outputPath + ".part"
	args := r.buildArgs(inputPath, partPath)

	cmd := exec.CommandContext(ctx, r.opts.FFBin, args...)
	var outputBuf bytes.Buffer
	cmd.Stdout = &outputBuf
	cmd.Stderr = &outputBuf

	r.log.Debug("executing ffmpeg",
		zap.String("bin", r.opts.FFBin),
		zap.String("args", strings.Join(args, " ")))

	err := cmd.Run()
	outputLog := outputBuf.String()

	if err != nil {
		os.Remove(partPath)
		if ctx.Err() != nil {
			return outputLog, ctx.Err()
		}
		return outputLog, fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	if err := os.Rename(partPath, outputPath); err != nil {
		os.Remove(partPath)
		return outputLog, fmt.Errorf("failed to move transcoded file into place: %w", err)
	}
	return outputLog, nil
}

func (r *Runner) buildArgs(inputPath, partPath string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-vn",
		"-codec:a", "libmp3lame",
	}
	args = append(args, r.opts.ExtraArgs...)
	// The .part suffix hides the container from ffmpeg, so name it explicitly.
	return append(args, "-f", "mp3", partPath)
}

// CheckResources verifies that the system has enough free resources to start a new job.
func (r *Runner) CheckResources() error {
	if r.opts.ThrottleCPU > 0 {
		p, err := cpu.Percent(time.Second, false)
		if err != nil {
			r.log.Warn("could not get CPU usage", zap.Error(err))
		} else if len(p) > 0 && p[0] > (100.0-r.opts.ThrottleCPU) {
			return fmt.Errorf("%w: not enough idle CPU. Current usage: %.2f%%, Idle threshold: %.2f%%",
				ErrInsufficientResources, p[0], r.opts.ThrottleCPU)
		}
	}

	if r.opts.ThrottleFreeMem > 0 {
		vm, err := mem.VirtualMemory()
		if err != nil {
			r.log.Warn("could not get memory usage", zap.Error(err))
		} else if vm.Available < uint64(r.opts.ThrottleFreeMem) {
			return fmt.Errorf("%w: not enough free memory. Available: %d, Required: %d",
				ErrInsufficientResources, vm.Available, r.opts.ThrottleFreeMem)
		}
	}

	if r.opts.ThrottleFreeDisk > 0 {
		d, err := disk.Usage(r.opts.ScratchDir)
		if err != nil {
			r.log.Warn("could not get disk usage", zap.String("dir", r.opts.ScratchDir), zap.Error(err))
		} else if d.Free < uint64(r.opts.ThrottleFreeDisk) {
			return fmt.Errorf("%w: not enough free disk space. Available: %d, Required: %d",
				ErrInsufficientResources, d.Free, r.opts.ThrottleFreeDisk)
		}
	}
	return nil
}
