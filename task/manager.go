package task

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ytaudio/youtube"
)

var errDurationMismatch = errors.New("downloaded file failed duration verification")

// Job is what a worker needs to produce one MP3: the file lands at
// OutputDir/{Name}_{VideoID}.mp3.
type Job struct {
	TaskID    string
	VideoID   string
	Name      string
	OutputDir string
}

func (j Job) OutputPath() string {
	return filepath.Join(j.OutputDir, FileName(j.Name, j.VideoID))
}

// Launcher runs one download attempt and returns once the worker has exited.
// A nil error means the worker reported success.
type Launcher interface {
	Launch(ctx context.Context, job Job) error
}

type Verifier interface {
	Verify(ctx context.Context, path string, expectedSeconds int) bool
}

type Options struct {
	// MaxRetries is the number of retries after the first attempt, so a task
	// gets at most MaxRetries+1 attempts.
	MaxRetries     int
	MaxConcurrency int
	// WorkerTimeout bounds each attempt. Zero means no per-attempt limit.
	WorkerTimeout time.Duration
}

type Summary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Manager owns the download tasks of a run and drives each one through its
// retry loop, with at most MaxConcurrency tasks in flight.
type Manager struct {
	opts     Options
	launcher Launcher
	verifier Verifier
	log      *zap.Logger

	mu    sync.RWMutex
	tasks map[string]*Task
	order []string
}

func NewManager(opts Options, launcher Launcher, verifier Verifier, log *zap.Logger) (*Manager, error) {
	if opts.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be >= 0, got %d", opts.MaxRetries)
	}
	if opts.MaxConcurrency < 1 {
		return nil, fmt.Errorf("max concurrency must be >= 1, got %d", opts.MaxConcurrency)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		opts:     opts,
		launcher: launcher,
		verifier: verifier,
		log:      log,
		tasks:    make(map[string]*Task),
	}, nil
}

// Submit registers a pending task. Nothing runs until Run is called.
func (m *Manager) Submit(rec youtube.VideoRecord, outputPath string) Task {
	t := &Task{
		ID:         shortuuid.New(),
		Record:     rec,
		OutputPath: outputPath,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
	}

	m.mu.Lock()
	m.tasks[t.ID] = t
	m.order = append(m.order, t.ID)
	m.mu.Unlock()

	m.log.Debug("task submitted", zap.String("task_id", t.ID), zap.String("video_id", rec.ID))
	return *t
}

// Run processes every pending task and returns once all of them have settled.
// A failing task never stops its siblings. Cancelling ctx stops admission and
// aborts in-flight attempts; the affected tasks end as failed.
func (m *Manager) Run(ctx context.Context) Summary {
	var pending []string
	m.mu.RLock()
	for _, id := range m.order {
		if m.tasks[id].Status == StatusPending {
			pending = append(pending, id)
		}
	}
	m.mu.RUnlock()

	m.log.Info("starting downloads",
		zap.Int("tasks", len(pending)),
		zap.Int("concurrency", m.opts.MaxConcurrency),
		zap.Int("max_retries", m.opts.MaxRetries))

	var g errgroup.Group
	g.SetLimit(m.opts.MaxConcurrency)
	for _, id := range pending {
		id := id
		g.Go(func() error {
			m.processTask(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return m.Summary()
}

// processTask is the per-task state machine: each attempt launches a worker,
// waits for it to exit and verifies the file; anything short of a verified
// file counts against the attempt budget.
func (m *Manager) processTask(ctx context.Context, id string) {
	m.mu.Lock()
	t := m.tasks[id]
	rec, outputPath := t.Record, t.OutputPath
	t.StartedAt = time.Now()
	m.mu.Unlock()

	log := m.log.With(zap.String("task_id", id), zap.String("video_id", rec.ID), zap.String("name", rec.Name))
	job := Job{
		TaskID:    id,
		VideoID:   rec.ID,
		Name:      Sanitize(rec.Name),
		OutputDir: filepath.Dir(outputPath),
	}

	budget := m.opts.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= budget; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		m.update(id, func(t *Task) {
			t.Status = StatusRunning
			t.Attempts = attempt
		})
		log.Info("download attempt", zap.Int("attempt", attempt), zap.Int("budget", budget))

		outcome, err := m.attempt(ctx, job, outputPath, rec.DurationSeconds)
		m.update(id, func(t *Task) { t.LastOutcome = outcome })

		if outcome == OutcomeVerified {
			m.finish(id, StatusSucceeded, nil)
			log.Info("download verified", zap.Int("attempt", attempt))
			return
		}

		lastErr = err
		log.Warn("download attempt failed",
			zap.Int("attempt", attempt),
			zap.String("outcome", string(outcome)),
			zap.Error(err))
	}

	m.finish(id, StatusFailed, fmt.Errorf("giving up after %d attempt(s): %w", m.attemptsOf(id), lastErr))
	log.Error("download failed", zap.Error(lastErr))
}

func (m *Manager) attempt(ctx context.Context, job Job, outputPath string, expectedSeconds int) (Outcome, error) {
	attemptCtx := ctx
	if m.opts.WorkerTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, m.opts.WorkerTimeout)
		defer cancel()
	}

	if err := m.launcher.Launch(attemptCtx, job); err != nil {
		if attemptCtx.Err() != nil && ctx.Err() == nil {
			err = fmt.Errorf("worker timed out after %s: %w", m.opts.WorkerTimeout, err)
		}
		return OutcomeCrashed, err
	}

	if !m.verifier.Verify(ctx, outputPath, expectedSeconds) {
		return OutcomeMismatched, errDurationMismatch
	}
	return OutcomeVerified, nil
}

func (m *Manager) update(id string, fn func(t *Task)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.tasks[id])
}

func (m *Manager) attemptsOf(id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tasks[id].Attempts
}

func (m *Manager) finish(id string, status Status, err error) {
	m.update(id, func(t *Task) {
		t.Status = status
		t.CompletedAt = time.Now()
		if err != nil {
			t.Error = err.Error()
		}
	})
}

// Get returns a snapshot of one task.
func (m *Manager) Get(id string) (Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// List returns snapshots of all tasks in submission order.
func (m *Manager) List() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Task, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.tasks[id])
	}
	return out
}

func (m *Manager) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Summary{Total: len(m.tasks)}
	for _, t := range m.tasks {
		switch t.Status {
		case StatusPending:
			s.Pending++
		case StatusRunning:
			s.Running++
		case StatusSucceeded:
			s.Succeeded++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
