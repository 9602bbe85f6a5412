package task

import (
	"context"
	"math"
	"os"
	"time"

	"go.uber.org/zap"
)

// DurationProber measures the playable duration of a media file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// FileVerifier decides whether an output file is complete by comparing its
// measured duration with the expected one.
type FileVerifier struct {
	prober    DurationProber
	tolerance time.Duration
	log       *zap.Logger
}

func NewFileVerifier(prober DurationProber, tolerance time.Duration, log *zap.Logger) *FileVerifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileVerifier{prober: prober, tolerance: tolerance, log: log}
}

// Verify never fails hard: a missing file or a probe error both mean "not verified".
func (v *FileVerifier) Verify(ctx context.Context, path string, expectedSeconds int) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}

	measured, err := v.prober.Duration(ctx, path)
	if err != nil {
		v.log.Warn("duration probe failed", zap.String("path", path), zap.Error(err))
		return false
	}

	diff := math.Abs(measured - float64(expectedSeconds))
	ok := diff <= v.tolerance.Seconds()
	if !ok {
		v.log.Debug("duration mismatch",
			zap.String("path", path),
			zap.Float64("measured", measured),
			zap.Int("expected", expectedSeconds))
	}
	return ok
}
