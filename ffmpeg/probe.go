package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// Prober measures media duration with ffprobe.
type Prober struct {
	bin string
}

func NewProber(bin string) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{bin: bin}
}

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration returns the playable duration of path in seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	}

	cmd := exec.CommandContext(ctx, p.bin, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w: %s", path, err, stderr.String())
	}

	return parseProbeOutput(out.Bytes())
}

func parseProbeOutput(raw []byte) (float64, error) {
	var probeData ffprobeOutput
	if err := json.Unmarshal(raw, &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}

	if probeData.Format.Duration == "" {
		return 0, fmt.Errorf("duration not found in ffprobe output: %s", raw)
	}

	duration, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration string %q: %w", probeData.Format.Duration, err)
	}
	return duration, nil
}
