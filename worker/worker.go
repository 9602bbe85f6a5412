// Package worker performs one download-and-transcode attempt for one video,
// either inside the orchestrating process or as a child process.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	yt "github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"ytaudio/task"
)

var ErrNoAudioFormat = errors.New("no audio-only format available")

// StreamSource opens the best audio-only stream of a video.
type StreamSource interface {
	Open(ctx context.Context, videoID string) (io.ReadCloser, int64, error)
}

// Transcoder is the slice of ffmpeg.Runner the worker needs.
type Transcoder interface {
	CheckResources() error
	PrepareInput(src io.Reader, prefix string) (string, func() error, error)
	Transcode(ctx context.Context, inputPath, outputPath string) (string, error)
}

type Worker struct {
	source     StreamSource
	transcoder Transcoder
	log        *zap.Logger
}

func New(source StreamSource, transcoder Transcoder, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{source: source, transcoder: transcoder, log: log}
}

// Run downloads the audio of job.VideoID and writes job.OutputPath().
//
// The source is copied to a scratch file in full before ffmpeg sees it;
// piping a live stream into ffmpeg breaks on long media. The scratch file is
// removed whatever happens, and a failed removal does not change the result.
func (w *Worker) Run(ctx context.Context, job task.Job) error {
	log := w.log.With(zap.String("video_id", job.VideoID), zap.String("name", job.Name))

	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := w.transcoder.CheckResources(); err != nil {
		return err
	}

	log.Info("starting download")

	stream, size, err := w.source.Open(ctx, job.VideoID)
	if err != nil {
		return fmt.Errorf("opening audio stream: %w", err)
	}
	defer stream.Close()

	scratch, cleanup, err := w.transcoder.PrepareInput(newProgressReader(stream, size, log), job.VideoID)
	defer func() {
		if cerr := cleanup(); cerr != nil {
			log.Warn("failed to remove scratch file", zap.String("path", scratch), zap.Error(cerr))
		}
	}()
	if err != nil {
		return fmt.Errorf("downloading audio: %w", err)
	}
	stream.Close()

	output, err := w.transcoder.Transcode(ctx, scratch, job.OutputPath())
	if err != nil {
		log.Error("transcode failed", zap.String("ffmpeg_output", strings.TrimSpace(output)), zap.Error(err))
		return fmt.Errorf("transcoding: %w", err)
	}

	log.Info("finished downloading", zap.String("path", job.OutputPath()))
	return nil
}

// YouTubeSource resolves streams with github.com/kkdai/youtube.
type YouTubeSource struct {
	client *yt.Client
}

func NewYouTubeSource(timeout time.Duration) *YouTubeSource {
	return &YouTubeSource{
		client: &yt.Client{HTTPClient: &http.Client{Timeout: timeout}},
	}
}

func (s *YouTubeSource) Open(ctx context.Context, videoID string) (io.ReadCloser, int64, error) {
	video, err := s.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, 0, fmt.Errorf("resolving video %s: %w", videoID, err)
	}

	format, err := bestAudioFormat(video.Formats)
	if err != nil {
		return nil, 0, fmt.Errorf("video %s: %w", videoID, err)
	}

	stream, size, err := s.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, 0, fmt.Errorf("starting stream: %w", err)
	}
	return stream, size, nil
}

// bestAudioFormat picks the audio-only format with the highest bitrate.
func bestAudioFormat(formats yt.FormatList) (*yt.Format, error) {
	var best *yt.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil || bitrate(f) > bitrate(best) {
			best = f
		}
	}
	if best == nil {
		return nil, ErrNoAudioFormat
	}
	return best, nil
}

func bitrate(f *yt.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}
