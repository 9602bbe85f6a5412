// Package pipeline drives one run: read the URL list, fetch metadata, decide
// what needs downloading and hand it to the task manager.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"ytaudio/task"
	"ytaudio/youtube"
)

// Exit codes of a finished run.
const (
	ExitOK       = 0
	ExitStartup  = 1
	ExitFailures = 2
)

type Fetcher interface {
	FetchVideo(ctx context.Context, url string) ([]youtube.VideoRecord, error)
	FetchPlaylist(ctx context.Context, url string) ([]youtube.VideoRecord, error)
}

type Options struct {
	InputPath string
	AudioDir  string
	// Single treats every URL as a video instead of a playlist.
	Single bool
}

type Summary struct {
	Fetched     int `json:"fetched"`
	FetchErrors int `json:"fetchErrors"`
	Skipped     int `json:"skipped"`
	Duplicates  int `json:"duplicates"`
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
}

func (s Summary) ExitCode() int {
	if s.FetchErrors > 0 || s.Failed > 0 {
		return ExitFailures
	}
	return ExitOK
}

type Pipeline struct {
	opts     Options
	fetcher  Fetcher
	verifier task.Verifier
	manager  *task.Manager
	log      *zap.Logger
}

func New(opts Options, fetcher Fetcher, verifier task.Verifier, manager *task.Manager, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{opts: opts, fetcher: fetcher, verifier: verifier, manager: manager, log: log}
}

// Run returns an error only when the URL list cannot be read. Everything
// after that is counted in the Summary.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	urls, err := ReadURLs(p.opts.InputPath)
	if err != nil {
		return summary, err
	}
	p.log.Info("loaded URL list", zap.String("path", p.opts.InputPath), zap.Int("urls", len(urls)))

	var records []youtube.VideoRecord
	for _, u := range urls {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		fetched, err := p.fetch(ctx, u)
		if err != nil {
			summary.FetchErrors++
			p.log.Error("failed to fetch metadata", zap.String("url", u), zap.Error(err))
			continue
		}
		records = append(records, fetched...)
	}
	summary.Fetched = len(records)

	submitted := p.plan(ctx, records, &summary)
	if submitted > 0 {
		result := p.manager.Run(ctx)
		summary.Succeeded = result.Succeeded
		summary.Failed += result.Failed
	}

	p.log.Info("run finished",
		zap.Int("fetched", summary.Fetched),
		zap.Int("fetch_errors", summary.FetchErrors),
		zap.Int("skipped", summary.Skipped),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (p *Pipeline) fetch(ctx context.Context, url string) ([]youtube.VideoRecord, error) {
	if p.opts.Single {
		return p.fetcher.FetchVideo(ctx, url)
	}
	return p.fetcher.FetchPlaylist(ctx, url)
}

// plan submits every record whose output is not already verified and
// returns how many were submitted.
func (p *Pipeline) plan(ctx context.Context, records []youtube.VideoRecord, summary *Summary) int {
	seen := make(map[string]bool)
	submitted := 0

	for _, rec := range records {
		log := p.log.With(zap.String("video_id", rec.ID), zap.String("name", rec.Name))
		out := task.OutputPath(p.opts.AudioDir, rec)

		if seen[out] {
			summary.Duplicates++
			log.Warn("dropping duplicate record", zap.String("path", out))
			continue
		}
		seen[out] = true

		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			summary.Failed++
			log.Error("failed to create output directory", zap.Error(err))
			continue
		}

		if _, err := os.Stat(out); err == nil {
			if p.verifier.Verify(ctx, out, rec.DurationSeconds) {
				summary.Skipped++
				log.Info("skipping, file already downloaded", zap.String("path", out))
				continue
			}
			log.Info("redownloading, existing file failed verification", zap.String("path", out))
		}

		p.manager.Submit(rec, out)
		submitted++
	}
	return submitted
}

// ReadURLs reads a newline-delimited URL list. Blank lines and lines
// starting with '#' are ignored.
func ReadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading URL list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading URL list: %w", err)
	}
	return urls, nil
}
