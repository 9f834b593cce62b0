// Package pipeline wires fetch, extraction, and recording for one run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-counter/config"
	"github.com/aluiziolira/go-scrape-counter/models"
	"github.com/aluiziolira/go-scrape-counter/parser"
)

// Fetcher retrieves the raw page body for the configured URL.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Recorder persists one record per run.
type Recorder interface {
	Append(rec *models.Record) error
}

// Pipeline runs one scrape invocation end to end.
type Pipeline struct {
	cfg      *config.Config
	fetcher  Fetcher
	recorder Recorder
}

// NewPipeline builds a pipeline from its collaborators.
func NewPipeline(cfg *config.Config, fetcher Fetcher, recorder Recorder) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		fetcher:  fetcher,
		recorder: recorder,
	}
}

// Run performs a single fetch → extract → append cycle. The record timestamp
// is captured before the fetch so it marks the start of the attempt. A fetch
// failure produces no CSV row; a fetch that succeeds without an extractable
// counter still produces a row with an empty value cell.
func (p *Pipeline) Run(ctx context.Context) (*models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	rec := &models.Record{
		TimestampUTC: start.UTC().Truncate(time.Second),
		URL:          p.cfg.URL,
	}

	slog.Info("starting scrape",
		slog.String("url", p.cfg.URL),
		slog.String("out_csv", p.cfg.OutputFile),
		slog.Int("retries", p.cfg.MaxRetries),
		slog.Duration("backoff", p.cfg.RetryBackoff),
		slog.Duration("connect_timeout", p.cfg.ConnectTimeout),
		slog.Duration("read_timeout", p.cfg.ReadTimeout),
	)

	body, err := p.fetcher.Fetch(ctx)
	if err != nil {
		slog.Error("http request failed",
			slog.String("url", p.cfg.URL),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("fetch %s: %w", p.cfg.URL, err)
	}

	if value, ok := parser.ExtractCounter(body); ok {
		rec.Value = &value
		slog.Info("counter extracted", slog.Int("value", value))
	} else {
		slog.Warn("counter element not found or unparsable", slog.String("url", p.cfg.URL))
	}

	if err := p.recorder.Append(rec); err != nil {
		slog.Error("failed to write csv",
			slog.String("path", p.cfg.OutputFile),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("append record: %w", err)
	}

	slog.Info("scrape complete",
		slog.String("timestamp_utc", rec.Timestamp()),
		slog.Bool("counter_found", rec.Value != nil),
	)

	return &models.RunResult{
		Record:   rec,
		Duration: time.Since(start),
	}, nil
}
