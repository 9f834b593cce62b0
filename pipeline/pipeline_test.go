package pipeline

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-counter/config"
	"github.com/aluiziolira/go-scrape-counter/models"
	"github.com/aluiziolira/go-scrape-counter/scraper"
	"github.com/jarcoal/httpmock"
)

const eventPage = `<html><body>
<div class="wpem-event-details"><h1>Robotics camp</h1></div>
<div class="wpem-viewed-event">205 205 people viewed this event.</div>
</body></html>`

func e2eConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.URL = "http://example.test/event"
	cfg.OutputFile = filepath.Join(t.TempDir(), "data", "visitor_counter.csv")
	cfg.MaxRetries = 1
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func registerPage(transport *httpmock.MockTransport, url string, responder httpmock.Responder) {
	transport.RegisterResponder("GET", url, responder)
	transport.RegisterResponder("GET", strings.TrimSuffix(url, "/"), responder)
}

func TestPipelineRunEndToEnd(t *testing.T) {
	cfg := e2eConfig(t)

	transport := httpmock.NewMockTransport()
	registerPage(transport, cfg.URL, httpmock.NewStringResponder(http.StatusOK, eventPage))

	s := scraper.NewScraper(cfg)
	s.WithTransport(transport)

	p := NewPipeline(cfg, s, NewCSVRecorder(cfg.OutputFile))
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Record.Value == nil || *result.Record.Value != 205 {
		t.Fatalf("record value=%v, want 205", result.Record.Value)
	}

	rows := readCSV(t, cfg.OutputFile)
	if len(rows) != 2 {
		t.Fatalf("rows=%d, want header + 1 record", len(rows))
	}
	if rows[1][1] != "205" {
		t.Fatalf("csv value=%q, want 205", rows[1][1])
	}
	if rows[1][2] != cfg.URL {
		t.Fatalf("csv url=%q, want %q", rows[1][2], cfg.URL)
	}
}

func TestPipelineRunFetchFailureWritesNoRow(t *testing.T) {
	cfg := e2eConfig(t)
	cfg.MaxRetries = 1

	// Pre-existing history must stay untouched on a failed run.
	seed := &models.Record{
		TimestampUTC: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Value:        intPtr(199),
		URL:          cfg.URL,
	}
	if err := NewCSVRecorder(cfg.OutputFile).Append(seed); err != nil {
		t.Fatalf("seed csv: %v", err)
	}
	before, err := os.ReadFile(cfg.OutputFile)
	if err != nil {
		t.Fatalf("read seed csv: %v", err)
	}

	transport := httpmock.NewMockTransport()
	registerPage(transport, cfg.URL, httpmock.NewErrorResponder(&net.DNSError{IsTimeout: true}))

	s := scraper.NewScraper(cfg)
	s.WithTransport(transport)

	p := NewPipeline(cfg, s, NewCSVRecorder(cfg.OutputFile))
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatalf("expected fetch failure")
	}

	after, err := os.ReadFile(cfg.OutputFile)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("csv changed on fetch failure:\nbefore=%q\nafter=%q", before, after)
	}
}

func TestPipelineRunCounterMissingStillRecords(t *testing.T) {
	cfg := e2eConfig(t)

	page := `<html><body><div class="wpem-event-details">no counter widget here</div></body></html>`
	transport := httpmock.NewMockTransport()
	registerPage(transport, cfg.URL, httpmock.NewStringResponder(http.StatusOK, page))

	s := scraper.NewScraper(cfg)
	s.WithTransport(transport)

	p := NewPipeline(cfg, s, NewCSVRecorder(cfg.OutputFile))
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v (extraction miss must not fail the pipeline)", err)
	}
	if result.Record.Value != nil {
		t.Fatalf("record value=%v, want absent", *result.Record.Value)
	}

	rows := readCSV(t, cfg.OutputFile)
	if len(rows) != 2 {
		t.Fatalf("rows=%d, want header + 1 record", len(rows))
	}
	if rows[1][1] != "" {
		t.Fatalf("csv value=%q, want empty cell", rows[1][1])
	}
}

type stubFetcher struct {
	body string
	err  error
}

func (f *stubFetcher) Fetch(context.Context) (string, error) {
	return f.body, f.err
}

type failingRecorder struct{}

func (failingRecorder) Append(*models.Record) error {
	return errors.New("disk full")
}

func TestPipelineRunRecorderFailure(t *testing.T) {
	cfg := e2eConfig(t)

	p := NewPipeline(cfg, &stubFetcher{body: eventPage}, failingRecorder{})
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatalf("expected persistence failure to surface")
	}
}

func TestPipelineRunTimestampPrecedesFetch(t *testing.T) {
	cfg := e2eConfig(t)

	before := time.Now().UTC().Truncate(time.Second)
	p := NewPipeline(cfg, &stubFetcher{body: eventPage}, NewCSVRecorder(cfg.OutputFile))
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	after := time.Now().UTC()

	ts := result.Record.TimestampUTC
	if ts.Before(before) || ts.After(after) {
		t.Fatalf("timestamp %v outside run window [%v, %v]", ts, before, after)
	}
	if ts.Nanosecond() != 0 {
		t.Fatalf("timestamp must have seconds precision, got %v", ts)
	}
}
