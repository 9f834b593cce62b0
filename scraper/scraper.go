// Package scraper fetches the configured event page over HTTP with retries.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-counter/config"
	"github.com/gocolly/colly/v2"
)

// Scraper wraps a synchronous colly collector and the retry policy for the
// single page GET.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	policy    RetryPolicy
	Metrics   *Metrics

	sleep func(ctx context.Context, d time.Duration) error

	// per-attempt capture, written by the collector callbacks
	lastBody   string
	lastStatus int
	lastErr    error
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) *Scraper {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(cfg.ReadTimeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	s := &Scraper{
		cfg:       cfg,
		collector: collector,
		policy:    policyFromConfig(cfg),
		Metrics:   NewMetrics(),
		sleep:     sleepContext,
	}
	s.configureHandlers()
	return s
}

// Fetch issues one logical GET against the configured URL and returns the
// response body. Transport failures and retryable statuses (429, 500, 502,
// 503, 504) are retried with exponential backoff within the attempt budget;
// any other failure is returned immediately. An empty URL short-circuits
// before any network use.
func (s *Scraper) Fetch(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(s.cfg.URL) == "" {
		return "", ErrNoURL
	}

	var lastErr error
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			s.Metrics.IncRetries()
			delay := s.policy.Delay(attempt - 1)
			slog.Debug("retrying fetch",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			)
			if err := s.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		body, status, err := s.visit()
		if err == nil {
			return body, nil
		}

		classified := classifyError(err, status)
		s.Metrics.IncError(errorTypeLabel(classified))
		slog.Warn("fetch attempt failed",
			slog.String("url", s.cfg.URL),
			slog.Int("attempt", attempt),
			slog.Int("status", status),
			slog.Any("error", err),
		)

		lastErr = classified
		if !s.policy.Retryable(status, classified) {
			return "", classified
		}
	}
	return "", lastErr
}

// WithTransport replaces the collector's HTTP transport, e.g. with a mock
// round tripper.
func (s *Scraper) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
}

func (s *Scraper) visit() (string, int, error) {
	s.lastBody = ""
	s.lastStatus = 0
	s.lastErr = nil

	s.Metrics.IncRequest("started")
	err := s.collector.Visit(s.cfg.URL)
	s.collector.Wait()

	if s.lastErr != nil {
		return "", s.lastStatus, s.lastErr
	}
	if err != nil {
		return "", s.lastStatus, err
	}
	return s.lastBody, s.lastStatus, nil
}

func (s *Scraper) configureHandlers() {
	s.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-GB,en;q=0.9")
	})

	s.collector.OnResponse(func(r *colly.Response) {
		s.lastBody = string(r.Body)
		s.lastStatus = r.StatusCode
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			s.Metrics.ObserveDuration(time.Since(start))
		}
	})

	s.collector.OnError(func(r *colly.Response, err error) {
		s.lastErr = err
		if r != nil {
			s.lastStatus = r.StatusCode
		}
	})
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("%s", http.StatusText(statusCode))
		}
		return ErrHTTPStatus{Status: statusCode, Err: wrapped}
	}

	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
