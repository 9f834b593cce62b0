package scraper

import (
	"time"

	"github.com/aluiziolira/go-scrape-counter/config"
)

// retryableStatuses lists the response codes worth another attempt. Any
// other non-2xx status fails the fetch immediately.
var retryableStatuses = map[int]struct{}{
	429: {},
	500: {},
	502: {},
	503: {},
	504: {},
}

// RetryPolicy bounds the fetch attempt loop. MaxAttempts covers the initial
// request, so MaxAttempts=1 means no retries at all.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	BackoffMax  time.Duration
}

func policyFromConfig(cfg *config.Config) RetryPolicy {
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	return RetryPolicy{
		MaxAttempts: attempts,
		Backoff:     cfg.RetryBackoff,
		BackoffMax:  cfg.RetryBackoffMax,
	}
}

// Delay returns the wait before retry number n (1-based): Backoff doubled
// per retry, clamped by BackoffMax.
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry <= 0 {
		retry = 1
	}

	base := p.Backoff
	if base <= 0 {
		return 0
	}

	delay := base * time.Duration(1<<(retry-1))
	if max := p.BackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

// Retryable reports whether a failed attempt should be repeated. Transport
// failures (no HTTP status) always qualify; HTTP failures qualify only for
// the designated status set.
func (p RetryPolicy) Retryable(status int, err error) bool {
	if err == nil {
		return false
	}
	if status == 0 {
		return true
	}
	_, ok := retryableStatuses[status]
	return ok
}
