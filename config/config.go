package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Environment variable names respected during resolution.
const (
	EnvURL            = "SCRAPER_URL"
	EnvOutCSV         = "SCRAPER_OUT_CSV"
	EnvUserAgent      = "SCRAPER_USER_AGENT"
	EnvConnectTimeout = "SCRAPER_CONNECT_TIMEOUT"
	EnvReadTimeout    = "SCRAPER_READ_TIMEOUT"
	EnvRetries        = "SCRAPER_RETRIES"
	EnvBackoff        = "SCRAPER_BACKOFF"
	EnvMetricsAddr    = "SCRAPER_METRICS_ADDR"
)

// Config holds scraper configuration.
type Config struct {
	URL             string
	OutputFile      string
	UserAgent       string
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	MetricsAddr     string
	Verbose         bool
}

// DefaultConfig returns the defaults for the event page target.
func DefaultConfig() *Config {
	return &Config{
		URL:             "https://ungvetenskapssport.se/event/robotiklager-norrkoping-2026/",
		OutputFile:      "data/visitor_counter.csv",
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36",
		ConnectTimeout:  10 * time.Second,
		ReadTimeout:     30 * time.Second,
		MaxRetries:      3,
		RetryBackoff:    1500 * time.Millisecond,
		RetryBackoffMax: 30 * time.Second,
		MetricsAddr:     "",
		Verbose:         false,
	}
}

// Overrides carries explicit (command-line) values. Nil pointers and empty
// strings mean "not provided" and fall through to environment then defaults.
type Overrides struct {
	URL            string
	OutputFile     string
	UserAgent      string
	ConnectTimeout *float64
	ReadTimeout    *float64
	Retries        *int
	Backoff        *float64
	MetricsAddr    string
	Verbose        bool
}

// Resolve layers configuration sources per field: explicit override, then
// environment, then default. env is a snapshot; Resolve performs no I/O of
// its own. Numeric environment values that fail to parse fall through to the
// next-lower layer instead of failing the run.
func Resolve(ov Overrides, env map[string]string) *Config {
	cfg := DefaultConfig()

	cfg.URL = pickString(ov.URL, env[EnvURL], cfg.URL)
	cfg.OutputFile = pickString(ov.OutputFile, env[EnvOutCSV], cfg.OutputFile)
	cfg.UserAgent = pickString(ov.UserAgent, env[EnvUserAgent], cfg.UserAgent)
	cfg.MetricsAddr = pickString(ov.MetricsAddr, env[EnvMetricsAddr], cfg.MetricsAddr)
	cfg.Verbose = ov.Verbose

	cfg.ConnectTimeout = pickSeconds(ov.ConnectTimeout, env[EnvConnectTimeout], cfg.ConnectTimeout)
	cfg.ReadTimeout = pickSeconds(ov.ReadTimeout, env[EnvReadTimeout], cfg.ReadTimeout)
	cfg.RetryBackoff = pickSeconds(ov.Backoff, env[EnvBackoff], cfg.RetryBackoff)

	if ov.Retries != nil {
		cfg.MaxRetries = *ov.Retries
	} else if n, err := strconv.Atoi(env[EnvRetries]); err == nil {
		cfg.MaxRetries = n
	}

	return cfg
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}

	return nil
}

// EnvSnapshot converts os.Environ-style "KEY=VALUE" pairs into the map
// consumed by Resolve.
func EnvSnapshot(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				env[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return env
}

func pickString(explicit, envVal, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if envVal != "" {
		return envVal
	}
	return fallback
}

func pickSeconds(explicit *float64, envVal string, fallback time.Duration) time.Duration {
	if explicit != nil {
		return secondsToDuration(*explicit)
	}
	if f, err := strconv.ParseFloat(envVal, 64); err == nil {
		return secondsToDuration(f)
	}
	return fallback
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
