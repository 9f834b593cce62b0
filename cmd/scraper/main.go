package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-counter/config"
	"github.com/aluiziolira/go-scrape-counter/pipeline"
	"github.com/aluiziolira/go-scrape-counter/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	os.Exit(run())
}

func run() int {
	urlFlag := flag.String("url", "", "Event URL to scrape")
	outFlag := flag.String("out", "", "CSV path to append to")
	userAgentFlag := flag.String("user-agent", "", "User-Agent header")
	connectTimeout := flag.Float64("connect-timeout", 0, "Connect timeout in seconds")
	readTimeout := flag.Float64("read-timeout", 0, "Read timeout in seconds")
	retries := flag.Int("retries", 0, "Attempt budget for the GET")
	backoff := flag.Float64("backoff", 0, "Retry backoff seed in seconds")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	ov := config.Overrides{
		URL:         *urlFlag,
		OutputFile:  *outFlag,
		UserAgent:   *userAgentFlag,
		MetricsAddr: *metricsAddr,
		Verbose:     *verbose,
	}
	if set["connect-timeout"] {
		ov.ConnectTimeout = connectTimeout
	}
	if set["read-timeout"] {
		ov.ReadTimeout = readTimeout
	}
	if set["retries"] {
		ov.Retries = retries
	}
	if set["backoff"] {
		ov.Backoff = backoff
	}

	cfg := config.Resolve(ov, config.EnvSnapshot(os.Environ()))

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scraper.NewScraper(cfg)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	p := pipeline.NewPipeline(cfg, s, pipeline.NewCSVRecorder(cfg.OutputFile))
	result, runErr := p.Run(ctx)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if runErr != nil {
		return 1
	}

	slog.Debug("run finished",
		slog.Duration("duration", result.Duration),
		slog.Bool("counter_found", result.Record.Value != nil),
	)
	return 0
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				a.Value = slog.TimeValue(a.Value.Time().UTC())
			}
			return a
		},
	}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
