package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"mercator-hq/chronicle/pkg/cli"
	"mercator-hq/chronicle/pkg/config"
	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/query"
	"mercator-hq/chronicle/pkg/history/storage"
	"mercator-hq/chronicle/pkg/retention"
	"mercator-hq/chronicle/pkg/telemetry/logging"
	"mercator-hq/chronicle/pkg/telemetry/metrics"
	"mercator-hq/chronicle/pkg/telemetry/tracing"
)

// app holds every component built from configuration. Commands build one,
// use the parts they need and close it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store      history.Store
	executor   *query.Executor
	clock      retention.Clock
	policy     retention.PolicySource
	fileSource *retention.FileSource
	aggregator *retention.Aggregator
	collector  *metrics.Collector
	tracer     *tracing.Tracer
}

// loadConfig reads --config with CHRONICLE_* overrides and applies --verbose.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// newApp builds the application. Logs go to logOut, which is stderr for
// commands whose stdout carries results.
func newApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.Setup(cfg.Telemetry.Logging, logOut)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}

	a := &app{cfg: cfg, logger: logger, clock: retention.SystemClock{}}
	ok := false
	defer func() {
		if !ok {
			a.close(context.Background())
		}
	}()

	tracingOpts := []tracing.Option{}
	if cfg.Telemetry.Tracing.Exporter == "stdout" {
		tracingOpts = append(tracingOpts, tracing.WithWriter(logOut))
	}
	tracing.Version = Version
	if a.tracer, err = tracing.New(ctx, &cfg.Telemetry.Tracing, tracingOpts...); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if a.store, err = openStore(&cfg.Storage); err != nil {
		return nil, err
	}

	if cfg.Retention.PolicyFile != "" {
		if a.fileSource, err = retention.NewFileSource(cfg.Retention.PolicyFile, a.clock); err != nil {
			return nil, err
		}
		a.policy = a.fileSource
	} else {
		logger.Debug("no retention policy file configured, every TTL resolves to never")
		a.policy = retention.NewMemorySource(a.clock)
	}

	a.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	a.executor = query.NewExecutor(a.store,
		query.WithLogger(logger.With("component", "history.query")),
		query.WithTracer(a.tracer.Tracer()),
		query.WithObserver(a.collector),
		query.WithMaxResultsLimit(cfg.Query.MaxResultsLimit),
	)
	a.aggregator = retention.NewAggregator(a.store, a.policy, a.clock,
		retention.WithReportObserver(a.collector),
		retention.WithReportTracer(a.tracer.Tracer()),
	)

	ok = true
	return a, nil
}

func openStore(cfg *config.StorageConfig) (history.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			WALMode:      cfg.SQLite.WAL(),
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		return store, nil
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, cli.NewConfigError("storage.backend", fmt.Sprintf("unsupported backend %q", cfg.Backend))
	}
}

// writer returns the store as a history.Writer.
func (a *app) writer() (history.Writer, error) {
	w, ok := a.store.(history.Writer)
	if !ok {
		return nil, cli.NewConfigError("storage.backend", fmt.Sprintf("backend %q is read-only", a.cfg.Storage.Backend))
	}
	return w, nil
}

// pageSize resolves a --max flag: zero means the configured default.
func (a *app) pageSize(max int) int {
	if max == 0 {
		return a.cfg.Query.DefaultPageSize
	}
	return max
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	return errors.Join(errs...)
}

// stderr is where commands that print results send their logs.
var stderr io.Writer = os.Stderr
