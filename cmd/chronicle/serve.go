package main

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/chronicle/pkg/cli"
	"mercator-hq/chronicle/pkg/retention"
	"mercator-hq/chronicle/pkg/server"
	"mercator-hq/chronicle/pkg/telemetry/health"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveFlags struct {
	listenAddress string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST server",
	Long: `Start the chronicle REST server with the specified configuration.

The server answers historic queries and cleanable reports over HTTP. When
retention.report_schedule is set, reports are also computed on that schedule
and published as metrics. With retention.watch_policy the policy file is
reloaded when it changes.

Examples:
  # Start with a config file
  chronicle serve --config /etc/chronicle/config.yaml

  # Override listen address
  chronicle serve --listen 0.0.0.0:9090

  # Validate config without starting the server
  chronicle serve --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

// healthCheckTimeout bounds each readiness check.
const healthCheckTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	if serveFlags.dryRun {
		if _, err := loadConfig(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, stderr)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	cfg := a.cfg
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}

	if a.collector.Enabled() {
		if err := a.collector.RegisterRuntime(); err != nil {
			return fmt.Errorf("failed to register runtime metrics: %w", err)
		}
	}

	checker := health.New(healthCheckTimeout)
	checker.RegisterCheck("store", health.StoreCheck(a.store))
	checker.RegisterCheck("policy", health.PolicyCheck(a.policy))

	srv := server.New(cfg, server.Deps{
		Executor:   a.executor,
		Aggregator: a.aggregator,
		Health:     checker,
		Metrics:    a.collector,
		Tracer:     a.tracer.Tracer(),
		Logger:     a.logger,
		Version:    Version,
		GitCommit:  GitCommit,
		BuildDate:  BuildDate,
	})

	scheduler := retention.NewScheduler(a.aggregator, a.collector, cfg.Retention.ReportSchedule)
	if err := scheduler.Start(ctx); err != nil {
		return cli.NewConfigError("retention.report_schedule", err.Error())
	}
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	if cfg.Retention.WatchPolicy && a.fileSource != nil {
		g.Go(func() error {
			return a.fileSource.Watch(gctx)
		})
	}

	a.logger.Info("chronicle started",
		"version", Version,
		"address", cfg.Server.ListenAddress,
		"storage", cfg.Storage.Backend,
		"report_schedule", cfg.Retention.ReportSchedule,
	)
	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("chronicle stopped")
	return nil
}
