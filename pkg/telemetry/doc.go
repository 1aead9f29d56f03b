// Package telemetry groups the observability packages used by chronicle.
//
// The subpackages are independent and wired together by cmd/chronicle:
//
//   - logging: slog construction from config plus request-scoped loggers
//   - metrics: Prometheus collectors for query execution, raw queries,
//     TTL resolution and cleanup reports
//   - tracing: OpenTelemetry spans around executor and report calls
//   - health: liveness and readiness checks over the store and policy source
//
// A typical wiring:
//
//	logger := logging.New(&cfg.Telemetry.Logging)
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics)
//	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(ctx)
package telemetry
