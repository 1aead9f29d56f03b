// Package tracing provides OpenTelemetry tracing for chronicle.
//
// New builds a tracer provider from config.TracingConfig with a stdout or
// OTLP gRPC exporter and a parent-based ratio sampler. The tracer it hands
// out is passed to the query executor and the report aggregator, which open
// one span per store round trip or report run:
//
//	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	exec := query.NewExecutor(store, query.WithTracer(tracer.Tracer()))
//
// The REST server wraps its routes in HTTPMiddleware, which continues W3C
// trace context sent by callers:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
package tracing
