// Package logging builds the process-wide structured logger.
//
// The logger is a log/slog logger configured from config.LoggingConfig
// (level, JSON or text format, optional source locations). Setup installs it
// with slog.SetDefault; components then derive their own logger with
//
//	logger := slog.Default().With("component", "history.query")
//
// Records logged through the *Context methods pick up the request ID and
// operation stored with WithRequestID and WithOperation, and the trace and
// span IDs of the active OpenTelemetry span:
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "report finished", "rows", 3)
package logging
