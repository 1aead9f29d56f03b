package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All field errors are collected and returned
// together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateQuery(&cfg.Query)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
		return nil
	case "sqlite":
	default:
		return append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("must be one of: memory, sqlite (got %q)", cfg.Backend),
		})
	}

	if cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{Field: "storage.sqlite.path", Message: "must not be empty"})
	}
	if cfg.SQLite.Driver != "sqlite3" && cfg.SQLite.Driver != "sqlite" {
		errs = append(errs, FieldError{
			Field:   "storage.sqlite.driver",
			Message: fmt.Sprintf("must be one of: sqlite3, sqlite (got %q)", cfg.SQLite.Driver),
		})
	}
	if cfg.SQLite.MaxOpenConns < 1 {
		errs = append(errs, FieldError{Field: "storage.sqlite.max_open_conns", Message: "must be at least 1"})
	}
	if cfg.SQLite.BusyTimeout < 0 {
		errs = append(errs, FieldError{Field: "storage.sqlite.busy_timeout", Message: "must not be negative"})
	}
	return errs
}

func validateQuery(cfg *QueryConfig) []FieldError {
	var errs []FieldError
	if cfg.MaxResultsLimit < 0 {
		errs = append(errs, FieldError{Field: "query.max_results_limit", Message: "must not be negative"})
	}
	if cfg.DefaultPageSize < 1 {
		errs = append(errs, FieldError{Field: "query.default_page_size", Message: "must be at least 1"})
	}
	if cfg.MaxResultsLimit > 0 && cfg.DefaultPageSize > cfg.MaxResultsLimit {
		errs = append(errs, FieldError{
			Field:   "query.default_page_size",
			Message: fmt.Sprintf("must not exceed max_results_limit (%d)", cfg.MaxResultsLimit),
		})
	}
	return errs
}

func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError
	if cfg.WatchPolicy && cfg.PolicyFile == "" {
		errs = append(errs, FieldError{Field: "retention.watch_policy", Message: "requires retention.policy_file"})
	}
	if cfg.ReportSchedule != "" {
		if _, err := cron.ParseStandard(cfg.ReportSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "retention.report_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError
	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid address %q: %v", cfg.ListenAddress, err),
		})
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must be positive"})
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must be positive"})
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "must be positive"})
	}
	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{Field: "server.cors.max_age", Message: "must not be negative"})
	}
	if cfg.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, FieldError{Field: "server.rate_limit.requests_per_second", Message: "must not be negative"})
	}
	if cfg.RateLimit.RequestsPerSecond > 0 && cfg.RateLimit.Burst <= 0 {
		errs = append(errs, FieldError{Field: "server.rate_limit.burst", Message: "must be positive when rate limiting is enabled"})
	}
	return append(errs, validateTLS(&cfg.TLS)...)
}

func validateTLS(cfg *TLSConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	var errs []FieldError
	if cfg.CertFile == "" {
		errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "required when TLS is enabled"})
	}
	if cfg.KeyFile == "" {
		errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "required when TLS is enabled"})
	}
	if cfg.MinVersion != "1.2" && cfg.MinVersion != "1.3" {
		errs = append(errs, FieldError{
			Field:   "server.tls.min_version",
			Message: fmt.Sprintf("must be one of: 1.2, 1.3 (got %q)", cfg.MinVersion),
		})
	}
	if cfg.ClientCAFile != "" && cfg.ClientAuth != "require" && cfg.ClientAuth != "verify_if_given" {
		errs = append(errs, FieldError{
			Field:   "server.tls.client_auth",
			Message: fmt.Sprintf("must be one of: require, verify_if_given (got %q)", cfg.ClientAuth),
		})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("must be one of: debug, info, warn, error (got %q)", cfg.Logging.Level),
		})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("must be one of: json, text (got %q)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.MetricsEnabled() && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with /"})
	}

	switch cfg.Tracing.Exporter {
	case "stdout", "none":
	case "otlp":
		if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "required for otlp exporter"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.exporter",
			Message: fmt.Sprintf("must be one of: stdout, otlp, none (got %q)", cfg.Tracing.Exporter),
		})
	}
	if r := cfg.Tracing.Ratio(); r < 0 || r > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: fmt.Sprintf("must be between 0.0 and 1.0 (got %g)", r),
		})
	}
	return errs
}
