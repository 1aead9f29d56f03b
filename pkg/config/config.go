package config

import "time"

// Config is the root configuration structure for chronicle.
// It contains the storage backend, query limits, retention policy source,
// REST server and telemetry settings.
type Config struct {
	// Storage selects and configures the historic record store.
	Storage StorageConfig `yaml:"storage"`

	// Query contains limits applied by the query executor.
	Query QueryConfig `yaml:"query"`

	// Retention configures where retention policies come from and how
	// cleanable reports are scheduled.
	Retention RetentionConfig `yaml:"retention"`

	// Server contains REST adapter configuration including listen address
	// and timeouts.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig selects the historic record store backend.
type StorageConfig struct {
	// Backend is the store implementation.
	// Valid values: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains settings used when Backend is "sqlite".
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite-specific store settings.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/history.db"
	Path string `yaml:"path"`

	// Driver is the database/sql driver name.
	// "sqlite3" uses github.com/mattn/go-sqlite3 (cgo),
	// "sqlite" uses modernc.org/sqlite (pure Go).
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode *bool `yaml:"wal_mode"`
}

// QueryConfig contains query executor limits.
type QueryConfig struct {
	// MaxResultsLimit rejects list requests whose page asks for more rows.
	// Zero disables the check.
	// Default: 0
	MaxResultsLimit int `yaml:"max_results_limit"`

	// DefaultPageSize is used by the REST and CLI adapters when the caller
	// does not pass maxResults.
	// Default: 100
	DefaultPageSize int `yaml:"default_page_size"`
}

// RetentionConfig configures the retention policy source and report schedule.
type RetentionConfig struct {
	// PolicyFile is the YAML policy file. When empty an in-memory source
	// with no policies is used.
	PolicyFile string `yaml:"policy_file"`

	// WatchPolicy reloads PolicyFile when it changes on disk.
	// Default: false
	WatchPolicy bool `yaml:"watch_policy"`

	// ReportSchedule is a standard five-field cron expression for the
	// periodic cleanable report run. Empty disables scheduling.
	ReportSchedule string `yaml:"report_schedule"`
}

// ServerConfig contains REST adapter settings.
type ServerConfig struct {
	// ListenAddress is the address the HTTP server binds to.
	// Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// CORS configures cross-origin access to the REST API.
	CORS CORSConfig `yaml:"cors"`

	// RateLimit throttles REST requests per client address.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// TLS serves the REST API over HTTPS, optionally verifying client
	// certificates.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains server certificate and client verification settings.
type TLSConfig struct {
	Enabled bool `yaml:"enabled"`

	// CertFile and KeyFile are PEM-encoded.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// MinVersion is the minimum TLS version to accept ("1.2" or "1.3").
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ClientCAFile enables client certificate verification against this
	// PEM bundle.
	ClientCAFile string `yaml:"client_ca_file"`

	// ClientAuth is "require" or "verify_if_given".
	// Default: "require"
	ClientAuth string `yaml:"client_auth"`
}

// CORSConfig contains CORS settings. An empty origin list disables CORS.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxAge         int      `yaml:"max_age"`
}

// RateLimitConfig contains per-client token bucket settings.
// A zero RequestsPerSecond disables rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format.
	// Valid values: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled exposes the metrics endpoint and records query and report metrics.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "chronicle"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains OpenTelemetry tracing settings.
type TracingConfig struct {
	// Enabled turns on span export.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Exporter selects the span exporter.
	// Valid values: "stdout", "otlp", "none"
	// Default: "stdout"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector address, used when Exporter is "otlp".
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "chronicle"
	ServiceName string `yaml:"service_name"`

	// SampleRatio is the fraction of root spans sampled (0.0 to 1.0).
	// Default: 1.0
	SampleRatio *float64 `yaml:"sample_ratio"`
}

// MetricsEnabled reports whether metrics are enabled. Unset means enabled.
func (c MetricsConfig) MetricsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// WAL reports whether WAL mode is enabled. Unset means enabled.
func (c SQLiteConfig) WAL() bool {
	return c.WALMode == nil || *c.WALMode
}

// Ratio returns the sample ratio, defaulting to 1.0 when unset.
func (c TracingConfig) Ratio() float64 {
	if c.SampleRatio == nil {
		return DefaultTracingSampleRatio
	}
	return *c.SampleRatio
}
