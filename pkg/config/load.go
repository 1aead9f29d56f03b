package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "CHRONICLE_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// An empty path yields the defaults. Environment variables are not consulted;
// use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := decode(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CHRONICLE_SECTION_FIELD (e.g., CHRONICLE_SERVER_LISTEN_ADDRESS)
// and always take precedence over the file.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := decode(path)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	// Overrides may enable sections whose dependent fields are still zero.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

func decode(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

type lookupFunc func(key string) (string, bool)

// applyEnvOverrides applies CHRONICLE_* overrides. A value that does not
// parse for its field is reported as a FieldError rather than ignored.
func applyEnvOverrides(cfg *Config, lookup lookupFunc) error {
	o := &overrides{lookup: lookup}

	// Storage overrides
	o.str("STORAGE_BACKEND", "storage.backend", &cfg.Storage.Backend)
	o.str("STORAGE_SQLITE_PATH", "storage.sqlite.path", &cfg.Storage.SQLite.Path)
	o.str("STORAGE_SQLITE_DRIVER", "storage.sqlite.driver", &cfg.Storage.SQLite.Driver)
	o.int("STORAGE_SQLITE_MAX_OPEN_CONNS", "storage.sqlite.max_open_conns", &cfg.Storage.SQLite.MaxOpenConns)
	o.duration("STORAGE_SQLITE_BUSY_TIMEOUT", "storage.sqlite.busy_timeout", &cfg.Storage.SQLite.BusyTimeout)
	o.boolPtr("STORAGE_SQLITE_WAL_MODE", "storage.sqlite.wal_mode", &cfg.Storage.SQLite.WALMode)

	// Query overrides
	o.int("QUERY_MAX_RESULTS_LIMIT", "query.max_results_limit", &cfg.Query.MaxResultsLimit)
	o.int("QUERY_DEFAULT_PAGE_SIZE", "query.default_page_size", &cfg.Query.DefaultPageSize)

	// Retention overrides
	o.str("RETENTION_POLICY_FILE", "retention.policy_file", &cfg.Retention.PolicyFile)
	o.bool("RETENTION_WATCH_POLICY", "retention.watch_policy", &cfg.Retention.WatchPolicy)
	o.str("RETENTION_REPORT_SCHEDULE", "retention.report_schedule", &cfg.Retention.ReportSchedule)

	// Server overrides
	o.str("SERVER_LISTEN_ADDRESS", "server.listen_address", &cfg.Server.ListenAddress)
	o.duration("SERVER_READ_TIMEOUT", "server.read_timeout", &cfg.Server.ReadTimeout)
	o.duration("SERVER_WRITE_TIMEOUT", "server.write_timeout", &cfg.Server.WriteTimeout)
	o.duration("SERVER_SHUTDOWN_TIMEOUT", "server.shutdown_timeout", &cfg.Server.ShutdownTimeout)
	o.list("SERVER_CORS_ALLOWED_ORIGINS", "server.cors.allowed_origins", &cfg.Server.CORS.AllowedOrigins)
	o.float("SERVER_RATE_LIMIT_REQUESTS_PER_SECOND", "server.rate_limit.requests_per_second", &cfg.Server.RateLimit.RequestsPerSecond)
	o.int("SERVER_RATE_LIMIT_BURST", "server.rate_limit.burst", &cfg.Server.RateLimit.Burst)
	o.bool("SERVER_TLS_ENABLED", "server.tls.enabled", &cfg.Server.TLS.Enabled)
	o.str("SERVER_TLS_CERT_FILE", "server.tls.cert_file", &cfg.Server.TLS.CertFile)
	o.str("SERVER_TLS_KEY_FILE", "server.tls.key_file", &cfg.Server.TLS.KeyFile)
	o.str("SERVER_TLS_CLIENT_CA_FILE", "server.tls.client_ca_file", &cfg.Server.TLS.ClientCAFile)

	// Telemetry overrides
	o.str("TELEMETRY_LOGGING_LEVEL", "telemetry.logging.level", &cfg.Telemetry.Logging.Level)
	o.str("TELEMETRY_LOGGING_FORMAT", "telemetry.logging.format", &cfg.Telemetry.Logging.Format)
	o.bool("TELEMETRY_LOGGING_ADD_SOURCE", "telemetry.logging.add_source", &cfg.Telemetry.Logging.AddSource)
	o.boolPtr("TELEMETRY_METRICS_ENABLED", "telemetry.metrics.enabled", &cfg.Telemetry.Metrics.Enabled)
	o.str("TELEMETRY_METRICS_PATH", "telemetry.metrics.path", &cfg.Telemetry.Metrics.Path)
	o.str("TELEMETRY_METRICS_NAMESPACE", "telemetry.metrics.namespace", &cfg.Telemetry.Metrics.Namespace)
	o.bool("TELEMETRY_TRACING_ENABLED", "telemetry.tracing.enabled", &cfg.Telemetry.Tracing.Enabled)
	o.str("TELEMETRY_TRACING_EXPORTER", "telemetry.tracing.exporter", &cfg.Telemetry.Tracing.Exporter)
	o.str("TELEMETRY_TRACING_ENDPOINT", "telemetry.tracing.endpoint", &cfg.Telemetry.Tracing.Endpoint)
	o.str("TELEMETRY_TRACING_SERVICE_NAME", "telemetry.tracing.service_name", &cfg.Telemetry.Tracing.ServiceName)
	o.floatPtr("TELEMETRY_TRACING_SAMPLE_RATIO", "telemetry.tracing.sample_ratio", &cfg.Telemetry.Tracing.SampleRatio)

	if len(o.errs) > 0 {
		return ValidationError{Errors: o.errs}
	}
	return nil
}

type overrides struct {
	lookup lookupFunc
	errs   []FieldError
}

func (o *overrides) get(name string) (string, bool) {
	v, ok := o.lookup(EnvPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (o *overrides) fail(field, name string, err error) {
	o.errs = append(o.errs, FieldError{
		Field:   field,
		Message: fmt.Sprintf("invalid value in %s%s: %v", EnvPrefix, name, err),
	})
}

func (o *overrides) str(name, field string, dst *string) {
	if v, ok := o.get(name); ok {
		*dst = v
	}
}

// list splits a comma-separated value, dropping empty items.
func (o *overrides) list(name, field string, dst *[]string) {
	if v, ok := o.get(name); ok {
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dst = items
	}
}

func (o *overrides) float(name, field string, dst *float64) {
	if v, ok := o.get(name); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			o.fail(field, name, err)
			return
		}
		*dst = f
	}
}

func (o *overrides) int(name, field string, dst *int) {
	if v, ok := o.get(name); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			o.fail(field, name, err)
			return
		}
		*dst = i
	}
}

func (o *overrides) duration(name, field string, dst *time.Duration) {
	if v, ok := o.get(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			o.fail(field, name, err)
			return
		}
		*dst = d
	}
}

func (o *overrides) bool(name, field string, dst *bool) {
	if v, ok := o.get(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			o.fail(field, name, err)
			return
		}
		*dst = b
	}
}

func (o *overrides) boolPtr(name, field string, dst **bool) {
	if v, ok := o.get(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			o.fail(field, name, err)
			return
		}
		*dst = &b
	}
}

func (o *overrides) floatPtr(name, field string, dst **float64) {
	if v, ok := o.get(name); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			o.fail(field, name, err)
			return
		}
		*dst = &f
	}
}
