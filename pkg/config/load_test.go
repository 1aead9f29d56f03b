package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chronicle.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: sqlite
  sqlite:
    path: ./test-history.db
    driver: sqlite
    wal_mode: false
query:
  max_results_limit: 500
  default_page_size: 50
retention:
  policy_file: ./retention.yaml
  watch_policy: true
  report_schedule: "*/5 * * * *"
server:
  listen_address: "0.0.0.0:9000"
  read_timeout: "10s"
telemetry:
  logging:
    level: debug
    format: text
  tracing:
    enabled: true
    sample_ratio: 0.25
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Storage.SQLite.Driver != "sqlite" {
		t.Errorf("expected driver %q, got %q", "sqlite", cfg.Storage.SQLite.Driver)
	}
	if cfg.Storage.SQLite.WAL() {
		t.Error("expected WAL mode disabled")
	}
	if cfg.Query.MaxResultsLimit != 500 || cfg.Query.DefaultPageSize != 50 {
		t.Errorf("unexpected query config: %+v", cfg.Query)
	}
	if !cfg.Retention.WatchPolicy || cfg.Retention.ReportSchedule != "*/5 * * * *" {
		t.Errorf("unexpected retention config: %+v", cfg.Retention)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("expected read timeout 10s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("expected default write timeout, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Telemetry.Tracing.Ratio() != 0.25 {
		t.Errorf("expected sample ratio 0.25, got %v", cfg.Telemetry.Tracing.Ratio())
	}
	if !cfg.Telemetry.Metrics.MetricsEnabled() {
		t.Error("expected metrics enabled by default")
	}
}

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Storage.Backend != DefaultStorageBackend {
		t.Errorf("expected backend %q, got %q", DefaultStorageBackend, cfg.Storage.Backend)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "storage: [unclosed")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: postgres
`)
	_, err := LoadConfig(path)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Errors[0].Field != "storage.backend" {
		t.Errorf("expected storage.backend error, got %v", verr.Errors)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: sqlite
server:
  listen_address: "127.0.0.1:8090"
`)

	t.Setenv("CHRONICLE_STORAGE_BACKEND", "memory")
	t.Setenv("CHRONICLE_SERVER_LISTEN_ADDRESS", "0.0.0.0:7000")
	t.Setenv("CHRONICLE_SERVER_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("CHRONICLE_QUERY_MAX_RESULTS_LIMIT", "250")
	t.Setenv("CHRONICLE_TELEMETRY_METRICS_ENABLED", "false")
	t.Setenv("CHRONICLE_TELEMETRY_TRACING_SAMPLE_RATIO", "0.5")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected backend override, got %q", cfg.Storage.Backend)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:7000" {
		t.Errorf("expected listen address override, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("expected shutdown timeout 3s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Query.MaxResultsLimit != 250 {
		t.Errorf("expected max results 250, got %d", cfg.Query.MaxResultsLimit)
	}
	if cfg.Telemetry.Metrics.MetricsEnabled() {
		t.Error("expected metrics disabled")
	}
	if cfg.Telemetry.Tracing.Ratio() != 0.5 {
		t.Errorf("expected sample ratio 0.5, got %v", cfg.Telemetry.Tracing.Ratio())
	}
}

func TestLoadConfigWithEnvOverrides_FixesInvalidFile(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: postgres
`)
	t.Setenv("CHRONICLE_STORAGE_BACKEND", "memory")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("expected override to repair config, got %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected memory backend, got %q", cfg.Storage.Backend)
	}
}

func TestLoadConfigWithEnvOverrides_BadValue(t *testing.T) {
	t.Setenv("CHRONICLE_QUERY_DEFAULT_PAGE_SIZE", "lots")
	t.Setenv("CHRONICLE_SERVER_READ_TIMEOUT", "soon")

	_, err := LoadConfigWithEnvOverrides("")
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(verr.Errors), verr)
	}
	if !strings.Contains(verr.Error(), "CHRONICLE_QUERY_DEFAULT_PAGE_SIZE") {
		t.Errorf("expected variable name in error, got %q", verr.Error())
	}
}

func TestLoadConfigWithEnvOverrides_ServerProtection(t *testing.T) {
	t.Setenv("CHRONICLE_SERVER_CORS_ALLOWED_ORIGINS", "https://ops.example.com, ,https://admin.example.com")
	t.Setenv("CHRONICLE_SERVER_RATE_LIMIT_REQUESTS_PER_SECOND", "5")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	origins := cfg.Server.CORS.AllowedOrigins
	if len(origins) != 2 || origins[1] != "https://admin.example.com" {
		t.Errorf("unexpected origins %v", origins)
	}
	if cfg.Server.CORS.MaxAge != DefaultCORSMaxAge {
		t.Errorf("expected default CORS max age, got %d", cfg.Server.CORS.MaxAge)
	}
	if cfg.Server.RateLimit.RequestsPerSecond != 5 {
		t.Errorf("expected 5 rps, got %v", cfg.Server.RateLimit.RequestsPerSecond)
	}
	if cfg.Server.RateLimit.Burst != DefaultRateLimitBurst {
		t.Errorf("expected default burst, got %d", cfg.Server.RateLimit.Burst)
	}
}

func TestLoadConfigWithEnvOverrides_TLS(t *testing.T) {
	t.Setenv("CHRONICLE_SERVER_TLS_ENABLED", "true")
	t.Setenv("CHRONICLE_SERVER_TLS_CERT_FILE", "/etc/chronicle/tls.crt")
	t.Setenv("CHRONICLE_SERVER_TLS_KEY_FILE", "/etc/chronicle/tls.key")
	t.Setenv("CHRONICLE_SERVER_TLS_CLIENT_CA_FILE", "/etc/chronicle/ca.pem")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	tls := cfg.Server.TLS
	if !tls.Enabled || tls.CertFile != "/etc/chronicle/tls.crt" || tls.KeyFile != "/etc/chronicle/tls.key" {
		t.Errorf("unexpected TLS config %+v", tls)
	}
	if tls.MinVersion != DefaultTLSMinVersion {
		t.Errorf("expected default min version, got %q", tls.MinVersion)
	}
	if tls.ClientAuth != DefaultTLSClientAuth {
		t.Errorf("expected default client auth, got %q", tls.ClientAuth)
	}
}
