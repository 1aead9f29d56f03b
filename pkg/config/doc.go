// Package config provides configuration management for chronicle.
//
// Configuration is read from a YAML file, completed with defaults, optionally
// overridden from the environment and then validated. Every validation
// failure is collected into a single ValidationError so operators see all
// problems at once.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("chronicle.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("chronicle.yaml")
//
// An empty path loads the defaults only.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CHRONICLE_SECTION_FIELD:
//
//   - CHRONICLE_STORAGE_BACKEND overrides storage.backend
//   - CHRONICLE_STORAGE_SQLITE_PATH overrides storage.sqlite.path
//   - CHRONICLE_QUERY_MAX_RESULTS_LIMIT overrides query.max_results_limit
//   - CHRONICLE_RETENTION_REPORT_SCHEDULE overrides retention.report_schedule
//   - CHRONICLE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// A variable whose value does not parse for its field is a validation error.
//
// # Configuration Precedence
//
//  1. Values from the YAML file
//  2. Default values for anything left unset
//  3. Environment variable overrides
//  4. Validation
//
// # Example Configuration
//
//	storage:
//	  backend: sqlite
//	  sqlite:
//	    path: data/history.db
//	    driver: sqlite3
//	query:
//	  max_results_limit: 1000
//	  default_page_size: 100
//	retention:
//	  policy_file: retention.yaml
//	  watch_policy: true
//	  report_schedule: "0 * * * *"
//	server:
//	  listen_address: 127.0.0.1:8090
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//	  metrics:
//	    namespace: chronicle
//	  tracing:
//	    enabled: false
//
// Library code takes a *Config (or the section it needs) explicitly; only
// cmd/chronicle loads the file.
package config
