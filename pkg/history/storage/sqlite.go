package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/chronicle/pkg/history"
)

// SQLite driver names.
const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

const backendSQLite = "sqlite"

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the database/sql driver: DriverCGO or DriverPureGo.
	// Default: DriverCGO
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/history.db",
		Driver:       DriverCGO,
		MaxOpenConns: 10,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements history.Store on SQLite. It also implements
// history.Writer, history.Streamer and history.RawQuerier.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database and applies schema migrations.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverCGO
	}

	logger := slog.Default().With("component", "history.storage.sqlite")

	db, err := sql.Open(config.Driver, buildDSN(config))
	if err != nil {
		return nil, history.NewExecutionError(backendSQLite, "open", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxOpenConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, history.NewExecutionError(backendSQLite, "ping", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, history.NewExecutionError(backendSQLite, "migrate", err)
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}, nil
}

// buildDSN encodes the connection pragmas in the form each driver expects,
// so every pooled connection gets them.
func buildDSN(config *SQLiteConfig) string {
	busy := config.BusyTimeout.Milliseconds()
	params := url.Values{}

	if config.Driver == DriverPureGo {
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
		params.Add("_pragma", "synchronous(NORMAL)")
		if config.WALMode {
			params.Add("_pragma", "journal_mode(WAL)")
		}
	} else {
		params.Set("_busy_timeout", fmt.Sprintf("%d", busy))
		params.Set("_synchronous", "NORMAL")
		if config.WALMode {
			params.Set("_journal_mode", "WAL")
		}
	}
	return "file:" + config.Path + "?" + params.Encode()
}

// Insert writes entities in one transaction. Entities without an id get a
// UUID; existing ids are replaced.
func (s *SQLiteStorage) Insert(ctx context.Context, entities ...*history.HistoricEntity) error {
	for _, e := range entities {
		if err := validateEntity(e); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return history.NewExecutionError(backendSQLite, "insert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO historic_entities (`+entityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return history.NewExecutionError(backendSQLite, "insert", err)
	}
	defer stmt.Close()

	for _, e := range entities {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		attrs, err := encodeAttributes(e.Attributes)
		if err != nil {
			return history.NewExecutionError(backendSQLite, "insert", err)
		}
		_, err = stmt.ExecContext(ctx,
			e.ID, string(e.Kind), nullString(e.GroupingKey),
			nullString(e.DefinitionKey), nullString(e.DefinitionName), e.DefinitionVersion,
			nullString(e.TenantID), nullString(e.BusinessKey), nullString(e.State), e.Priority,
			nullTime(&e.StartTime), nullTime(e.EndTime), attrs,
		)
		if err != nil {
			return history.NewExecutionError(backendSQLite, "insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return history.NewExecutionError(backendSQLite, "insert", err)
	}
	return nil
}

// Query returns the entities selected by plan.
func (s *SQLiteStorage) Query(ctx context.Context, plan *history.Plan) ([]*history.HistoricEntity, error) {
	query, args, err := compileSelect(plan)
	if err != nil {
		return nil, history.NewExecutionError(backendSQLite, "query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, history.NewExecutionError(backendSQLite, "query", err)
	}
	defer rows.Close()

	results := []*history.HistoricEntity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, history.NewExecutionError(backendSQLite, "scan", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, history.NewExecutionError(backendSQLite, "query", err)
	}
	return results, nil
}

// QueryStream delivers the entities selected by plan as rows are read.
func (s *SQLiteStorage) QueryStream(ctx context.Context, plan *history.Plan) (<-chan *history.HistoricEntity, <-chan error, error) {
	query, args, err := compileSelect(plan)
	if err != nil {
		return nil, nil, history.NewExecutionError(backendSQLite, "stream", err)
	}

	recordsCh := make(chan *history.HistoricEntity, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			errCh <- history.NewExecutionError(backendSQLite, "stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEntity(rows)
			if err != nil {
				errCh <- history.NewExecutionError(backendSQLite, "scan", err)
				return
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- e:
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- history.NewExecutionError(backendSQLite, "stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of entities matching plan's filters.
func (s *SQLiteStorage) Count(ctx context.Context, plan *history.Plan) (int64, error) {
	query, args, err := compileCount(plan)
	if err != nil {
		return 0, history.NewExecutionError(backendSQLite, "count", err)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, history.NewExecutionError(backendSQLite, "count", err)
	}
	return count, nil
}

// CountByGroup aggregates finished and cleanable counts per grouping key in a
// single statement.
func (s *SQLiteStorage) CountByGroup(ctx context.Context, req *history.GroupCountRequest) ([]history.GroupCount, error) {
	if req.Keys != nil && len(req.Keys) == 0 {
		return []history.GroupCount{}, nil
	}
	query, args := compileGroupCount(req)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, history.NewExecutionError(backendSQLite, "count_by_group", err)
	}
	defer rows.Close()

	out := []history.GroupCount{}
	for rows.Next() {
		var g history.GroupCount
		if err := rows.Scan(&g.Key, &g.DefinitionKey, &g.DefinitionName, &g.DefinitionVersion,
			&g.TenantID, &g.Total, &g.Finished, &g.Cleanable); err != nil {
			return nil, history.NewExecutionError(backendSQLite, "count_by_group", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, history.NewExecutionError(backendSQLite, "count_by_group", err)
	}
	return out, nil
}

// RawQuery runs a caller-supplied SELECT with named parameters (":name").
// Result columns are matched to entity fields by name; columns the statement
// does not return stay at their zero value. When no kind column is selected,
// entities are tagged with kind.
func (s *SQLiteStorage) RawQuery(ctx context.Context, kind history.EntityKind, text string, params map[string]any, page history.Page) ([]*history.HistoricEntity, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") && !strings.HasPrefix(strings.ToUpper(trimmed), "WITH") {
		return nil, history.NewExecutionError(backendSQLite, "raw_query", fmt.Errorf("only SELECT statements are allowed"))
	}

	args := make([]any, 0, len(params)+2)
	for name, v := range params {
		args = append(args, sql.Named(name, v))
	}
	args = append(args, sql.Named("chronicle_limit", page.MaxResults), sql.Named("chronicle_offset", page.FirstResult))

	query := "SELECT * FROM (" + trimmed + ") LIMIT :chronicle_limit OFFSET :chronicle_offset"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, history.NewExecutionError(backendSQLite, "raw_query", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, history.NewExecutionError(backendSQLite, "raw_query", err)
	}

	results := []*history.HistoricEntity{}
	for rows.Next() {
		e, err := scanByName(rows, columns)
		if err != nil {
			return nil, history.NewExecutionError(backendSQLite, "raw_query", err)
		}
		if e.Kind == "" {
			e.Kind = kind
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, history.NewExecutionError(backendSQLite, "raw_query", err)
	}
	return results, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return history.NewExecutionError(backendSQLite, "close", err)
	}
	return nil
}

// DB exposes the underlying handle for diagnostics and tests.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// scanEntity scans a row selected with entityColumns.
func scanEntity(rows *sql.Rows) (*history.HistoricEntity, error) {
	var (
		e                                               history.HistoricEntity
		kind, attrs                                     string
		groupingKey, defKey, defName, tenant, bk, state sql.NullString
		startTime, endTime                              sql.NullInt64
	)
	if err := rows.Scan(&e.ID, &kind, &groupingKey, &defKey, &defName, &e.DefinitionVersion,
		&tenant, &bk, &state, &e.Priority, &startTime, &endTime, &attrs); err != nil {
		return nil, err
	}

	e.Kind = history.EntityKind(kind)
	e.GroupingKey = groupingKey.String
	e.DefinitionKey = defKey.String
	e.DefinitionName = defName.String
	e.TenantID = tenant.String
	e.BusinessKey = bk.String
	e.State = state.String
	if startTime.Valid {
		e.StartTime = time.Unix(0, startTime.Int64).UTC()
	}
	if endTime.Valid {
		end := time.Unix(0, endTime.Int64).UTC()
		e.EndTime = &end
	}

	var err error
	if e.Attributes, err = decodeAttributes(attrs); err != nil {
		return nil, err
	}
	return &e, nil
}

// scanByName scans a row of arbitrary shape, mapping known column names onto
// entity fields.
func scanByName(rows *sql.Rows, columns []string) (*history.HistoricEntity, error) {
	values := make([]any, len(columns))
	for i := range values {
		values[i] = new(any)
	}
	if err := rows.Scan(values...); err != nil {
		return nil, err
	}

	e := &history.HistoricEntity{}
	for i, col := range columns {
		v := *(values[i].(*any))
		if v == nil {
			continue
		}
		switch strings.ToLower(col) {
		case "id":
			e.ID = asString(v)
		case "kind":
			e.Kind = history.EntityKind(asString(v))
		case "grouping_key":
			e.GroupingKey = asString(v)
		case "definition_key":
			e.DefinitionKey = asString(v)
		case "definition_name":
			e.DefinitionName = asString(v)
		case "definition_version":
			e.DefinitionVersion = int(asInt(v))
		case "tenant_id":
			e.TenantID = asString(v)
		case "business_key":
			e.BusinessKey = asString(v)
		case "state":
			e.State = asString(v)
		case "priority":
			e.Priority = asInt(v)
		case "start_time":
			e.StartTime = time.Unix(0, asInt(v)).UTC()
		case "end_time":
			end := time.Unix(0, asInt(v)).UTC()
			e.EndTime = &end
		case "attributes":
			attrs, err := decodeAttributes(asString(v))
			if err != nil {
				return nil, err
			}
			e.Attributes = attrs
		}
	}
	return e, nil
}

func asString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func asInt(v any) int64 {
	switch v := v.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func encodeAttributes(attrs map[string]string) (string, error) {
	clean := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if v != "" {
			clean[k] = v
		}
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeAttributes(s string) (map[string]string, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var attrs map[string]string
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	return attrs, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return unixNano(*t)
}
