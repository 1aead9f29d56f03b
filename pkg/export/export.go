package export

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strconv"
	"time"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/retention"
)

// Format names an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// Exporter writes historic entities and report rows.
type Exporter interface {
	ExportEntities(ctx context.Context, entities []*history.HistoricEntity, w io.Writer) error
	ExportRows(ctx context.Context, rows []retention.Row, w io.Writer) error

	// ExportStream writes entities as they arrive, without holding the
	// whole result in memory.
	ExportStream(ctx context.Context, entities iter.Seq2[*history.HistoricEntity, error], w io.Writer) error
}

// New returns the exporter for format.
func New(format Format) (Exporter, error) {
	switch format {
	case FormatTable, "":
		return NewTableExporter(), nil
	case FormatJSON:
		return NewJSONExporter(true), nil
	case FormatCSV:
		return NewCSVExporter(true), nil
	default:
		return nil, history.NewInvalidArgumentError("output", fmt.Sprintf("unknown output format %q (valid: table, json, csv)", format))
	}
}

var entityHeader = []string{
	"id", "kind", "grouping_key",
	"definition_key", "definition_name", "definition_version",
	"tenant_id", "business_key", "state", "priority",
	"start_time", "end_time", "attributes",
}

var rowHeader = []string{
	"kind", "grouping_key",
	"definition_key", "definition_name", "definition_version",
	"tenant_id", "finished", "cleanable", "ttl_days",
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatEnd(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func formatVersion(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func formatTTL(t retention.TTL) string {
	if days, ok := t.Days(); ok {
		return strconv.Itoa(days)
	}
	return ""
}

func rowFields(r retention.Row) []string {
	return []string{
		string(r.Kind),
		r.GroupingKey,
		r.DefinitionKey,
		r.DefinitionName,
		formatVersion(r.DefinitionVersion),
		r.TenantID,
		strconv.FormatInt(r.FinishedCount, 10),
		strconv.FormatInt(r.CleanableCount, 10),
		formatTTL(r.TTL),
	}
}
