package export

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
	"text/tabwriter"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/retention"
)

// TableExporter writes aligned, human-readable columns. It shows a subset
// of entity fields; use JSON or CSV for everything.
type TableExporter struct{}

// NewTableExporter creates a new table exporter.
func NewTableExporter() *TableExporter {
	return &TableExporter{}
}

var tableEntityHeader = []string{"ID", "KIND", "GROUPING KEY", "TENANT", "STATE", "START", "END"}

// ExportEntities writes one line per entity followed by a count line.
func (e *TableExporter) ExportEntities(ctx context.Context, entities []*history.HistoricEntity, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableEntityHeader, "\t"))
	for _, entity := range entities {
		fmt.Fprintln(tw, tableEntityLine(entity))
	}
	if err := tw.Flush(); err != nil {
		return NewExportError("table", len(entities), err)
	}
	_, err := fmt.Fprintf(w, "\n%d result(s)\n", len(entities))
	return err
}

// ExportRows writes one line per report row.
func (e *TableExporter) ExportRows(ctx context.Context, rows []retention.Row, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUPING KEY\tDEFINITION KEY\tVERSION\tTENANT\tFINISHED\tCLEANABLE\tTTL")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			row.GroupingKey,
			orDash(row.DefinitionKey),
			orDash(formatVersion(row.DefinitionVersion)),
			orDash(row.TenantID),
			row.FinishedCount,
			row.CleanableCount,
			row.TTL,
		)
	}
	if err := tw.Flush(); err != nil {
		return NewExportError("table", len(rows), err)
	}
	return nil
}

// ExportStream buffers lines in the tabwriter so column widths cover the
// whole result.
func (e *TableExporter) ExportStream(ctx context.Context, entities iter.Seq2[*history.HistoricEntity, error], w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableEntityHeader, "\t"))
	count := 0
	for entity, err := range entities {
		if err != nil {
			return NewExportError("table", count, err)
		}
		fmt.Fprintln(tw, tableEntityLine(entity))
		count++
	}
	if err := tw.Flush(); err != nil {
		return NewExportError("table", count, err)
	}
	_, err := fmt.Fprintf(w, "\n%d result(s)\n", count)
	return err
}

func tableEntityLine(entity *history.HistoricEntity) string {
	return strings.Join([]string{
		entity.ID,
		string(entity.Kind),
		orDash(entity.GroupingKey),
		orDash(entity.TenantID),
		orDash(entity.State),
		orDash(formatTime(entity.StartTime)),
		orDash(formatEnd(entity.EndTime)),
	}, "\t")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
