package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"iter"
	"strconv"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/retention"
)

// flushEvery is the streaming flush interval in records.
const flushEvery = 100

// CSVExporter writes RFC 4180 CSV. Attributes are flattened into one JSON
// object column.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// ExportEntities writes one CSV row per entity.
func (e *CSVExporter) ExportEntities(ctx context.Context, entities []*history.HistoricEntity, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := e.header(writer, entityHeader); err != nil {
		return NewExportError("csv", 0, err)
	}
	for i, entity := range entities {
		if err := writer.Write(entityFields(entity)); err != nil {
			return NewExportError("csv", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return NewExportError("csv", len(entities), err)
	}
	return nil
}

// ExportRows writes one CSV row per report row. A Never TTL is an empty cell.
func (e *CSVExporter) ExportRows(ctx context.Context, rows []retention.Row, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := e.header(writer, rowHeader); err != nil {
		return NewExportError("csv", 0, err)
	}
	for i, row := range rows {
		if err := writer.Write(rowFields(row)); err != nil {
			return NewExportError("csv", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return NewExportError("csv", len(rows), err)
	}
	return nil
}

// ExportStream writes entities as they arrive, flushing periodically so
// long exports show progress.
func (e *CSVExporter) ExportStream(ctx context.Context, entities iter.Seq2[*history.HistoricEntity, error], w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := e.header(writer, entityHeader); err != nil {
		return NewExportError("csv", 0, err)
	}

	count := 0
	for entity, err := range entities {
		if err != nil {
			return NewExportError("csv", count, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writer.Write(entityFields(entity)); err != nil {
			return NewExportError("csv", count, err)
		}
		count++

		if count%flushEvery == 0 {
			writer.Flush()
			if err := writer.Error(); err != nil {
				return NewExportError("csv", count, err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return NewExportError("csv", count, err)
	}
	return nil
}

func (e *CSVExporter) header(writer *csv.Writer, header []string) error {
	if !e.IncludeHeader {
		return nil
	}
	return writer.Write(header)
}

func entityFields(entity *history.HistoricEntity) []string {
	attrs := ""
	if len(entity.Attributes) > 0 {
		// map keys marshal in sorted order
		data, _ := json.Marshal(entity.Attributes)
		attrs = string(data)
	}
	priority := ""
	if entity.Priority != 0 {
		priority = strconv.FormatInt(entity.Priority, 10)
	}
	return []string{
		entity.ID,
		string(entity.Kind),
		entity.GroupingKey,
		entity.DefinitionKey,
		entity.DefinitionName,
		formatVersion(entity.DefinitionVersion),
		entity.TenantID,
		entity.BusinessKey,
		entity.State,
		priority,
		formatTime(entity.StartTime),
		formatEnd(entity.EndTime),
		attrs,
	}
}
