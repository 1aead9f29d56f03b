package export

import (
	"context"
	"encoding/json"
	"io"
	"iter"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/retention"
)

// JSONExporter writes JSON arrays.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// ExportEntities writes entities as one JSON array. An empty result is "[]".
func (e *JSONExporter) ExportEntities(ctx context.Context, entities []*history.HistoricEntity, w io.Writer) error {
	return e.write(entities, len(entities), w)
}

// ExportRows writes report rows as one JSON array.
func (e *JSONExporter) ExportRows(ctx context.Context, rows []retention.Row, w io.Writer) error {
	return e.write(rows, len(rows), w)
}

func (e *JSONExporter) write(v any, n int, w io.Writer) error {
	if n == 0 {
		_, err := io.WriteString(w, "[]\n")
		return err
	}
	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return NewExportError("json", 0, err)
	}
	return nil
}

// ExportStream writes entities as a JSON array, one element at a time.
// A failure of the underlying query aborts the export.
func (e *JSONExporter) ExportStream(ctx context.Context, entities iter.Seq2[*history.HistoricEntity, error], w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return NewExportError("json", 0, err)
	}

	count := 0
	for entity, err := range entities {
		if err != nil {
			return NewExportError("json", count, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		sep := ","
		if count == 0 {
			sep = ""
		}
		if e.Pretty {
			sep += "\n  "
		}
		if _, err := io.WriteString(w, sep); err != nil {
			return NewExportError("json", count, err)
		}

		data, err := json.Marshal(entity)
		if err != nil {
			return NewExportError("json", count, err)
		}
		if _, err := w.Write(data); err != nil {
			return NewExportError("json", count, err)
		}
		count++
	}

	closing := "]\n"
	if e.Pretty && count > 0 {
		closing = "\n]\n"
	}
	if _, err := io.WriteString(w, closing); err != nil {
		return NewExportError("json", count, err)
	}
	return nil
}
