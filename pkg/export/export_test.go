package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"iter"
	"strings"
	"testing"
	"time"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/retention"
)

func fixtureEntities() []*history.HistoricEntity {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	return []*history.HistoricEntity{
		{
			ID: "pi-1", Kind: history.KindProcessInstance, GroupingKey: "invoice:1",
			DefinitionKey: "invoice", DefinitionVersion: 1, TenantID: "acme",
			BusinessKey: "order, 42", State: "COMPLETED", StartTime: start, EndTime: &end,
			Attributes: map[string]string{"super_process_instance_id": "pi-0"},
		},
		{
			ID: "pi-2", Kind: history.KindProcessInstance, GroupingKey: "invoice:1",
			State: "ACTIVE", StartTime: start,
		},
	}
}

func fixtureRows() []retention.Row {
	return []retention.Row{
		{Kind: retention.BatchOperation, GroupingKey: "instance-migration", FinishedCount: 10, CleanableCount: 6, TTL: retention.Days(5)},
		{Kind: retention.BatchOperation, GroupingKey: "set-removal-time", FinishedCount: 2, CleanableCount: 0, TTL: retention.Never},
	}
}

func seqOf(entities []*history.HistoricEntity, fail error) iter.Seq2[*history.HistoricEntity, error] {
	return func(yield func(*history.HistoricEntity, error) bool) {
		for _, e := range entities {
			if !yield(e, nil) {
				return
			}
		}
		if fail != nil {
			yield(nil, fail)
		}
	}
}

func TestNew(t *testing.T) {
	for _, f := range []Format{"", FormatTable, FormatJSON, FormatCSV} {
		if _, err := New(f); err != nil {
			t.Errorf("New(%q) = %v", f, err)
		}
	}
	_, err := New("xml")
	var argErr *history.InvalidArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}
}

func TestJSONExporter_Entities(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(false).ExportEntities(context.Background(), fixtureEntities(), &buf); err != nil {
		t.Fatalf("ExportEntities() = %v", err)
	}
	var decoded []*history.HistoricEntity
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Attributes["super_process_instance_id"] != "pi-0" {
		t.Errorf("unexpected decoded entities: %+v", decoded)
	}
	if decoded[1].EndTime != nil {
		t.Error("unfinished entity gained an end time")
	}
}

func TestJSONExporter_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(true).ExportRows(context.Background(), nil, &buf); err != nil {
		t.Fatalf("ExportRows() = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("expected [], got %q", buf.String())
	}
}

func TestJSONExporter_RowsTTL(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(false).ExportRows(context.Background(), fixtureRows(), &buf); err != nil {
		t.Fatalf("ExportRows() = %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded[0]["ttl"] != float64(5) {
		t.Errorf("ttl = %v, want 5", decoded[0]["ttl"])
	}
	if decoded[1]["ttl"] != nil {
		t.Errorf("ttl = %v, want null", decoded[1]["ttl"])
	}
}

func TestJSONExporter_Stream(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		var buf bytes.Buffer
		err := NewJSONExporter(pretty).ExportStream(context.Background(), seqOf(fixtureEntities(), nil), &buf)
		if err != nil {
			t.Fatalf("ExportStream(pretty=%v) = %v", pretty, err)
		}
		var decoded []*history.HistoricEntity
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("pretty=%v: invalid JSON %q: %v", pretty, buf.String(), err)
		}
		if len(decoded) != 2 {
			t.Errorf("pretty=%v: expected 2 entities, got %d", pretty, len(decoded))
		}
	}
}

func TestJSONExporter_StreamFailure(t *testing.T) {
	cause := errors.New("cursor closed")
	err := NewJSONExporter(false).ExportStream(context.Background(), seqOf(fixtureEntities(), cause), &bytes.Buffer{})

	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("expected ExportError, got %v", err)
	}
	if exportErr.Count != 2 || !errors.Is(err, cause) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCSVExporter_Entities(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(true).ExportEntities(context.Background(), fixtureEntities(), &buf); err != nil {
		t.Fatalf("ExportEntities() = %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][0] != "id" {
		t.Errorf("unexpected header %v", records[0])
	}
	row := records[1]
	if row[7] != "order, 42" {
		t.Errorf("business key = %q", row[7])
	}
	if row[11] != "2024-06-01T10:00:00Z" {
		t.Errorf("end time = %q", row[11])
	}
	if row[12] != `{"super_process_instance_id":"pi-0"}` {
		t.Errorf("attributes = %q", row[12])
	}
	if records[2][11] != "" {
		t.Errorf("unfinished end time = %q", records[2][11])
	}
}

func TestCSVExporter_Rows(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(false).ExportRows(context.Background(), fixtureRows(), &buf); err != nil {
		t.Fatalf("ExportRows() = %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	want := [][]string{
		{"batch", "instance-migration", "", "", "", "", "10", "6", "5"},
		{"batch", "set-removal-time", "", "", "", "", "2", "0", ""},
	}
	for i := range want {
		if strings.Join(records[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %v, want %v", i, records[i], want[i])
		}
	}
}

func TestCSVExporter_Stream(t *testing.T) {
	many := make([]*history.HistoricEntity, 0, 250)
	for range 250 {
		many = append(many, fixtureEntities()[1])
	}
	var buf bytes.Buffer
	if err := NewCSVExporter(true).ExportStream(context.Background(), seqOf(many, nil), &buf); err != nil {
		t.Fatalf("ExportStream() = %v", err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 251 {
		t.Errorf("expected 251 lines, got %d", lines)
	}
}

func TestTableExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTableExporter().ExportEntities(context.Background(), fixtureEntities(), &buf); err != nil {
		t.Fatalf("ExportEntities() = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "GROUPING KEY") || !strings.Contains(out, "2 result(s)") {
		t.Errorf("unexpected table:\n%s", out)
	}

	buf.Reset()
	if err := NewTableExporter().ExportRows(context.Background(), fixtureRows(), &buf); err != nil {
		t.Fatalf("ExportRows() = %v", err)
	}
	if !strings.Contains(buf.String(), "P5D") || !strings.Contains(buf.String(), "never") {
		t.Errorf("unexpected report table:\n%s", buf.String())
	}
}
