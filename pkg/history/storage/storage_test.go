package storage

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/chronicle/pkg/history"
)

// testStore is what every backend under test provides.
type testStore interface {
	history.Store
	history.Writer
	history.Streamer
}

var t0 = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func hoursAfter(h int) *time.Time {
	t := t0.Add(time.Duration(h) * time.Hour)
	return &t
}

func newSQLiteForTest(t *testing.T, driver string) *SQLiteStorage {
	t.Helper()
	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "history.db")
	config.Driver = driver
	store, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("NewSQLiteStorage(%s) failed: %v", driver, err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// forEachBackend runs fn against the memory store and both SQLite drivers,
// each seeded with the same fixture.
func forEachBackend(t *testing.T, fn func(t *testing.T, store testStore)) {
	backends := map[string]func(t *testing.T) testStore{
		"memory":         func(t *testing.T) testStore { return NewMemoryStorage() },
		"sqlite-mattn":   func(t *testing.T) testStore { return newSQLiteForTest(t, DriverCGO) },
		"sqlite-modernc": func(t *testing.T) testStore { return newSQLiteForTest(t, DriverPureGo) },
	}
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			if err := store.Insert(context.Background(), fixture()...); err != nil {
				t.Fatalf("Insert() failed: %v", err)
			}
			fn(t, store)
		})
	}
}

func fixture() []*history.HistoricEntity {
	return []*history.HistoricEntity{
		{ID: "p1", Kind: history.KindProcessInstance, GroupingKey: "invoice:1", DefinitionKey: "invoice", DefinitionName: "Invoice",
			DefinitionVersion: 1, BusinessKey: "100%", State: "COMPLETED", StartTime: *hoursAfter(0), EndTime: hoursAfter(10)},
		{ID: "p2", Kind: history.KindProcessInstance, GroupingKey: "invoice:2", DefinitionKey: "invoice", DefinitionName: "Invoice",
			DefinitionVersion: 2, BusinessKey: "1000", State: "ACTIVE", TenantID: "acme", StartTime: *hoursAfter(1)},
		{ID: "p3", Kind: history.KindProcessInstance, GroupingKey: "invoice:2", DefinitionKey: "invoice", DefinitionVersion: 2,
			BusinessKey: "Order-7", State: "COMPLETED", StartTime: *hoursAfter(2), EndTime: hoursAfter(4),
			Attributes: map[string]string{"super_process_instance_id": "p1"}},
		{ID: "p4", Kind: history.KindProcessInstance, GroupingKey: "order:1", DefinitionKey: "order", DefinitionVersion: 1,
			TenantID: "", State: "ACTIVE", StartTime: *hoursAfter(3)},
		{ID: "b1", Kind: history.KindBatch, GroupingKey: "migration", StartTime: *hoursAfter(0), EndTime: hoursAfter(1)},
		{ID: "b2", Kind: history.KindBatch, GroupingKey: "migration", StartTime: *hoursAfter(0), EndTime: hoursAfter(20)},
		{ID: "b3", Kind: history.KindBatch, GroupingKey: "deletion", StartTime: *hoursAfter(0), EndTime: hoursAfter(5)},
		{ID: "b4", Kind: history.KindBatch, GroupingKey: "deletion", StartTime: *hoursAfter(0)},
	}
}

func queryIDs(t *testing.T, store history.Store, plan *history.Plan) []string {
	t.Helper()
	if plan.Page == (history.Page{}) {
		plan.Page = history.AllResults
	}
	records, err := store.Query(context.Background(), plan)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	out := []string{}
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStore_QueryParity(t *testing.T) {
	tests := []struct {
		name string
		plan history.Plan
		want []string
	}{
		{"kind only", history.Plan{Kind: history.KindProcessInstance}, []string{"p1", "p2", "p3", "p4"}},
		{"equals", history.Plan{Kind: history.KindProcessInstance, Conjuncts: []history.Predicate{
			history.Equals{Field: history.FieldGroupingKey, Value: "invoice:2"},
		}}, []string{"p2", "p3"}},
		{"not in keeps nulls", history.Plan{Kind: history.KindProcessInstance, Conjuncts: []history.Predicate{
			history.NotIn{Field: history.FieldTenantID, Values: []string{"acme"}},
		}}, []string{"p1", "p3", "p4"}},
		{"empty string is null", history.Plan{Kind: history.KindProcessInstance, Conjuncts: []history.Predicate{
			history.IsNull{Field: history.FieldTenantID},
		}}, []string{"p1", "p3", "p4"}},
		{"like escape", history.Plan{Kind: history.KindProcessInstance, Conjuncts: []history.Predicate{
			history.Like{Field: history.FieldBusinessKey, Pattern: `100\%`},
		}}, []string{"p1"}},
		{"like case insensitive", history.Plan{Kind: history.KindProcessInstance, Conjuncts: []history.Predicate{
			history.Like{Field: history.FieldBusinessKey, Pattern: "order-_"},
		}}, []string{"p3"}},
		{"time range", history.Plan{Kind: history.KindProcessInstance, Conjuncts: []history.Predicate{
			history.TimeAtOrAfter{Field: history.FieldEndTime, Time: *hoursAfter(4)},
			history.TimeAtOrBefore{Field: history.FieldEndTime, Time: *hoursAfter(9)},
		}}, []string{"p3"}},
		{"far future upper bound", history.Plan{Kind: history.KindProcessInstance, Conjuncts: []history.Predicate{
			history.TimeAtOrBefore{Field: history.FieldStartTime, Time: time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)},
		}}, []string{"p1", "p2", "p3", "p4"}},
		{"far past lower bound", history.Plan{Kind: history.KindProcessInstance, Conjuncts: []history.Predicate{
			history.TimeAtOrAfter{Field: history.FieldStartTime, Time: time.Date(1200, 1, 1, 0, 0, 0, 0, time.UTC)},
		}}, []string{"p1", "p2", "p3", "p4"}},
		{"far future lower bound", history.Plan{Kind: history.KindProcessInstance, Conjuncts: []history.Predicate{
			history.TimeAtOrAfter{Field: history.FieldStartTime, Time: time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)},
		}}, []string{}},
		{"int bound", history.Plan{Kind: history.KindProcessInstance, Conjuncts: []history.Predicate{
			history.IntAtLeast{Field: history.FieldDefinitionVersion, Value: 2},
		}}, []string{"p2", "p3"}},
		{"attribute", history.Plan{Kind: history.KindProcessInstance, Conjuncts: []history.Predicate{
			history.Equals{Field: history.FieldSuperProcessInstanceID, Value: "p1"},
		}}, []string{"p3"}},
		{"attribute null", history.Plan{Kind: history.KindProcessInstance, Conjuncts: []history.Predicate{
			history.IsNull{Field: history.FieldSuperProcessInstanceID},
		}}, []string{"p1", "p2", "p4"}},
		{"or group", history.Plan{Kind: history.KindProcessInstance, OrGroups: [][]history.Predicate{{
			history.Equals{Field: history.FieldTenantID, Value: "acme"},
			history.Equals{Field: history.FieldDefinitionKey, Value: "order"},
		}}}, []string{"p2", "p4"}},
		{"empty or group", history.Plan{Kind: history.KindProcessInstance, OrGroups: [][]history.Predicate{{}}},
			[]string{"p1", "p2", "p3", "p4"}},
		{"order nulls first", history.Plan{Kind: history.KindProcessInstance, Order: []history.OrderEntry{
			{Field: history.FieldEndTime, Direction: history.Ascending},
		}}, []string{"p2", "p4", "p3", "p1"}},
		{"order desc nulls last", history.Plan{Kind: history.KindProcessInstance, Order: []history.OrderEntry{
			{Field: history.FieldEndTime, Direction: history.Descending},
		}}, []string{"p1", "p3", "p2", "p4"}},
		{"order binary collation", history.Plan{Kind: history.KindProcessInstance, Order: []history.OrderEntry{
			{Field: history.FieldBusinessKey, Direction: history.Ascending},
		}}, []string{"p4", "p1", "p2", "p3"}},
		{"paged", history.Plan{Kind: history.KindProcessInstance, Page: history.Page{FirstResult: 1, MaxResults: 2}},
			[]string{"p2", "p3"}},
		{"unknown id", history.Plan{Kind: history.KindProcessInstance, Conjuncts: []history.Predicate{
			history.Equals{Field: history.FieldID, Value: "nope"},
		}}, []string{}},
	}

	forEachBackend(t, func(t *testing.T, store testStore) {
		for _, tt := range tests {
			plan := tt.plan
			if got := queryIDs(t, store, &plan); !equalIDs(got, tt.want) {
				t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
			}

			plan.Page = history.AllResults
			n, err := store.Count(context.Background(), &plan)
			if err != nil {
				t.Fatalf("%s: Count() failed: %v", tt.name, err)
			}
			if tt.name != "paged" && n != int64(len(tt.want)) {
				t.Errorf("%s: Count() = %d, want %d", tt.name, n, len(tt.want))
			}
		}
	})
}

func TestStore_RoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store testStore) {
		records, err := store.Query(context.Background(), &history.Plan{
			Kind:      history.KindProcessInstance,
			Conjuncts: []history.Predicate{history.Equals{Field: history.FieldID, Value: "p3"}},
			Page:      history.AllResults,
		})
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(records))
		}
		e := records[0]
		if e.GroupingKey != "invoice:2" || e.DefinitionVersion != 2 || e.State != "COMPLETED" {
			t.Errorf("unexpected record %+v", e)
		}
		if !e.StartTime.Equal(*hoursAfter(2)) || e.EndTime == nil || !e.EndTime.Equal(*hoursAfter(4)) {
			t.Errorf("times = %v %v", e.StartTime, e.EndTime)
		}
		if e.Attributes["super_process_instance_id"] != "p1" {
			t.Errorf("attributes = %v", e.Attributes)
		}
	})
}

func TestStore_Stream(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store testStore) {
		recordsCh, errCh, err := store.QueryStream(context.Background(), &history.Plan{
			Kind: history.KindBatch,
			Page: history.AllResults,
		})
		if err != nil {
			t.Fatalf("QueryStream() failed: %v", err)
		}
		var got []string
		for r := range recordsCh {
			got = append(got, r.ID)
		}
		if err := <-errCh; err != nil {
			t.Fatalf("stream error: %v", err)
		}
		if !equalIDs(got, []string{"b1", "b2", "b3", "b4"}) {
			t.Errorf("streamed %v", got)
		}
	})
}

func TestStore_CountByGroup(t *testing.T) {
	ctx := context.Background()

	forEachBackend(t, func(t *testing.T, store testStore) {
		t.Run("per key cutoffs", func(t *testing.T) {
			groups, err := store.CountByGroup(ctx, &history.GroupCountRequest{
				Kind:    history.KindBatch,
				Cutoffs: map[string]time.Time{"migration": *hoursAfter(1), "deletion": *hoursAfter(5)},
			})
			if err != nil {
				t.Fatalf("CountByGroup() failed: %v", err)
			}
			if len(groups) != 2 {
				t.Fatalf("Expected 2 groups, got %+v", groups)
			}
			if g := groups[0]; g.Key != "deletion" || g.Total != 2 || g.Finished != 1 || g.Cleanable != 1 {
				t.Errorf("deletion = %+v", g)
			}
			if g := groups[1]; g.Key != "migration" || g.Total != 2 || g.Finished != 2 || g.Cleanable != 1 {
				t.Errorf("migration = %+v", g)
			}
		})

		t.Run("default cutoff only", func(t *testing.T) {
			cutoff := *hoursAfter(30)
			groups, err := store.CountByGroup(ctx, &history.GroupCountRequest{
				Kind:          history.KindBatch,
				DefaultCutoff: &cutoff,
			})
			if err != nil {
				t.Fatalf("CountByGroup() failed: %v", err)
			}
			for _, g := range groups {
				if g.Cleanable != g.Finished {
					t.Errorf("%s: cleanable %d != finished %d", g.Key, g.Cleanable, g.Finished)
				}
			}
		})

		t.Run("cutoff before representable range", func(t *testing.T) {
			cutoff := t0.AddDate(0, 0, -200000)
			groups, err := store.CountByGroup(ctx, &history.GroupCountRequest{
				Kind:          history.KindBatch,
				DefaultCutoff: &cutoff,
			})
			if err != nil {
				t.Fatalf("CountByGroup() failed: %v", err)
			}
			for _, g := range groups {
				if g.Cleanable != 0 {
					t.Errorf("%s: cleanable = %d, want 0", g.Key, g.Cleanable)
				}
			}
		})

		t.Run("cutoff after representable range", func(t *testing.T) {
			cutoff := t0.AddDate(0, 0, 200000)
			groups, err := store.CountByGroup(ctx, &history.GroupCountRequest{
				Kind:    history.KindBatch,
				Cutoffs: map[string]time.Time{"migration": cutoff},
			})
			if err != nil {
				t.Fatalf("CountByGroup() failed: %v", err)
			}
			for _, g := range groups {
				if g.Key == "migration" && g.Cleanable != g.Finished {
					t.Errorf("migration: cleanable %d != finished %d", g.Cleanable, g.Finished)
				}
			}
		})

		t.Run("no cutoff", func(t *testing.T) {
			groups, err := store.CountByGroup(ctx, &history.GroupCountRequest{Kind: history.KindBatch})
			if err != nil {
				t.Fatalf("CountByGroup() failed: %v", err)
			}
			for _, g := range groups {
				if g.Cleanable != 0 {
					t.Errorf("%s: cleanable = %d, want 0", g.Key, g.Cleanable)
				}
			}
		})

		t.Run("keys filter and metadata", func(t *testing.T) {
			cutoff := *hoursAfter(100)
			groups, err := store.CountByGroup(ctx, &history.GroupCountRequest{
				Kind:          history.KindProcessInstance,
				Keys:          []string{"invoice:2", "missing"},
				Cutoffs:       map[string]time.Time{"invoice:1": cutoff},
				DefaultCutoff: &cutoff,
			})
			if err != nil {
				t.Fatalf("CountByGroup() failed: %v", err)
			}
			if len(groups) != 1 {
				t.Fatalf("Expected 1 group, got %+v", groups)
			}
			g := groups[0]
			if g.Key != "invoice:2" || g.Total != 2 || g.Finished != 1 || g.Cleanable != 1 {
				t.Errorf("invoice:2 = %+v", g)
			}
			if g.DefinitionKey != "invoice" || g.DefinitionName != "Invoice" || g.DefinitionVersion != 2 || g.TenantID != "acme" {
				t.Errorf("metadata = %+v", g)
			}
		})
	})
}

func TestStore_InsertValidation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store testStore) {
		err := store.Insert(context.Background(), &history.HistoricEntity{Kind: "bogus"})
		var arg *history.InvalidArgumentError
		if !errors.As(err, &arg) {
			t.Fatalf("expected InvalidArgumentError, got %v", err)
		}

		e := &history.HistoricEntity{Kind: history.KindIncident, StartTime: t0}
		if err := store.Insert(context.Background(), e); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
		if e.ID == "" {
			t.Error("Insert() should assign an id")
		}
	})
}

func TestSQLiteStorage_RawQuery(t *testing.T) {
	for _, driver := range []string{DriverCGO, DriverPureGo} {
		t.Run(driver, func(t *testing.T) {
			store := newSQLiteForTest(t, driver)
			ctx := context.Background()
			if err := store.Insert(ctx, fixture()...); err != nil {
				t.Fatalf("Insert() failed: %v", err)
			}

			records, err := store.RawQuery(ctx, history.KindBatch,
				"SELECT id, grouping_key, end_time FROM historic_entities WHERE kind = :kind AND grouping_key = :type ORDER BY id",
				map[string]any{"kind": "batch", "type": "migration"}, history.AllResults)
			if err != nil {
				t.Fatalf("RawQuery() failed: %v", err)
			}
			if len(records) != 2 || records[0].ID != "b1" || records[1].ID != "b2" {
				t.Fatalf("unexpected records %+v", records)
			}
			if records[0].Kind != history.KindBatch || records[0].EndTime == nil {
				t.Errorf("record = %+v", records[0])
			}

			records, err = store.RawQuery(ctx, history.KindBatch,
				"SELECT * FROM historic_entities WHERE id = :id;", map[string]any{"id": "unknown"}, history.AllResults)
			if err != nil {
				t.Fatalf("RawQuery() failed: %v", err)
			}
			if len(records) != 0 {
				t.Errorf("unknown id returned %d records", len(records))
			}

			records, err = store.RawQuery(ctx, history.KindBatch,
				"SELECT * FROM historic_entities WHERE kind = 'batch' ORDER BY id", nil, history.Page{FirstResult: 1, MaxResults: 2})
			if err != nil {
				t.Fatalf("RawQuery() failed: %v", err)
			}
			if len(records) != 2 || records[0].ID != "b2" {
				t.Errorf("paged raw query = %+v", records)
			}

			_, err = store.RawQuery(ctx, history.KindBatch, "DELETE FROM historic_entities", nil, history.AllResults)
			var execErr *history.ExecutionError
			if !errors.As(err, &execErr) {
				t.Errorf("DELETE should be rejected, got %v", err)
			}
		})
	}
}

func TestCompileGroupCount(t *testing.T) {
	cutoff := t0
	tests := []struct {
		name string
		req  *history.GroupCountRequest
		args int
	}{
		{"no cutoffs", &history.GroupCountRequest{Kind: history.KindBatch}, 1},
		{"default only", &history.GroupCountRequest{Kind: history.KindBatch, DefaultCutoff: &cutoff}, 2},
		{"keys and default", &history.GroupCountRequest{
			Kind:          history.KindBatch,
			Keys:          []string{"a"},
			Cutoffs:       map[string]time.Time{"a": cutoff, "b": cutoff},
			DefaultCutoff: &cutoff,
		}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, args := compileGroupCount(tt.req)
			if len(args) != tt.args {
				t.Errorf("got %d args, want %d", len(args), tt.args)
			}
		})
	}
}

func TestUnixNanoSaturates(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want int64
	}{
		{"in range", t0, t0.UnixNano()},
		{"far past", time.Date(-521, 1, 1, 0, 0, 0, 0, time.UTC), math.MinInt64},
		{"far future", time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC), math.MaxInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unixNano(tt.in); got != tt.want {
				t.Errorf("unixNano(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestSQLiteStorage_MigrationsReapply(t *testing.T) {
	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "history.db")

	first, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() failed: %v", err)
	}
	if err := first.Insert(context.Background(), fixture()...); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	second, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("reopening migrated database failed: %v", err)
	}
	defer second.Close()

	var version int64
	if err := second.DB().QueryRow(`SELECT MAX(version_id) FROM goose_db_version`).Scan(&version); err != nil {
		t.Fatalf("reading migration version failed: %v", err)
	}
	if version != 1 {
		t.Errorf("migration version = %d, want 1", version)
	}

	n, err := second.Count(context.Background(), &history.Plan{Kind: history.KindBatch})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n == 0 {
		t.Error("expected batches to survive reopening")
	}
}
