package retention

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/storage"
)

var reportNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := reportNow.AddDate(0, 0, -n)
	return &t
}

// seedBatches inserts count batches of batchType that ended at end.
func seedBatches(t *testing.T, store history.Writer, batchType string, count int, end *time.Time) {
	t.Helper()
	for i := 0; i < count; i++ {
		e := &history.HistoricEntity{
			Kind:        history.KindBatch,
			GroupingKey: batchType,
			StartTime:   reportNow.AddDate(0, 0, -60),
			EndTime:     end,
		}
		if err := store.Insert(context.Background(), e); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}
}

func newBatchFixture(t *testing.T) (*Aggregator, *MemorySource, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	clock := NewFixedClock(reportNow)
	policy := NewMemorySource(clock)
	policy.SetBatchDefault(Days(5))
	if err := policy.SetBatchOverride("instance-modification", Days(20)); err != nil {
		t.Fatalf("SetBatchOverride() failed: %v", err)
	}

	seedBatches(t, store, "instance-modification", 3, daysAgo(10))
	seedBatches(t, store, "instance-modification", 1, daysAgo(25))
	seedBatches(t, store, "instance-modification", 1, nil)
	seedBatches(t, store, "migration", 6, daysAgo(7))
	seedBatches(t, store, "migration", 4, daysAgo(2))
	seedBatches(t, store, "deletion", 8, daysAgo(6))

	return NewAggregator(store, policy, clock), policy, store
}

func rowsByKey(rows []Row) map[string]Row {
	out := make(map[string]Row, len(rows))
	for _, r := range rows {
		out[r.GroupingKey] = r
	}
	return out
}

func keysOf(rows []Row) []string {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.GroupingKey
	}
	return keys
}

func TestAggregator_BatchDefaultAndOverride(t *testing.T) {
	agg, _, _ := newBatchFixture(t)

	rows, err := agg.Report(context.Background(), NewCleanableReport(BatchOperation), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d: %v", len(rows), keysOf(rows))
	}

	want := map[string]struct {
		finished, cleanable int64
		ttl                 TTL
	}{
		"instance-modification": {4, 1, Days(20)},
		"migration":             {10, 6, Days(5)},
		"deletion":              {8, 8, Days(5)},
	}
	got := rowsByKey(rows)
	for key, w := range want {
		r, ok := got[key]
		if !ok {
			t.Errorf("missing row %q", key)
			continue
		}
		if r.FinishedCount != w.finished || r.CleanableCount != w.cleanable || r.TTL != w.ttl {
			t.Errorf("%s: got finished=%d cleanable=%d ttl=%v, want %d/%d/%v",
				key, r.FinishedCount, r.CleanableCount, r.TTL, w.finished, w.cleanable, w.ttl)
		}
		if r.Kind != BatchOperation {
			t.Errorf("%s: kind = %q", key, r.Kind)
		}
	}

	// Without an explicit ordering rows come back by grouping key.
	if fmt.Sprint(keysOf(rows)) != "[deletion instance-modification migration]" {
		t.Errorf("unexpected order %v", keysOf(rows))
	}
}

func TestAggregator_NoBatchDefault(t *testing.T) {
	store := storage.NewMemoryStorage()
	clock := NewFixedClock(reportNow)
	policy := NewMemorySource(clock)
	seedBatches(t, store, "migration", 3, daysAgo(100))

	rows, err := NewAggregator(store, policy, clock).Report(context.Background(), NewCleanableReport(BatchOperation), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].FinishedCount != 3 || rows[0].CleanableCount != 0 || rows[0].TTL != Never {
		t.Errorf("got %+v, want finished 3, cleanable 0, TTL never", rows[0])
	}
}

func TestAggregator_ZeroTTLCleansEverythingFinished(t *testing.T) {
	store := storage.NewMemoryStorage()
	clock := NewFixedClock(reportNow)
	policy := NewMemorySource(clock)
	if err := policy.SetBatchOverride("deletion", Days(0)); err != nil {
		t.Fatal(err)
	}
	seedBatches(t, store, "deletion", 2, daysAgo(0))
	seedBatches(t, store, "deletion", 3, daysAgo(9))
	seedBatches(t, store, "deletion", 1, nil)

	rows, err := NewAggregator(store, policy, clock).Report(context.Background(),
		NewCleanableReport(BatchOperation).GroupingKeyIn("deletion"), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].FinishedCount != 5 || rows[0].CleanableCount != 5 {
		t.Errorf("got finished=%d cleanable=%d, want 5/5", rows[0].FinishedCount, rows[0].CleanableCount)
	}
}

func TestAggregator_DayBoundary(t *testing.T) {
	store := storage.NewMemoryStorage()
	clock := NewFixedClock(reportNow)
	policy := NewMemorySource(clock)
	if err := policy.SetBatchOverride("restart", Days(3)); err != nil {
		t.Fatal(err)
	}

	exact := reportNow.AddDate(0, 0, -3)
	late := exact.Add(time.Nanosecond)
	seedBatches(t, store, "restart", 1, &exact)
	seedBatches(t, store, "restart", 1, &late)

	agg := NewAggregator(store, policy, clock)
	report := func() Row {
		t.Helper()
		rows, err := agg.Report(context.Background(), NewCleanableReport(BatchOperation), history.AllResults)
		if err != nil {
			t.Fatalf("Report() failed: %v", err)
		}
		return rows[0]
	}

	if got := report().CleanableCount; got != 1 {
		t.Errorf("at boundary: cleanable = %d, want 1", got)
	}
	clock.Advance(time.Nanosecond)
	if got := report().CleanableCount; got != 2 {
		t.Errorf("one tick later: cleanable = %d, want 2", got)
	}
}

func TestAggregator_Idempotent(t *testing.T) {
	agg, _, _ := newBatchFixture(t)
	ctx := context.Background()

	first, err := agg.Report(ctx, NewCleanableReport(BatchOperation), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	second, err := agg.Report(ctx, NewCleanableReport(BatchOperation), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Errorf("reports differ:\n%v\n%v", first, second)
	}
}

func TestAggregator_ConfiguredKeyWithoutRecords(t *testing.T) {
	agg, policy, _ := newBatchFixture(t)
	if err := policy.SetBatchOverride("restart", Days(1)); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	rows, err := agg.Report(ctx, NewCleanableReport(BatchOperation), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	r, ok := rowsByKey(rows)["restart"]
	if !ok {
		t.Fatalf("configured key missing from %v", keysOf(rows))
	}
	if r.FinishedCount != 0 || r.CleanableCount != 0 || r.TTL != Days(1) {
		t.Errorf("restart row = %+v", r)
	}

	rows, err = agg.Report(ctx, NewCleanableReport(BatchOperation).Compact(), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if _, ok := rowsByKey(rows)["restart"]; ok {
		t.Error("compact report should drop rows without finished records")
	}
	if len(rows) != 3 {
		t.Errorf("Expected 3 compact rows, got %d", len(rows))
	}
}

func TestAggregator_OrderByFinished(t *testing.T) {
	agg, _, _ := newBatchFixture(t)
	ctx := context.Background()

	asc, err := agg.Report(ctx, NewCleanableReport(BatchOperation).OrderByFinished().Asc(), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if got := fmt.Sprint(keysOf(asc)); got != "[instance-modification deletion migration]" {
		t.Errorf("asc order = %s", got)
	}

	desc, err := agg.Report(ctx, NewCleanableReport(BatchOperation).OrderByFinished().Desc(), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if got := fmt.Sprint(keysOf(desc)); got != "[migration deletion instance-modification]" {
		t.Errorf("desc order = %s", got)
	}
}

func TestAggregator_TiesBreakByGroupingKey(t *testing.T) {
	store := storage.NewMemoryStorage()
	clock := NewFixedClock(reportNow)
	policy := NewMemorySource(clock)
	for _, key := range []string{"c", "a", "b"} {
		seedBatches(t, store, key, 2, daysAgo(1))
	}

	rows, err := NewAggregator(store, policy, clock).Report(context.Background(),
		NewCleanableReport(BatchOperation).OrderByFinished().Desc(), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if got := fmt.Sprint(keysOf(rows)); got != "[a b c]" {
		t.Errorf("tie order = %s", got)
	}
}

func TestAggregator_Paging(t *testing.T) {
	agg, _, _ := newBatchFixture(t)
	ctx := context.Background()

	rows, err := agg.Report(ctx, NewCleanableReport(BatchOperation), history.Page{FirstResult: 1, MaxResults: 1})
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if len(rows) != 1 || rows[0].GroupingKey != "instance-modification" {
		t.Errorf("page = %v", keysOf(rows))
	}

	count, err := agg.Count(ctx, NewCleanableReport(BatchOperation))
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}

	if _, err := agg.Report(ctx, NewCleanableReport(BatchOperation), history.Page{FirstResult: -1, MaxResults: 1}); err == nil {
		t.Error("negative firstResult should fail")
	}
}

func TestAggregator_Definitions(t *testing.T) {
	store := storage.NewMemoryStorage()
	clock := NewFixedClock(reportNow)
	policy := NewMemorySource(clock)
	ctx := context.Background()

	defs := []DefinitionPolicy{
		{Kind: ProcessDefinition, ID: "invoice:1", Key: "invoice", Name: "Invoice", Version: 1, TTL: Days(0)},
		{Kind: ProcessDefinition, ID: "invoice:2", Key: "invoice", Name: "Invoice", Version: 2, TTL: Never},
		{Kind: ProcessDefinition, ID: "onboarding:1", Key: "onboarding", Version: 1, TenantID: "acme", TTL: Days(30)},
	}
	for _, d := range defs {
		if err := policy.PutDefinition(d); err != nil {
			t.Fatalf("PutDefinition() failed: %v", err)
		}
	}

	insert := func(defID string, end *time.Time) {
		e := &history.HistoricEntity{
			Kind:        history.KindProcessInstance,
			GroupingKey: defID,
			StartTime:   reportNow.AddDate(0, 0, -90),
			EndTime:     end,
		}
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}
	insert("invoice:1", daysAgo(1))
	insert("invoice:1", daysAgo(0))
	insert("invoice:1", nil)
	insert("invoice:2", daysAgo(365))
	insert("invoice:2", daysAgo(2))

	agg := NewAggregator(store, policy, clock)
	rows, err := agg.Report(ctx, NewCleanableReport(ProcessDefinition), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	got := rowsByKey(rows)
	if len(got) != 3 {
		t.Fatalf("Expected 3 rows, got %v", keysOf(rows))
	}

	if r := got["invoice:1"]; r.FinishedCount != 2 || r.CleanableCount != 2 || r.DefinitionVersion != 1 {
		t.Errorf("invoice:1 = %+v", r)
	}
	if r := got["invoice:2"]; r.FinishedCount != 2 || r.CleanableCount != 0 || r.TTL != Never {
		t.Errorf("invoice:2 = %+v", r)
	}
	if r := got["onboarding:1"]; r.FinishedCount != 0 || r.TenantID != "acme" || r.DefinitionKey != "onboarding" {
		t.Errorf("onboarding:1 = %+v", r)
	}

	rows, err = agg.Report(ctx, NewCleanableReport(ProcessDefinition).DefinitionKeyIn("invoice"), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if got := fmt.Sprint(keysOf(rows)); got != "[invoice:1 invoice:2]" {
		t.Errorf("definition key filter = %s", got)
	}

	rows, err = agg.Report(ctx, NewCleanableReport(ProcessDefinition).TenantIDIn("acme"), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if got := fmt.Sprint(keysOf(rows)); got != "[onboarding:1]" {
		t.Errorf("tenant filter = %s", got)
	}

	rows, err = agg.Report(ctx, NewCleanableReport(ProcessDefinition).WithoutTenantID(), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("without tenant = %v", keysOf(rows))
	}

	// Case reports only see case definitions.
	rows, err = agg.Report(ctx, NewCleanableReport(CaseDefinition), history.AllResults)
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("case report = %v", keysOf(rows))
	}
}

func TestAggregator_UsageErrorsBeforeStoreAccess(t *testing.T) {
	store := &countingStore{Store: storage.NewMemoryStorage()}
	clock := NewFixedClock(reportNow)
	agg := NewAggregator(store, NewMemorySource(clock), clock)
	ctx := context.Background()

	_, err := agg.Report(ctx, NewCleanableReport(BatchOperation).OrderByFinished(), history.AllResults)
	var usage *history.UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("pending ordering: got %v, want UsageError", err)
	}

	_, err = agg.Report(ctx, NewCleanableReport(BatchOperation).Asc(), history.AllResults)
	if !errors.As(err, &usage) {
		t.Fatalf("direction first: got %v, want UsageError", err)
	}

	for name, report := range map[string]*CleanableReport{
		"tenant in":       NewCleanableReport(BatchOperation).TenantIDIn("acme"),
		"without tenant":  NewCleanableReport(BatchOperation).WithoutTenantID(),
		"definition keys": NewCleanableReport(BatchOperation).DefinitionKeyIn("invoice"),
	} {
		if _, err := agg.Count(ctx, report); !errors.As(err, &usage) {
			t.Errorf("batch %s: got %v, want UsageError", name, err)
		}
	}

	_, err = agg.Report(ctx, NewCleanableReport(BatchOperation).GroupingKeyIn("a", ""), history.AllResults)
	var arg *history.InvalidArgumentError
	if !errors.As(err, &arg) {
		t.Fatalf("empty key: got %v, want InvalidArgumentError", err)
	}
	if arg.Message != "batchTypeIn contains empty string" {
		t.Errorf("Message = %q", arg.Message)
	}

	_, err = agg.Report(ctx, NewCleanableReport(ProcessDefinition).GroupingKeyIn(), history.AllResults)
	if !errors.As(err, &arg) || arg.Message != "processDefinitionIdIn is null" {
		t.Fatalf("nil keys: got %v", err)
	}

	if n := store.calls.Load(); n != 0 {
		t.Errorf("store was called %d times", n)
	}
}

func TestAggregator_ReadsOneSnapshot(t *testing.T) {
	clock := NewFixedClock(reportNow)
	source := &countingSource{MemorySource: NewMemorySource(clock)}
	store := storage.NewMemoryStorage()
	seedBatches(t, store, "migration", 1, daysAgo(1))

	obs := &recordingObserver{}
	agg := NewAggregator(store, source, clock, WithReportObserver(obs))
	if _, err := agg.Report(context.Background(), NewCleanableReport(BatchOperation), history.AllResults); err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if n := source.calls.Load(); n != 1 {
		t.Errorf("Snapshot() called %d times, want 1", n)
	}
	if obs.calls != 1 || obs.kind != "batch" || obs.rows != 1 || obs.err != nil {
		t.Errorf("observer = %+v", obs)
	}
}

func TestAggregator_PolicyError(t *testing.T) {
	clock := NewFixedClock(reportNow)
	agg := NewAggregator(storage.NewMemoryStorage(), failingSource{}, clock)

	_, err := agg.Report(context.Background(), NewCleanableReport(BatchOperation), history.AllResults)
	var policyErr *history.PolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("got %v, want PolicyError", err)
	}
}

type countingStore struct {
	history.Store
	calls atomic.Int64
}

func (s *countingStore) CountByGroup(ctx context.Context, req *history.GroupCountRequest) ([]history.GroupCount, error) {
	s.calls.Add(1)
	return s.Store.CountByGroup(ctx, req)
}

type countingSource struct {
	*MemorySource
	calls atomic.Int64
}

func (s *countingSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.calls.Add(1)
	return s.MemorySource.Snapshot(ctx)
}

type failingSource struct{}

func (failingSource) Snapshot(context.Context) (*Snapshot, error) {
	return nil, errors.New("policy backend unavailable")
}

type recordingObserver struct {
	calls int
	kind  string
	rows  int
	err   error
}

func (o *recordingObserver) ObserveReport(kind string, _ time.Duration, rows int, err error) {
	o.calls++
	o.kind, o.rows, o.err = kind, rows, err
}
