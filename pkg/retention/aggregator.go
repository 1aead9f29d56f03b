package retention

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/telemetry/tracing"
)

// ReportObserver receives one callback per report run. The metrics collector
// implements it.
type ReportObserver interface {
	ObserveReport(kind string, duration time.Duration, rows int, err error)
}

// Aggregator computes cleanable reports: per grouping key, how many records
// have finished and how many of those are past their resolved TTL.
// It never writes to the store or the policy source.
type Aggregator struct {
	store    history.Store
	policy   PolicySource
	clock    Clock
	logger   *slog.Logger
	tracer   trace.Tracer
	observer ReportObserver
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithReportObserver registers an observer for report runs.
func WithReportObserver(o ReportObserver) AggregatorOption {
	return func(a *Aggregator) { a.observer = o }
}

// WithReportTracer sets the tracer used for report spans.
func WithReportTracer(t trace.Tracer) AggregatorOption {
	return func(a *Aggregator) { a.tracer = t }
}

// NewAggregator creates an aggregator. A nil clock means the system clock.
func NewAggregator(store history.Store, policy PolicySource, clock Clock, opts ...AggregatorOption) *Aggregator {
	if clock == nil {
		clock = SystemClock{}
	}
	a := &Aggregator{
		store:  store,
		policy: policy,
		clock:  clock,
		logger: slog.Default().With("component", "retention.report"),
		tracer: otel.Tracer(tracing.InstrumentationName + "/retention"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Report returns the rows of r, windowed by page.
func (a *Aggregator) Report(ctx context.Context, r *CleanableReport, page history.Page) ([]Row, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	rows, err := a.rows(ctx, r)
	if err != nil {
		return nil, err
	}
	return history.Apply(rows, page), nil
}

// Count returns the number of rows r produces.
func (a *Aggregator) Count(ctx context.Context, r *CleanableReport) (int64, error) {
	rows, err := a.rows(ctx, r)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// rows runs the full report. The policy snapshot and the clock are read once,
// so every row of one report sees the same configuration and instant.
func (a *Aggregator) rows(ctx context.Context, r *CleanableReport) (rows []Row, err error) {
	if r == nil {
		return nil, history.NewInvalidArgumentError("report", "report is null")
	}
	if err := r.check(); err != nil {
		return nil, err
	}

	ctx, span := a.tracer.Start(ctx, "retention.report", trace.WithAttributes(
		tracing.ReportKind(string(r.kind)),
		attribute.Bool(tracing.AttrCompact, r.compact),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		tracing.SetStatus(span, err)
		if err != nil {
			a.logger.Error("cleanable report failed", "kind", r.kind, "error", err)
		} else {
			span.SetAttributes(tracing.Rows(len(rows)))
			a.logger.Info("cleanable report computed", "kind", r.kind, "rows", len(rows), "duration", elapsed)
		}
		if a.observer != nil {
			a.observer.ObserveReport(string(r.kind), elapsed, len(rows), err)
		}
	}()

	snap, err := a.policy.Snapshot(ctx)
	if err != nil {
		return nil, history.NewPolicyError("snapshot", err)
	}
	now := a.clock.Now().UTC()
	chain := ChainFor(r.kind)

	req := &history.GroupCountRequest{
		Kind:    r.kind.EntityKind(),
		Keys:    r.keys,
		Cutoffs: map[string]time.Time{},
	}
	if fallback, ok := Cutoff(chain.Fallback(snap), now); ok {
		req.DefaultCutoff = &fallback
	}
	for _, key := range a.candidateConfigKeys(r, snap) {
		if cutoff, ok := Cutoff(chain.Resolve(snap, key), now); ok {
			req.Cutoffs[key] = cutoff
		}
	}

	counts, err := a.store.CountByGroup(ctx, req)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*Row, len(counts))
	for _, c := range counts {
		byKey[c.Key] = &Row{
			Kind:              r.kind,
			GroupingKey:       c.Key,
			DefinitionKey:     c.DefinitionKey,
			DefinitionName:    c.DefinitionName,
			DefinitionVersion: c.DefinitionVersion,
			TenantID:          c.TenantID,
			FinishedCount:     c.Finished,
			CleanableCount:    c.Cleanable,
		}
	}

	// Configured or requested keys without records still get a zero row.
	for _, key := range a.candidateConfigKeys(r, snap) {
		if _, ok := byKey[key]; !ok {
			byKey[key] = &Row{Kind: r.kind, GroupingKey: key}
		}
	}

	rows = make([]Row, 0, len(byKey))
	for key, row := range byKey {
		if def, ok := snap.Definition(r.kind, key); ok && r.kind.IsDefinition() {
			row.DefinitionKey = def.Key
			row.DefinitionName = def.Name
			row.DefinitionVersion = def.Version
			row.TenantID = def.TenantID
		}
		row.TTL = chain.Resolve(snap, key)
		if !row.TTL.IsSet() {
			row.CleanableCount = 0
		}
		if r.compact && row.FinishedCount == 0 {
			continue
		}
		if !r.accepts(row) {
			continue
		}
		rows = append(rows, *row)
	}

	slices.SortFunc(rows, rowOrder(r.ordering.Entries()))
	return rows, nil
}

// candidateConfigKeys returns the keys taken from outside the store: the
// caller's filter when given, otherwise every key the policy configures.
func (a *Aggregator) candidateConfigKeys(r *CleanableReport, snap *Snapshot) []string {
	if r.keys != nil {
		return r.keys
	}
	return snap.ConfiguredKeys(r.kind)
}
