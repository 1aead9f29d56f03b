package query

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/telemetry/tracing"
)

// Observer receives one callback per executed store operation. The metrics
// collector implements it.
type Observer interface {
	ObserveQuery(kind, operation string, duration time.Duration, rows int, err error)
}

// Executor resolves criteria, ordering and paging against a history.Store.
// It only reads; the store is owned by the caller.
type Executor struct {
	store           history.Store
	logger          *slog.Logger
	tracer          trace.Tracer
	observer        Observer
	maxResultsLimit int
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// WithTracer sets the tracer used for query spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) { e.tracer = tracer }
}

// WithObserver registers an observer for executed operations.
func WithObserver(o Observer) Option {
	return func(e *Executor) { e.observer = o }
}

// WithMaxResultsLimit rejects list requests whose page is larger than limit.
// Zero disables the check.
func WithMaxResultsLimit(limit int) Option {
	return func(e *Executor) { e.maxResultsLimit = limit }
}

// NewExecutor creates an executor over store.
func NewExecutor(store history.Store, opts ...Option) *Executor {
	e := &Executor{
		store:  store,
		logger: slog.Default().With("component", "history.query"),
		tracer: otel.Tracer(tracing.InstrumentationName + "/query"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// List returns the entities matching c, ordered by o and windowed by page.
func (e *Executor) List(ctx context.Context, c *Criteria, o *Ordering[history.Field], page history.Page) ([]*history.HistoricEntity, error) {
	if err := e.check(c, o); err != nil {
		return nil, err
	}
	if err := e.checkPage(page); err != nil {
		return nil, err
	}
	if c.Excluded() {
		return []*history.HistoricEntity{}, nil
	}

	plan := c.plan(orderEntries(o), page)
	ctx, span := e.start(ctx, "query.list", plan)
	defer span.End()

	start := time.Now()
	records, err := e.store.Query(ctx, plan)
	e.finish(span, plan.Kind, "list", start, len(records), err)
	if err != nil {
		return nil, e.wrap("query", err)
	}
	return records, nil
}

// Count returns the number of entities matching c. Ordering and paging are
// ignored, but an ordering key without a direction is still rejected.
func (e *Executor) Count(ctx context.Context, c *Criteria, o *Ordering[history.Field]) (int64, error) {
	if err := e.check(c, o); err != nil {
		return 0, err
	}
	if c.Excluded() {
		return 0, nil
	}

	plan := c.plan(nil, history.AllResults)
	ctx, span := e.start(ctx, "query.count", plan)
	defer span.End()

	start := time.Now()
	n, err := e.store.Count(ctx, plan)
	e.finish(span, plan.Kind, "count", start, int(n), err)
	if err != nil {
		return 0, e.wrap("count", err)
	}
	return n, nil
}

// SingleResult returns the only entity matching c, nil if none matches, or an
// AmbiguousResultError if several do.
func (e *Executor) SingleResult(ctx context.Context, c *Criteria, o *Ordering[history.Field]) (*history.HistoricEntity, error) {
	// Two rows are enough to tell "one" from "many".
	records, err := e.List(ctx, c, o, history.Page{FirstResult: 0, MaxResults: 2})
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, nil
	case 1:
		return records[0], nil
	}
	n, err := e.Count(ctx, c, o)
	if err != nil {
		return nil, err
	}
	return nil, history.NewAmbiguousResultError(int(n))
}

// Stream returns a one-pass sequence over the matching entities. Stores that
// implement history.Streamer deliver rows as they are read; others fall back
// to List. Iteration stops at the first error, which is yielded once.
func (e *Executor) Stream(ctx context.Context, c *Criteria, o *Ordering[history.Field], page history.Page) iter.Seq2[*history.HistoricEntity, error] {
	return func(yield func(*history.HistoricEntity, error) bool) {
		if err := e.check(c, o); err != nil {
			yield(nil, err)
			return
		}
		if err := e.checkPage(page); err != nil {
			yield(nil, err)
			return
		}
		if c.Excluded() {
			return
		}

		streamer, ok := e.store.(history.Streamer)
		if !ok {
			records, err := e.List(ctx, c, o, page)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, r := range records {
				if !yield(r, nil) {
					return
				}
			}
			return
		}

		plan := c.plan(orderEntries(o), page)
		ctx, span := e.start(ctx, "query.stream", plan)
		defer span.End()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		start := time.Now()
		var (
			rows      int
			streamErr error
		)
		// Rows count what the consumer received, including an early stop.
		defer func() { e.finish(span, plan.Kind, "stream", start, rows, streamErr) }()

		recordsCh, errCh, err := streamer.QueryStream(ctx, plan)
		if err != nil {
			streamErr = err
			yield(nil, e.wrap("stream", err))
			return
		}
		for r := range recordsCh {
			rows++
			if !yield(r, nil) {
				return
			}
		}
		if err := <-errCh; err != nil {
			streamErr = err
			yield(nil, e.wrap("stream", err))
		}
	}
}

// RawQuery runs backend-specific query text with named parameters, bypassing
// criteria entirely. Unknown ids yield an empty result. Stores that do not
// implement history.RawQuerier return an ExecutionError.
func (e *Executor) RawQuery(ctx context.Context, kind history.EntityKind, text string, params map[string]any, page history.Page) ([]*history.HistoricEntity, error) {
	if err := ensureNotEmptyString("sql", text); err != nil {
		return nil, err
	}
	if err := e.checkPage(page); err != nil {
		return nil, err
	}
	raw, ok := e.store.(history.RawQuerier)
	if !ok {
		return nil, history.NewExecutionError(fmt.Sprintf("%T", e.store), "raw_query", errors.New("raw queries are not supported by this store"))
	}

	ctx, span := e.tracer.Start(ctx, "query.raw", trace.WithAttributes(
		tracing.Kind(string(kind)),
		attribute.Int(tracing.AttrParams, len(params)),
	))
	defer span.End()

	start := time.Now()
	records, err := raw.RawQuery(ctx, kind, text, params, page)
	e.finish(span, kind, "raw", start, len(records), err)
	if err != nil {
		return nil, e.wrap("raw_query", err)
	}
	return records, nil
}

// check runs every synchronous validation that must pass before the store
// is touched.
func (e *Executor) check(c *Criteria, o *Ordering[history.Field]) error {
	if c == nil {
		return history.NewInvalidArgumentError("criteria", "criteria is null")
	}
	if err := c.ready(); err != nil {
		return err
	}
	if o != nil {
		return o.Complete()
	}
	return nil
}

func (e *Executor) checkPage(page history.Page) error {
	if err := page.Validate(); err != nil {
		return err
	}
	if e.maxResultsLimit > 0 && page.MaxResults > e.maxResultsLimit {
		return history.NewInvalidArgumentError("maxResults",
			fmt.Sprintf("max results limit of %d exceeded", e.maxResultsLimit))
	}
	return nil
}

func (e *Executor) start(ctx context.Context, name string, plan *history.Plan) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(
		tracing.Kind(string(plan.Kind)),
		attribute.Int(tracing.AttrConjuncts, len(plan.Conjuncts)),
		attribute.Int(tracing.AttrOrGroups, len(plan.OrGroups)),
		attribute.Int(tracing.AttrFirstResult, plan.Page.FirstResult),
		attribute.Int(tracing.AttrMaxResults, plan.Page.MaxResults),
	))
}

func (e *Executor) finish(span trace.Span, kind history.EntityKind, op string, start time.Time, rows int, err error) {
	elapsed := time.Since(start)
	tracing.SetStatus(span, err)
	if err != nil {
		e.logger.Warn("query failed", "kind", kind, "operation", op, "error", err)
	} else {
		span.SetAttributes(tracing.Rows(rows))
		e.logger.Debug("query executed", "kind", kind, "operation", op, "rows", rows, "duration", elapsed)
	}
	if e.observer != nil {
		e.observer.ObserveQuery(string(kind), op, elapsed, rows, err)
	}
}

// wrap passes typed errors through and marks anything else as an opaque
// execution failure.
func (e *Executor) wrap(op string, err error) error {
	var execErr *history.ExecutionError
	var usageErr *history.UsageError
	var argErr *history.InvalidArgumentError
	if errors.As(err, &execErr) || errors.As(err, &usageErr) || errors.As(err, &argErr) {
		return err
	}
	return history.NewExecutionError("store", op, err)
}
