package query

import (
	"context"
	"iter"
	"time"

	"mercator-hq/chronicle/pkg/history"
)

// surface carries the state shared by every typed query. Q is the concrete
// query type so that fluent methods promoted from surface return *Q.
//
// Errors are sticky: the first builder error is kept, later builder calls
// are ignored, and the terminal operations return it before the store is
// touched.
type surface[Q any] struct {
	self     *Q
	exec     *Executor
	criteria *Criteria
	ordering *Ordering[history.Field]
	err      error
}

func newSurface[Q any](self *Q, exec *Executor, kind history.EntityKind) surface[Q] {
	return surface[Q]{
		self:     self,
		exec:     exec,
		criteria: NewCriteria(kind),
		ordering: &Ordering[history.Field]{},
	}
}

// Err returns the first builder error, if any.
func (s *surface[Q]) Err() error {
	return s.err
}

// Criteria exposes the underlying predicate tree.
func (s *surface[Q]) Criteria() *Criteria {
	return s.criteria
}

// Ordering exposes the underlying ordering.
func (s *surface[Q]) Ordering() *Ordering[history.Field] {
	return s.ordering
}

// Or opens an or-group. Filters set until EndOr are combined with OR.
func (s *surface[Q]) Or() *Q {
	return s.do(s.criteria.Or)
}

// EndOr closes the open or-group.
func (s *surface[Q]) EndOr() *Q {
	return s.do(s.criteria.EndOr)
}

// Asc commits the pending ordering key in ascending order.
func (s *surface[Q]) Asc() *Q {
	return s.do(s.ordering.Asc)
}

// Desc commits the pending ordering key in descending order.
func (s *surface[Q]) Desc() *Q {
	return s.do(s.ordering.Desc)
}

// List returns every matching entity.
func (s *surface[Q]) List(ctx context.Context) ([]*history.HistoricEntity, error) {
	return s.ListPage(ctx, 0, history.MaxResults)
}

// ListPage returns at most maxResults entities, skipping the first firstResult.
func (s *surface[Q]) ListPage(ctx context.Context, firstResult, maxResults int) ([]*history.HistoricEntity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.exec.List(ctx, s.criteria, s.ordering, history.Page{FirstResult: firstResult, MaxResults: maxResults})
}

// Count returns the number of matching entities.
func (s *surface[Q]) Count(ctx context.Context) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.exec.Count(ctx, s.criteria, s.ordering)
}

// SingleResult returns the only matching entity or nil.
func (s *surface[Q]) SingleResult(ctx context.Context) (*history.HistoricEntity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.exec.SingleResult(ctx, s.criteria, s.ordering)
}

// Stream returns a one-pass sequence over the matching entities.
func (s *surface[Q]) Stream(ctx context.Context, page history.Page) iter.Seq2[*history.HistoricEntity, error] {
	if s.err != nil {
		err := s.err
		return func(yield func(*history.HistoricEntity, error) bool) { yield(nil, err) }
	}
	return s.exec.Stream(ctx, s.criteria, s.ordering, page)
}

func (s *surface[Q]) do(fn func() error) *Q {
	if s.err == nil {
		s.err = fn()
	}
	return s.self
}

func (s *surface[Q]) add(param string, p history.Predicate) *Q {
	return s.do(func() error { return s.criteria.Add(param, p) })
}

func (s *surface[Q]) eq(param string, f history.Field, value string) *Q {
	return s.add(param, history.Equals{Field: f, Value: value})
}

func (s *surface[Q]) in(param string, f history.Field, values []string) *Q {
	return s.add(param, history.In{Field: f, Values: values})
}

func (s *surface[Q]) notIn(param string, f history.Field, values []string) *Q {
	return s.add(param, history.NotIn{Field: f, Values: values})
}

func (s *surface[Q]) like(param string, f history.Field, pattern string) *Q {
	return s.add(param, history.Like{Field: f, Pattern: pattern})
}

func (s *surface[Q]) after(param string, f history.Field, t time.Time) *Q {
	return s.add(param, history.TimeAtOrAfter{Field: f, Time: t})
}

func (s *surface[Q]) before(param string, f history.Field, t time.Time) *Q {
	return s.add(param, history.TimeAtOrBefore{Field: f, Time: t})
}

func (s *surface[Q]) atLeast(param string, f history.Field, v int64) *Q {
	return s.add(param, history.IntAtLeast{Field: f, Value: v})
}

func (s *surface[Q]) atMost(param string, f history.Field, v int64) *Q {
	return s.add(param, history.IntAtMost{Field: f, Value: v})
}

func (s *surface[Q]) null(f history.Field) *Q {
	return s.add(string(f), history.IsNull{Field: f})
}

func (s *surface[Q]) notNull(f history.Field) *Q {
	return s.add(string(f), history.NotNull{Field: f})
}

// orderBy marks f as the pending ordering key. method is the caller-facing
// name reported when the call happens inside an or-group.
func (s *surface[Q]) orderBy(method string, f history.Field) *Q {
	return s.do(func() error {
		if err := s.criteria.guardOrdering(method); err != nil {
			return err
		}
		return s.ordering.OrderBy(f)
	})
}

// tenantIDIn is shared by every surface.
func (s *surface[Q]) tenantIDIn(tenantIDs []string) *Q {
	return s.in("tenantIds", history.FieldTenantID, tenantIDs)
}
