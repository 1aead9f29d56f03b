package query

import (
	"slices"

	"mercator-hq/chronicle/pkg/history"
)

// scope is the or-group state of a Criteria.
type scope int

const (
	topLevel scope = iota
	inOrGroup
)

func (s scope) String() string {
	if s == inOrGroup {
		return "in-or-group"
	}
	return "top-level"
}

// Criteria is the predicate tree of a query: a conjunctive set of predicates
// plus a list of or-groups, each ANDed with the rest. Or-groups never nest.
//
// A Criteria is a single-writer value. Build it on one goroutine and treat it
// as frozen once it has been handed to an Executor.
type Criteria struct {
	kind      history.EntityKind
	conjuncts []history.Predicate
	orGroups  [][]history.Predicate
	scope     scope
}

// NewCriteria creates an empty Criteria for kind.
func NewCriteria(kind history.EntityKind) *Criteria {
	return &Criteria{kind: kind}
}

// Kind returns the entity kind the criteria selects.
func (c *Criteria) Kind() history.EntityKind {
	return c.kind
}

// Add appends p to the current scope: the conjunctive set at top level, or
// the open or-group otherwise. param names the caller-facing parameter used
// in validation messages.
func (c *Criteria) Add(param string, p history.Predicate) error {
	if err := validatePredicate(param, p); err != nil {
		return err
	}
	if c.scope == inOrGroup {
		last := len(c.orGroups) - 1
		c.orGroups[last] = append(c.orGroups[last], p)
		return nil
	}
	c.conjuncts = append(c.conjuncts, p)
	return nil
}

// Or opens a new or-group.
func (c *Criteria) Or() error {
	if c.scope == inOrGroup {
		return history.NewUsageError("Invalid query usage: cannot set or() within 'or' query")
	}
	c.orGroups = append(c.orGroups, nil)
	c.scope = inOrGroup
	return nil
}

// EndOr closes the open or-group.
func (c *Criteria) EndOr() error {
	if c.scope != inOrGroup {
		return history.NewUsageError("Invalid query usage: cannot set endOr() before or()")
	}
	c.scope = topLevel
	return nil
}

// InOrGroup reports whether an or-group is open.
func (c *Criteria) InOrGroup() bool {
	return c.scope == inOrGroup
}

// guardOrdering rejects ordering calls while an or-group is open. method is
// the caller-facing name, e.g. "orderByProcessInstanceId".
func (c *Criteria) guardOrdering(method string) error {
	if c.scope == inOrGroup {
		return history.NewUsageError("Invalid query usage: cannot set %s() within 'or' query", method)
	}
	return nil
}

// ready fails if the criteria cannot be executed yet.
func (c *Criteria) ready() error {
	if c.scope == inOrGroup {
		return history.NewUsageError("Invalid query usage: cannot execute query within 'or' query, call endOr() first")
	}
	return nil
}

// Excluded reports whether the top-level predicates contradict each other, in
// which case the query has no results and the store is not consulted.
func (c *Criteria) Excluded() bool {
	nulls := map[history.Field]bool{}
	notNulls := map[history.Field]bool{}
	lower := map[history.Field]history.TimeAtOrAfter{}
	upper := map[history.Field]history.TimeAtOrBefore{}
	intLower := map[history.Field]int64{}
	intUpper := map[history.Field]int64{}

	for _, p := range c.conjuncts {
		switch p := p.(type) {
		case history.IsNull:
			nulls[p.Field] = true
		case history.NotNull:
			notNulls[p.Field] = true
		case history.TimeAtOrAfter:
			if cur, ok := lower[p.Field]; !ok || p.Time.After(cur.Time) {
				lower[p.Field] = p
			}
		case history.TimeAtOrBefore:
			if cur, ok := upper[p.Field]; !ok || p.Time.Before(cur.Time) {
				upper[p.Field] = p
			}
		case history.IntAtLeast:
			if cur, ok := intLower[p.Field]; !ok || p.Value > cur {
				intLower[p.Field] = p.Value
			}
		case history.IntAtMost:
			if cur, ok := intUpper[p.Field]; !ok || p.Value < cur {
				intUpper[p.Field] = p.Value
			}
		}
	}

	for f := range nulls {
		if notNulls[f] {
			return true
		}
	}
	for f, lo := range lower {
		if nulls[f] {
			return true
		}
		if hi, ok := upper[f]; ok && lo.Time.After(hi.Time) {
			return true
		}
	}
	for f := range upper {
		if nulls[f] {
			return true
		}
	}
	for f, lo := range intLower {
		if hi, ok := intUpper[f]; ok && lo > hi {
			return true
		}
	}

	// An equality that an in/not-in filter on the same field rules out.
	for _, p := range c.conjuncts {
		eq, ok := p.(history.Equals)
		if !ok {
			continue
		}
		for _, q := range c.conjuncts {
			switch q := q.(type) {
			case history.In:
				if q.Field == eq.Field && !slices.Contains(q.Values, eq.Value) {
					return true
				}
			case history.NotIn:
				if q.Field == eq.Field && slices.Contains(q.Values, eq.Value) {
					return true
				}
			case history.Equals:
				if q.Field == eq.Field && q.Value != eq.Value {
					return true
				}
			case history.IsNull:
				if q.Field == eq.Field {
					return true
				}
			}
		}
	}
	return false
}

// plan freezes the criteria into a store plan. The returned plan shares no
// slices with c.
func (c *Criteria) plan(order []history.OrderEntry, page history.Page) *history.Plan {
	p := &history.Plan{
		Kind:      c.kind,
		Conjuncts: slices.Clone(c.conjuncts),
		Order:     slices.Clone(order),
		Page:      page,
	}
	for _, g := range c.orGroups {
		p.OrGroups = append(p.OrGroups, slices.Clone(g))
	}
	return p
}

// validatePredicate checks field validity and the predicate's value.
func validatePredicate(param string, p history.Predicate) error {
	if p == nil {
		return history.NewInvalidArgumentError(param, param+" is null")
	}
	f := p.Target()
	if !f.Valid() {
		return history.NewInvalidArgumentError(param, "unknown field '"+string(f)+"'")
	}

	switch p.(type) {
	case history.Equals, history.Like, history.In, history.NotIn:
		if f.Type() != history.TypeString {
			return history.NewInvalidArgumentError(param, "field '"+string(f)+"' is not a string field")
		}
	}

	switch p := p.(type) {
	case history.Equals:
		return ensureNotEmptyString(param, p.Value)
	case history.Like:
		return ensureNotEmptyString(param, p.Pattern)
	case history.In:
		return ensureValues(param, p.Values)
	case history.NotIn:
		return ensureValues(param, p.Values)
	case history.TimeAtOrAfter:
		if f.Type() != history.TypeTime {
			return history.NewInvalidArgumentError(param, "field '"+string(f)+"' is not a time field")
		}
		return ensureTimeSet(param, p.Time)
	case history.TimeAtOrBefore:
		if f.Type() != history.TypeTime {
			return history.NewInvalidArgumentError(param, "field '"+string(f)+"' is not a time field")
		}
		return ensureTimeSet(param, p.Time)
	case history.IntAtLeast, history.IntAtMost:
		if f.Type() != history.TypeInt {
			return history.NewInvalidArgumentError(param, "field '"+string(f)+"' is not an integer field")
		}
	}
	return nil
}
