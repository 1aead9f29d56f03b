package history

import (
	"cmp"
	"math"
	"strings"
)

// Direction is the sort direction of an ordering entry.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// String returns the SQL keyword for d.
func (d Direction) String() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// ParseDirection accepts "asc" or "desc" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "asc":
		return Ascending, nil
	case "desc":
		return Descending, nil
	}
	return Ascending, NewInvalidArgumentError("sortOrder", "sortOrder must be 'asc' or 'desc', got '"+s+"'")
}

// OrderEntry is one committed (field, direction) pair.
type OrderEntry struct {
	Field     Field
	Direction Direction
}

// MaxResults is the page size used when the caller asks for everything.
const MaxResults = math.MaxInt32

// Page selects a window of an ordered result.
type Page struct {
	FirstResult int `json:"first_result"`
	MaxResults  int `json:"max_results"`
}

// AllResults is the unbounded page.
var AllResults = Page{FirstResult: 0, MaxResults: MaxResults}

// Validate checks that the page bounds are non-negative.
func (p Page) Validate() error {
	if p.FirstResult < 0 {
		return NewInvalidArgumentError("firstResult", "firstResult is negative")
	}
	if p.MaxResults < 0 {
		return NewInvalidArgumentError("maxResults", "maxResults is negative")
	}
	return nil
}

// Apply returns the window of items selected by p.
func Apply[T any](items []T, p Page) []T {
	if p.FirstResult >= len(items) {
		return []T{}
	}
	end := len(items)
	if p.MaxResults < end-p.FirstResult {
		end = p.FirstResult + p.MaxResults
	}
	return items[p.FirstResult:end]
}

// Plan is the frozen request a store executes: the conjunctive predicates,
// the or-groups ANDed with them, the committed ordering and the page.
type Plan struct {
	Kind      EntityKind
	Conjuncts []Predicate
	OrGroups  [][]Predicate
	Order     []OrderEntry
	Page      Page
}

// EffectiveOrder returns the caller's ordering followed by id ascending,
// unless id is already part of it, so that paging is deterministic.
func (p *Plan) EffectiveOrder() []OrderEntry {
	order := make([]OrderEntry, 0, len(p.Order)+1)
	for _, o := range p.Order {
		order = append(order, o)
		if o.Field == FieldID {
			return order
		}
	}
	return append(order, OrderEntry{Field: FieldID, Direction: Ascending})
}

// Compare orders a and b by the plan's effective ordering. Absent values sort
// before present ones when ascending, matching SQLite's NULL ordering.
func (p *Plan) Compare(a, b *HistoricEntity) int {
	for _, o := range p.EffectiveOrder() {
		c := compareField(a, b, o.Field)
		if o.Direction == Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareField(a, b *HistoricEntity, f Field) int {
	if pa, pb := a.Present(f), b.Present(f); pa != pb {
		if !pa {
			return -1
		}
		return 1
	} else if !pa {
		return 0
	}

	switch f.Type() {
	case TypeInt:
		va, _ := a.IntValue(f)
		vb, _ := b.IntValue(f)
		return cmp.Compare(va, vb)
	case TypeTime:
		va, _ := a.TimeValue(f)
		vb, _ := b.TimeValue(f)
		return va.Compare(vb)
	default:
		va, _ := a.StringValue(f)
		vb, _ := b.StringValue(f)
		return strings.Compare(va, vb)
	}
}
