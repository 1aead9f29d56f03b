package query

import "mercator-hq/chronicle/pkg/history"

// Entry is a committed ordering key with its direction.
type Entry[K comparable] struct {
	Key       K
	Direction history.Direction
}

// pendingKey is an ordering key awaiting asc() or desc().
type pendingKey[K comparable] struct {
	key K
}

// Ordering is an ordered list of (key, direction) pairs. Keys are committed in
// two phases: OrderBy marks a key pending, Asc or Desc commits it. Committed
// keys act as successive tie-breakers in declaration order.
type Ordering[K comparable] struct {
	entries []Entry[K]
	pending *pendingKey[K] // nil when no key awaits a direction
}

// OrderBy marks key as pending.
func (o *Ordering[K]) OrderBy(key K) error {
	if o.pending != nil {
		return history.NewUsageError("Invalid query: call asc() or desc() after using orderByXX(): direction is null")
	}
	o.pending = &pendingKey[K]{key: key}
	return nil
}

// Asc commits the pending key in ascending order.
func (o *Ordering[K]) Asc() error {
	return o.direction(history.Ascending)
}

// Desc commits the pending key in descending order.
func (o *Ordering[K]) Desc() error {
	return o.direction(history.Descending)
}

func (o *Ordering[K]) direction(d history.Direction) error {
	if o.pending == nil {
		if len(o.entries) > 0 {
			return history.NewUsageError("Invalid query: can specify only one direction desc() or asc() for an ordering constraint: direction is %s", d)
		}
		return history.NewUsageError("You should call any of the orderBy methods first before specifying a direction: currentOrderingProperty is null")
	}
	o.entries = append(o.entries, Entry[K]{Key: o.pending.key, Direction: d})
	o.pending = nil
	return nil
}

// Complete fails if a key is still waiting for a direction.
func (o *Ordering[K]) Complete() error {
	if o.pending != nil {
		return history.NewUsageError("Invalid query: call asc() or desc() after using orderByXX(): direction is null")
	}
	return nil
}

// Entries returns a copy of the committed entries.
func (o *Ordering[K]) Entries() []Entry[K] {
	out := make([]Entry[K], len(o.entries))
	copy(out, o.entries)
	return out
}

// Len returns the number of committed entries.
func (o *Ordering[K]) Len() int {
	return len(o.entries)
}

// orderEntries converts a field ordering into store order entries.
func orderEntries(o *Ordering[history.Field]) []history.OrderEntry {
	if o == nil {
		return nil
	}
	out := make([]history.OrderEntry, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, history.OrderEntry{Field: e.Key, Direction: e.Direction})
	}
	return out
}
