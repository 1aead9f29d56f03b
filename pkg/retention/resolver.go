package retention

import "time"

// Resolver looks up a TTL for a grouping key in a snapshot. ok is false when
// the resolver has no opinion, so the next resolver in the chain is tried.
// A present TTL may itself be Never or Days(0).
type Resolver func(s *Snapshot, key string) (ttl TTL, ok bool)

// Chain tries resolvers in order; the first present value wins.
type Chain []Resolver

// Resolve returns the first present TTL, or Never.
func (c Chain) Resolve(s *Snapshot, key string) TTL {
	for _, r := range c {
		if ttl, ok := r(s, key); ok {
			return ttl
		}
	}
	return Never
}

// Fallback returns the TTL a key without any configuration of its own
// resolves to. Configuration never uses the empty key.
func (c Chain) Fallback(s *Snapshot) TTL {
	return c.Resolve(s, "")
}

// BatchOverride resolves from the per-type override map. An explicit zero
// is present.
func BatchOverride(s *Snapshot, key string) (TTL, bool) {
	ttl, ok := s.BatchOverrides[key]
	return ttl, ok
}

// BatchDefault resolves to the global batch default when one is configured.
func BatchDefault(s *Snapshot, _ string) (TTL, bool) {
	return s.BatchDefault, s.BatchDefault.IsSet()
}

// DefinitionTTL resolves to the definition's own value, which may be Never.
// There is no fallback to other definitions.
func DefinitionTTL(kind PolicyKind) Resolver {
	return func(s *Snapshot, key string) (TTL, bool) {
		def, ok := s.Definition(kind, key)
		return def.TTL, ok
	}
}

// ChainFor returns the resolution chain of kind.
func ChainFor(kind PolicyKind) Chain {
	if kind == BatchOperation {
		return Chain{BatchOverride, BatchDefault}
	}
	return Chain{DefinitionTTL(kind)}
}

// Eligible reports whether a record that ended at end may be purged at now.
// With Days(0) this is true as soon as now >= end; with Never it is false.
func Eligible(ttl TTL, end, now time.Time) bool {
	days, ok := ttl.Days()
	if !ok {
		return false
	}
	return !now.UTC().Before(end.UTC().AddDate(0, 0, days))
}

// Cutoff returns the latest end time that is eligible at now, so that
// Eligible(ttl, end, now) == !end.After(cutoff). In UTC a calendar day is
// always 24 hours, which keeps the two forms equivalent.
func Cutoff(ttl TTL, now time.Time) (time.Time, bool) {
	days, ok := ttl.Days()
	if !ok {
		return time.Time{}, false
	}
	return now.UTC().AddDate(0, 0, -days), true
}
