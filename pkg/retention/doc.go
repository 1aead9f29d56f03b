// Package retention decides which finished historic records are old enough
// to purge and aggregates that verdict into cleanable reports.
//
// # TTL resolution
//
// A TTL is a whole number of days or Never. Each report kind resolves TTLs
// through an ordered Chain of resolvers where the first present value wins:
//
//   - process, case and decision definitions: the definition's own TTL,
//     which may be Never or Days(0); there is no fallback
//   - batch operations: the per-type override, then the global default,
//     then Never
//
// A record that ended at end is eligible at now when now >= end + TTL days.
//
// # Policy sources
//
// Policy is read through a PolicySource that hands out immutable snapshots.
// MemorySource supports runtime changes; FileSource loads a YAML file and can
// reload it on change via fsnotify. A report reads one snapshot and one
// instant from its Clock, so concurrent policy edits never mix within a
// report.
//
// # Reports
//
//	rows, err := retention.NewAggregator(store, policy, clock).Report(ctx,
//		retention.NewCleanableReport(retention.BatchOperation).
//			Compact().
//			OrderByFinished().Desc(),
//		history.AllResults)
//
// Candidate keys are the caller's filter, or else every key with records plus
// every key the policy configures; configured keys without records appear
// with zero counts unless Compact is set. Rows with equal finished counts are
// ordered by grouping key.
package retention
