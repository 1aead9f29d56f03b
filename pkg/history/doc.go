// Package history defines the historic record model shared by the query core
// and the retention reports: entities, the closed set of filter predicates,
// the frozen store Plan, the store interfaces, and the error taxonomy.
//
// # Entities
//
// A HistoricEntity is an immutable fact written by the engine's audit
// pipeline. Entities are grouped by GroupingKey, which is the definition id
// for process, case and decision instances and the batch type for batches.
// An entity without an EndTime is unfinished.
//
// # Predicates
//
// Filters are built from a sealed set of predicate types (Equals, In, NotIn,
// Like, TimeAtOrAfter, TimeAtOrBefore, IntAtLeast, IntAtMost, IsNull, NotNull).
// Every predicate can evaluate itself against an entity, which the in-memory
// store relies on; SQL backends compile the same set into WHERE clauses.
//
// # Errors
//
//   - UsageError: builder misuse, raised before any store access
//   - InvalidArgumentError: null, empty or malformed inputs
//   - AmbiguousResultError: a single result matched several entities
//   - ExecutionError: opaque store failures
//   - PolicyError: retention policy could not be loaded
//
// Absence is never an error. Single-result lookups return nil and raw queries
// for unknown ids return an empty slice.
package history
