// Package query builds and executes historic record queries.
//
// A query is a Criteria (AND-ed predicates plus non-nested or-groups), an
// Ordering (committed key/direction pairs), and a Page. Typed surfaces such as
// ProcessInstanceQuery and BatchQuery wrap these with named filter and
// orderBy methods and bind them to an Executor:
//
//	exec := query.NewExecutor(store)
//	instances, err := query.NewProcessInstanceQuery(exec).
//		ProcessDefinitionKey("invoice").
//		Or().
//			Finished().
//			BusinessKeyLike("2024-%").
//		EndOr().
//		OrderByStartTime().Desc().
//		ListPage(ctx, 0, 50)
//
// Builder misuse (or() inside an open or-group, endOr() without or(), an
// orderBy call inside an or-group, a direction without a key, a key without a
// direction) surfaces as history.UsageError. Invalid inputs surface as
// history.InvalidArgumentError. Both are reported before the store is read.
//
// Queries whose top-level filters contradict each other, such as Finished
// together with Unfinished, return an empty result without a store round trip.
package query
