// Package metrics provides Prometheus metrics for chronicle.
//
// # Metrics Categories
//
//   - Query Metrics: executor operations by entity kind, operation and status
//   - Report Metrics: cleanable report runs and their durations
//   - Retention Metrics: finished and cleanable gauges per grouping key,
//     refreshed by the report scheduler
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	exec := query.NewExecutor(store, query.WithObserver(collector))
//	agg := retention.NewAggregator(store, policy, clock,
//	    retention.WithReportObserver(collector))
//	sched := retention.NewScheduler(agg, collector, cfg.Retention.ReportSchedule)
//
//	mux.Handle("/metrics", collector.Handler())
//
// # Cardinality
//
// Grouping keys are caller data. The retention gauges admit at most
// DefaultMaxGroupingKeys distinct kind/key pairs; rows beyond that are
// summed under the "_other" key.
package metrics
