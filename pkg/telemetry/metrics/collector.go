package metrics

import (
	"errors"
	"sync"
	"time"

	"mercator-hq/chronicle/pkg/config"
	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/retention"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMaxGroupingKeys bounds the number of grouping keys exported as
// retention gauge labels.
const DefaultMaxGroupingKeys = 1000

// Collector owns every chronicle metric. It implements query.Observer,
// retention.ReportObserver and retention.ReportPublisher so it can be
// handed directly to the executor, the aggregator and the scheduler.
//
// A disabled collector still satisfies those interfaces and records nothing.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	queryMetrics     *QueryMetrics
	reportMetrics    *ReportMetrics
	retentionMetrics *RetentionMetrics
}

// NewCollector creates a collector registering into registry. A nil registry
// gets a fresh one.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	exec := query.NewExecutor(store, query.WithObserver(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}

	c := &Collector{
		enabled:  cfg.MetricsEnabled(),
		registry: registry,
	}
	c.queryMetrics = NewQueryMetrics(namespace, registry)
	c.reportMetrics = NewReportMetrics(namespace, registry)
	c.retentionMetrics = NewRetentionMetrics(namespace, registry, NewCardinalityLimiter(DefaultMaxGroupingKeys))

	return c
}

// ObserveQuery records one executed store operation.
func (c *Collector) ObserveQuery(kind, operation string, duration time.Duration, rows int, err error) {
	if !c.enabled {
		return
	}
	c.queryMetrics.Record(kind, operation, status(err), duration, rows)
}

// ObserveReport records one cleanable report run.
func (c *Collector) ObserveReport(kind string, duration time.Duration, rows int, err error) {
	if !c.enabled {
		return
	}
	c.reportMetrics.Record(kind, status(err), duration, rows)
}

// PublishReport exports the rows of a scheduled report run as gauges.
func (c *Collector) PublishReport(kind retention.PolicyKind, rows []retention.Row) {
	if !c.enabled {
		return
	}
	c.retentionMetrics.Publish(kind, rows)
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c.enabled
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// status classifies an operation outcome for the status label.
func status(err error) string {
	if err == nil {
		return "ok"
	}

	var (
		usage     *history.UsageError
		invalid   *history.InvalidArgumentError
		ambiguous *history.AmbiguousResultError
		policy    *history.PolicyError
	)
	switch {
	case errors.As(err, &usage):
		return "usage_error"
	case errors.As(err, &invalid):
		return "invalid_argument"
	case errors.As(err, &ambiguous):
		return "ambiguous"
	case errors.As(err, &policy):
		return "policy_error"
	default:
		return "error"
	}
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet may be used. Label sets already seen are
// always allowed; new ones only while below the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
