package metrics

import (
	"mercator-hq/chronicle/pkg/retention"

	"github.com/prometheus/client_golang/prometheus"
)

// overflowKey labels rows whose grouping key was refused by the
// cardinality limiter. Their counts are summed under it.
const overflowKey = "_other"

// RetentionMetrics exports the latest scheduled report per kind.
//
// Metrics:
//   - <ns>_retention_finished: finished records per kind and grouping key
//   - <ns>_retention_cleanable: cleanable records per kind and grouping key
//   - <ns>_retention_last_publish_timestamp_seconds: last publish per kind
type RetentionMetrics struct {
	finished    *prometheus.GaugeVec
	cleanable   *prometheus.GaugeVec
	lastPublish *prometheus.GaugeVec
	limiter     *CardinalityLimiter
}

// NewRetentionMetrics creates and registers retention gauges.
func NewRetentionMetrics(namespace string, registry *prometheus.Registry, limiter *CardinalityLimiter) *RetentionMetrics {
	rm := &RetentionMetrics{
		finished: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "retention",
				Name:      "finished",
				Help:      "Finished historic records per grouping key in the last report",
			},
			[]string{"kind", "grouping_key"},
		),

		cleanable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "retention",
				Name:      "cleanable",
				Help:      "Records past their retention TTL per grouping key in the last report",
			},
			[]string{"kind", "grouping_key"},
		),

		lastPublish: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "retention",
				Name:      "last_publish_timestamp_seconds",
				Help:      "Unix time of the last published report",
			},
			[]string{"kind"},
		),
		limiter: limiter,
	}

	registry.MustRegister(
		rm.finished,
		rm.cleanable,
		rm.lastPublish,
	)

	return rm
}

// Publish replaces the gauges of kind with rows. Keys that disappeared
// since the previous publish are removed.
func (rm *RetentionMetrics) Publish(kind retention.PolicyKind, rows []retention.Row) {
	k := string(kind)
	rm.finished.DeletePartialMatch(prometheus.Labels{"kind": k})
	rm.cleanable.DeletePartialMatch(prometheus.Labels{"kind": k})

	for _, row := range rows {
		key := row.GroupingKey
		if !rm.limiter.Allow(k + "/" + key) {
			key = overflowKey
		}
		rm.finished.WithLabelValues(k, key).Add(float64(row.FinishedCount))
		rm.cleanable.WithLabelValues(k, key).Add(float64(row.CleanableCount))
	}
	rm.lastPublish.WithLabelValues(k).SetToCurrentTime()
}
