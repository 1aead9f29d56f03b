package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QueryMetrics tracks executor operations.
//
// Metrics:
//   - <ns>_query_operations_total: operations by kind, operation, status
//   - <ns>_query_duration_seconds: store round-trip duration
//   - <ns>_query_rows: rows returned per list operation
type QueryMetrics struct {
	operationsTotal *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	rows            *prometheus.HistogramVec
}

// NewQueryMetrics creates and registers query metrics with the provided registry.
func NewQueryMetrics(namespace string, registry *prometheus.Registry) *QueryMetrics {
	qm := &QueryMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "query",
				Name:      "operations_total",
				Help:      "Total number of historic queries executed",
			},
			[]string{"kind", "operation", "status"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "query",
				Name:      "duration_seconds",
				Help:      "Duration of historic queries in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"kind", "operation"},
		),

		rows: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "query",
				Name:      "rows",
				Help:      "Number of rows returned per historic query",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8), // 1 to 16K
			},
			[]string{"kind", "operation"},
		),
	}

	registry.MustRegister(
		qm.operationsTotal,
		qm.duration,
		qm.rows,
	)

	return qm
}

// Record records one executed operation. Rows are only observed for
// successful operations.
func (qm *QueryMetrics) Record(kind, operation, status string, duration time.Duration, rows int) {
	qm.operationsTotal.WithLabelValues(kind, operation, status).Inc()
	qm.duration.WithLabelValues(kind, operation).Observe(duration.Seconds())
	if status == "ok" {
		qm.rows.WithLabelValues(kind, operation).Observe(float64(rows))
	}
}
