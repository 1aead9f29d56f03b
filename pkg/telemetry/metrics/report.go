package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReportMetrics tracks cleanable report runs.
//
// Metrics:
//   - <ns>_report_runs_total: report runs by kind and status
//   - <ns>_report_duration_seconds: report duration
//   - <ns>_report_rows: rows per successful report
type ReportMetrics struct {
	runsTotal *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	rows      *prometheus.GaugeVec
}

// NewReportMetrics creates and registers report metrics with the provided registry.
func NewReportMetrics(namespace string, registry *prometheus.Registry) *ReportMetrics {
	rm := &ReportMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "report",
				Name:      "runs_total",
				Help:      "Total number of cleanable report runs",
			},
			[]string{"kind", "status"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "report",
				Name:      "duration_seconds",
				Help:      "Duration of cleanable report runs in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"kind"},
		),

		rows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "report",
				Name:      "rows",
				Help:      "Number of rows in the last successful report",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		rm.runsTotal,
		rm.duration,
		rm.rows,
	)

	return rm
}

// Record records one report run.
func (rm *ReportMetrics) Record(kind, status string, duration time.Duration, rows int) {
	rm.runsTotal.WithLabelValues(kind, status).Inc()
	rm.duration.WithLabelValues(kind).Observe(duration.Seconds())
	if status == "ok" {
		rm.rows.WithLabelValues(kind).Set(float64(rows))
	}
}
