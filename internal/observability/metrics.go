package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hydro_extremes"

// Metrics holds the Prometheus collectors for report builds and the watch loop.
type Metrics struct {
	ReportsBuilt   prometheus.Counter
	ReportFailures prometheus.Counter
	BuildDuration  prometheus.Histogram

	// Per-series analysis.
	PointsAnalyzed *prometheus.CounterVec // labels: series={primary,upchain,dv}
	ExtremePoints  *prometheus.CounterVec // labels: series, comparator={min,max}

	// Watch loop.
	WatchRunning      prometheus.Gauge
	NotificationsSent prometheus.Counter
}

// NewMetrics creates all collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.ReportsBuilt,
		m.ReportFailures,
		m.BuildDuration,
		m.PointsAnalyzed,
		m.ExtremePoints,
		m.WatchRunning,
		m.NotificationsSent,
	)
	return m
}

// NewMetricsForTesting creates unregistered collectors so tests can build
// as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReportsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_built_total",
			Help:      "Total extremes reports assembled.",
		}),
		ReportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_failures_total",
			Help:      "Total report builds aborted by a retrieval failure.",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_build_duration_seconds",
			Help:      "Duration of a complete retrieve-assemble-enrich cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PointsAnalyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_analyzed_total",
			Help:      "Points scanned for extremes, by report section.",
		}, []string{"series"}),
		ExtremePoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extreme_points_total",
			Help:      "Points found in extreme tie-sets, by report section and comparator.",
		}, []string{"series", "comparator"}),
		WatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watch_running",
			Help:      "1 while the watch loop is active, 0 otherwise.",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Extremes change notifications delivered.",
		}),
	}
}
