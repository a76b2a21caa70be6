package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// hazard pipeline and the alert engine.
type Metrics struct {
	// Feed refresh metrics, labeled by hazard type.
	FetchesTotal  *prometheus.CounterVec   // labels: hazard, outcome={success,error}
	FetchDuration *prometheus.HistogramVec // labels: hazard
	CacheRecords  *prometheus.GaugeVec     // labels: hazard
	CacheStale    *prometheus.GaugeVec     // labels: hazard; 1 when serving stale data

	// Alert engine metrics.
	AlertsReceived  prometheus.Counter
	AlertsDeduped   prometheus.Counter
	AlertsThrottled prometheus.Counter
	AlertsMalformed prometheus.Counter
	IntentsEmitted  prometheus.Counter

	SchedulerRunning prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.CacheRecords,
		m.CacheStale,
		m.AlertsReceived,
		m.AlertsDeduped,
		m.AlertsThrottled,
		m.AlertsMalformed,
		m.IntentsEmitted,
		m.SchedulerRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so parallel
// tests do not hit "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazardwatch",
			Name:      "feed_fetches_total",
			Help:      "Feed fetch attempts by hazard type and outcome.",
		}, []string{"hazard", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hazardwatch",
			Name:      "feed_fetch_duration_seconds",
			Help:      "Duration of one feed fetch including normalization.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"hazard"}),
		CacheRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hazardwatch",
			Name:      "cache_records",
			Help:      "Records currently held in each hazard cache.",
		}, []string{"hazard"}),
		CacheStale: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hazardwatch",
			Name:      "cache_stale",
			Help:      "1 when a hazard cache is older than its staleness threshold.",
		}, []string{"hazard"}),
		AlertsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazardwatch",
			Name:      "alerts_received_total",
			Help:      "Alert events consumed from the change feed.",
		}),
		AlertsDeduped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazardwatch",
			Name:      "alerts_deduped_total",
			Help:      "Alert events discarded as redeliveries.",
		}),
		AlertsThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazardwatch",
			Name:      "alerts_throttled_total",
			Help:      "Alert events discarded by the emission cooldown.",
		}),
		AlertsMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazardwatch",
			Name:      "alerts_malformed_total",
			Help:      "Alert events dropped as malformed.",
		}),
		IntentsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazardwatch",
			Name:      "notification_intents_total",
			Help:      "Notification intents handed to the dispatcher.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazardwatch",
			Name:      "scheduler_running",
			Help:      "1 while the refresh workers are active.",
		}),
	}
}
