package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for aggregation runs.
type Metrics struct {
	AdapterFetches *prometheus.CounterVec // labels: source, outcome={success,error,skip}
	EventsFetched  *prometheus.CounterVec // labels: source
	EventsUpserted prometheus.Counter
	RunsTotal      prometheus.Counter
	RunDuration    prometheus.Histogram
}

// NewMetrics creates and registers all aggregation metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.AdapterFetches,
		m.EventsFetched,
		m.EventsUpserted,
		m.RunsTotal,
		m.RunDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		AdapterFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "astro_events",
			Name:      "adapter_fetches_total",
			Help:      "Adapter fetch attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		EventsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "astro_events",
			Name:      "events_fetched_total",
			Help:      "Normalized events returned by adapters, by source.",
		}, []string{"source"}),
		EventsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "astro_events",
			Name:      "events_upserted_total",
			Help:      "Events handed to the persistence sink.",
		}),
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "astro_events",
			Name:      "aggregation_runs_total",
			Help:      "Completed aggregation runs.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "astro_events",
			Name:      "aggregation_run_duration_seconds",
			Help:      "Duration of a complete aggregation run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}
