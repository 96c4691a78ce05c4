package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// recommendation pipeline.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec // labels: outcome={done,failed}
	RunDuration   prometheus.Histogram
	RunsInFlight  prometheus.Gauge
	StageFailures *prometheus.CounterVec // labels: stage, kind

	// Upstream gateway metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: service={kma,gemini,tmdb}, outcome={success,error}
	UpstreamDuration *prometheus.HistogramVec // labels: service

	// Catalog resolution metrics.
	CatalogLookups *prometheus.CounterVec // labels: outcome={found,not_found,error}
	CatalogCache   *prometheus.CounterVec // labels: result={hit,miss}

	// Generation metrics.
	GenerationTokens prometheus.Histogram

	// Event stream metrics.
	EventsPublished    prometheus.Counter
	EventPublishErrors prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RunsInFlight,
		m.StageFailures,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.CatalogLookups,
		m.CatalogCache,
		m.GenerationTokens,
		m.EventsPublished,
		m.EventPublishErrors,
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
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skyflick",
			Name:      "runs_total",
			Help:      "Pipeline runs by terminal outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "skyflick",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		RunsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "skyflick",
			Name:      "runs_in_flight",
			Help:      "Pipeline runs currently executing.",
		}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skyflick",
			Name:      "stage_failures_total",
			Help:      "Fatal pipeline failures by stage and error kind.",
		}, []string{"stage", "kind"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skyflick",
			Name:      "upstream_requests_total",
			Help:      "Outbound upstream requests by service and outcome.",
		}, []string{"service", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "skyflick",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"service"}),
		CatalogLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skyflick",
			Name:      "catalog_lookups_total",
			Help:      "Per-title catalog lookups by outcome.",
		}, []string{"outcome"}),
		CatalogCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skyflick",
			Name:      "catalog_cache_total",
			Help:      "Catalog cache lookups by result.",
		}, []string{"result"}),
		GenerationTokens: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "skyflick",
			Name:      "generation_tokens",
			Help:      "Tokens consumed per generation request.",
			Buckets:   []float64{64, 128, 256, 512, 1024, 2048, 4096},
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skyflick",
			Name:      "events_published_total",
			Help:      "Recommendation events published to the sink topic.",
		}),
		EventPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skyflick",
			Name:      "event_publish_errors_total",
			Help:      "Recommendation event publish failures.",
		}),
	}
}
