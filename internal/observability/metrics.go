package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the analytics
// service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec   // labels: endpoint, status
	RequestDuration *prometheus.HistogramVec // labels: endpoint

	ComputeDuration *prometheus.HistogramVec // labels: operation
	CacheLookups    *prometheus.CounterVec   // labels: result={hit,miss}
	CacheFlushes    prometheus.Counter

	ForecastModelUsed  *prometheus.CounterVec // labels: model
	StoreQueryDuration prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_analytics",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		}, []string{"endpoint", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quake_analytics",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by endpoint.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		ComputeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quake_analytics",
			Name:      "compute_duration_seconds",
			Help:      "Analytics computation duration by operation, cache misses only.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_analytics",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result.",
		}, []string{"result"}),
		CacheFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_analytics",
			Name:      "cache_flushes_total",
			Help:      "Cache invalidations triggered by record-change events.",
		}),
		ForecastModelUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_analytics",
			Name:      "forecast_model_used_total",
			Help:      "Forecasts served, by the model that produced them.",
		}, []string{"model"}),
		StoreQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_analytics",
			Name:      "store_query_duration_seconds",
			Help:      "Record store query duration.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ComputeDuration,
		m.CacheLookups,
		m.CacheFlushes,
		m.ForecastModelUsed,
		m.StoreQueryDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
