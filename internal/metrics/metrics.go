// Package metrics exposes Prometheus instrumentation for series builds.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors shared by the provider, builder and app layers.
type Metrics struct {
	registry *prometheus.Registry

	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	ProviderRetries  *prometheus.CounterVec

	ProductBuilds   *prometheus.CounterVec
	BuildDuration   *prometheus.HistogramVec
	SeriesPoints    *prometheus.GaugeVec
	PointsPersisted *prometheus.CounterVec
	LastSuccess     *prometheus.GaugeVec
}

// New registers all collectors on a dedicated registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "contchain"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Provider contract requests by product and outcome.",
		}, []string{"product", "outcome"}),
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Provider request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"product"}),
		ProviderRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "retries_total",
			Help:      "Provider retries by product and failure kind.",
		}, []string{"product", "kind"}),
		ProductBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "products_total",
			Help:      "Continuous series builds by product and stage reached (ok, fetch, clean, chain, persist).",
		}, []string{"product", "stage"}),
		BuildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "duration_seconds",
			Help:      "Wall time to fetch, clean and chain one product.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"product"}),
		SeriesPoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "series_points",
			Help:      "Points in the latest continuous series per product.",
		}, []string{"product"}),
		PointsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "points_persisted_total",
			Help:      "Closing prices upserted per product.",
		}, []string{"product"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful build per product.",
		}, []string{"product"}),
	}

	m.registry.MustRegister(
		m.ProviderRequests,
		m.ProviderLatency,
		m.ProviderRetries,
		m.ProductBuilds,
		m.BuildDuration,
		m.SeriesPoints,
		m.PointsPersisted,
		m.LastSuccess,
	)
	return m
}

// Registry returns the registry backing these collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one provider request.
func (m *Metrics) ObserveFetch(product, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(product, outcome).Inc()
	m.ProviderLatency.WithLabelValues(product).Observe(elapsed.Seconds())
}

// ObserveRetry records one provider retry.
func (m *Metrics) ObserveRetry(product, kind string) {
	if m == nil {
		return
	}
	m.ProviderRetries.WithLabelValues(product, kind).Inc()
}

// ObserveBuild records the outcome of one product build. stage is "ok" on success.
func (m *Metrics) ObserveBuild(product, stage string, points int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProductBuilds.WithLabelValues(product, stage).Inc()
	m.BuildDuration.WithLabelValues(product).Observe(elapsed.Seconds())
	if stage == "ok" {
		m.SeriesPoints.WithLabelValues(product).Set(float64(points))
	}
}

// ObservePersisted records a successful write of a product's series.
func (m *Metrics) ObservePersisted(product string, points int, at time.Time) {
	if m == nil {
		return
	}
	m.PointsPersisted.WithLabelValues(product).Add(float64(points))
	m.LastSuccess.WithLabelValues(product).Set(float64(at.Unix()))
}
