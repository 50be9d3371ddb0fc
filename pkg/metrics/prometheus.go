package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the rewrite service.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	LatencyHistogram *prometheus.HistogramVec

	SnippetsIndexed    prometheus.Gauge
	CollectionsIndexed prometheus.Gauge
}

// New registers and returns the service metrics.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewriter_requests_total",
				Help: "Total number of engine requests",
			},
			[]string{"operation", "status"},
		),
		LatencyHistogram: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rewriter_request_latency_seconds",
				Help:    "Engine request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		SnippetsIndexed: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "rewriter_snippets_indexed",
			Help: "Number of snippets in the index",
		}),
		CollectionsIndexed: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "rewriter_collections_indexed",
			Help: "Number of mutation collections in the index",
		}),
	}
}

// RegisterEmbedCache exposes embedding cache effectiveness as gauges read
// from the cache's own counters on scrape.
func (m *Metrics) RegisterEmbedCache(stats func() (hits, misses int64)) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "rewriter_embed_cache_hits",
		Help: "Embedding cache hits",
	}, func() float64 {
		hits, _ := stats()
		return float64(hits)
	})
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "rewriter_embed_cache_misses",
		Help: "Embedding cache misses",
	}, func() float64 {
		_, misses := stats()
		return float64(misses)
	})
}

// RecordRequest counts one request and observes its latency.
func (m *Metrics) RecordRequest(operation, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(operation, status).Inc()
	m.LatencyHistogram.WithLabelValues(operation).Observe(duration.Seconds())
}
