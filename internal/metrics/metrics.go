// Package metrics exposes Prometheus instrumentation for the dataset pipeline.
//
// Metrics are registered on the default registry and served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache layers.
const (
	LayerMemory     = "memory"
	LayerPersistent = "persistent"
)

var (
	// CacheHits counts fetches answered without a network request.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_cache_hits_total",
			Help: "Dataset fetches served from cache",
		},
		[]string{"layer"},
	)

	// CacheErrors counts persistent cache reads or writes that failed.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_cache_errors_total",
			Help: "Persistent cache operations that failed",
		},
		[]string{"operation"},
	)

	// UpstreamRequests counts requests to the data API by outcome.
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Requests sent to the remote data API",
		},
		[]string{"outcome"},
	)

	// UpstreamDuration tracks data API latency.
	UpstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Remote data API request latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// DatasetFetches counts network fetches per dataset and result.
	DatasetFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_fetches_total",
			Help: "Dataset network fetches by result",
		},
		[]string{"dataset", "result"},
	)

	// DatasetPoints reports the size of each dataset in memory.
	DatasetPoints = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataset_points",
			Help: "Number of points held in memory per dataset",
		},
		[]string{"dataset"},
	)

	// ReconcileRuns counts reconciler runs by result.
	ReconcileRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_runs_total",
			Help: "Staleness reconciler runs",
		},
		[]string{"result"},
	)

	// ReconcileRefreshes counts datasets refreshed because their marker changed.
	ReconcileRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_refreshes_total",
			Help: "Datasets refreshed by the reconciler",
		},
	)

	// CircuitState exposes the upstream breaker state: 0 closed, 1 half-open, 2 open.
	CircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "upstream_circuit_state",
			Help: "Upstream circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)
)
