// Package metrics declares the Prometheus collectors of both binaries. They
// are registered on the default registry, which promhttp.Handler serves.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "possync_sync_runs_total",
		Help: "Total number of sync runs by mode and outcome",
	}, []string{"mode", "outcome"})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "possync_sync_duration_seconds",
		Help:    "Duration of sync runs",
		Buckets: prometheus.DefBuckets,
	})

	SyncItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "possync_sync_items_total",
		Help: "Items processed by sync phases",
	}, []string{"phase", "result"})

	RPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "possync_rpc_requests_total",
		Help: "Total number of gRPC requests",
	}, []string{"method", "code"})

	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "possync_rpc_duration_seconds",
		Help:    "gRPC request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	BarcodeCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "possync_barcode_cache_total",
		Help: "Barcode lookups served from or missed by the cache",
	}, []string{"result"})

	SaleEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "possync_sale_events_total",
		Help: "Sale events published to the broker",
	}, []string{"result"})
)
