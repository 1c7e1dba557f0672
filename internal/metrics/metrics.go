package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheReads tracks sub-key cache reads, labeled hit/miss.
	CacheReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rugcache_cache_reads_total",
			Help: "Total number of cache sub-key reads",
		},
		[]string{"result"},
	)

	// RefreshTotal tracks single-item refresh outcomes per trigger source.
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rugcache_refresh_total",
			Help: "Total number of single-item refreshes",
		},
		[]string{"source", "result"},
	)

	// RefreshChanged counts refreshes whose content hash differed from the
	// cached one.
	RefreshChanged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rugcache_refresh_changed_total",
			Help: "Refreshes that observed a changed content hash",
		},
	)

	// RPCCallsTotal tracks RPC calls per provider and method.
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rugcache_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"provider", "method"},
	)

	// RPCErrorsTotal tracks RPC errors per provider and method.
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rugcache_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"provider", "method"},
	)

	// RPCLatency tracks RPC call latency.
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rugcache_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "method"},
	)

	// BatchRunOffset tracks the refresh cursor position per contract.
	BatchRunOffset = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rugcache_batch_cursor_offset",
			Help: "Current refresh cursor offset",
		},
		[]string{"contract"},
	)

	// BatchRunsTotal tracks batch scheduler runs, labeled completed/skipped.
	BatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rugcache_batch_runs_total",
			Help: "Total number of batch refresh runs",
		},
		[]string{"result"},
	)

	// EventsTotal tracks webhook events, labeled by kind and outcome.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rugcache_events_total",
			Help: "Total number of maintenance webhook events",
		},
		[]string{"kind", "result"},
	)

	// RateLimited counts requests rejected by the rate governor.
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rugcache_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// DBConnectionPoolUsage tracks run-history database pool usage percentage.
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rugcache_db_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
