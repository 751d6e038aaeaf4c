package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortener_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route", "status"},
	)

	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_requests_total",
			Help: "Total number of requests",
		},
		[]string{"method", "route", "status"},
	)

	// Redirect outcomes: found, not_found, expired, inactive
	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_redirects_total",
			Help: "Redirect resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// Cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shortener_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shortener_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// Click events
	ClickEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_click_events_total",
			Help: "Click events by result: recorded, skipped, failed",
		},
		[]string{"result"},
	)

	ClickEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shortener_click_events_dropped_total",
			Help: "Click events dropped because the buffer was full",
		},
	)

	ClickQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shortener_click_queue_depth",
			Help: "Current number of buffered click events",
		},
	)

	// Code allocation
	CodeAllocationAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shortener_code_allocation_attempts",
			Help:    "Insert attempts needed to allocate a generated code",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 12},
		},
	)

	CodeCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shortener_code_collisions_total",
			Help: "Generated codes rejected by the unique constraint",
		},
	)

	CodeAllocationExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shortener_code_allocation_exhausted_total",
			Help: "Code allocations that ran out of attempts",
		},
	)

	// Storage
	StorageRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_storage_retries_total",
			Help: "Operations retried after a transient storage failure",
		},
		[]string{"operation"},
	)
)
