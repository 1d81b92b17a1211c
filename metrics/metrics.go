package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DispatchMaxConcurrency reports the configured request concurrency limit
	DispatchMaxConcurrency = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "claw_dispatch_max_concurrency",
		Help: "The configured limit of concurrently executing request handlers",
	})

	// DispatchExecuting is the number of request handlers currently executing
	DispatchExecuting = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "claw_dispatch_executing",
		Help: "The number of request handlers currently executing",
	})

	// DispatchWaiting is the number of requests waiting for a dispatch slot
	DispatchWaiting = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "claw_dispatch_waiting",
		Help: "The number of requests waiting for a free dispatch slot",
	})

	// DispatchRejected counts requests rejected because the dispatch queue was full
	DispatchRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "claw_dispatch_rejected_total",
		Help: "The total number of requests rejected at dispatch admission",
	})

	// DispatchTimeouts counts requests cancelled by the per-request execution timeout
	DispatchTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "claw_dispatch_timeouts_total",
		Help: "The total number of requests cancelled by the execution timeout",
	})

	// ProcessedRequests counts HTTP requests by code and method
	ProcessedRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claw_http_requests_total",
		Help: "Total number of HTTP requests served",
	}, []string{"code", "method"})

	// SessionsActive is the number of HTTP requests currently being processed
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "claw_http_sessions_active",
		Help: "The number of HTTP requests currently being processed",
	})

	// LimitListenerMaxConns reports the configured connection limit
	LimitListenerMaxConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "claw_limit_listener_max_conns",
		Help: "The configured limit of concurrent connections",
	})

	// LimitListenerConcurrentConns is the number of connections currently held open
	LimitListenerConcurrentConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "claw_limit_listener_concurrent_conns",
		Help: "The number of concurrent connections to the listeners",
	})

	// LimitListenerWaitingConns is the number of connections waiting for a slot
	LimitListenerWaitingConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "claw_limit_listener_waiting_conns",
		Help: "The number of connections waiting to be accepted",
	})

	// RateLimitSourceIPCachedEntries is the number of source-IP buckets held in the LRU cache
	RateLimitSourceIPCachedEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "claw_rate_limit_source_ip_cached_entries",
		Help: "The number of source IP addresses with a cached rate limiter",
	}, []string{"op"})

	// RateLimitSourceIPCacheRequests counts source-IP cache hits and misses
	RateLimitSourceIPCacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claw_rate_limit_source_ip_cache_requests_total",
		Help: "The number of source IP rate limiter cache hits and misses",
	}, []string{"op", "cache"})

	// RateLimitSourceIPBlockedCount counts requests dropped by the source-IP rate limit
	RateLimitSourceIPBlockedCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "claw_rate_limit_source_ip_blocked_count",
		Help: "The number of requests that hit the source IP rate limit",
	}, []string{"enforced"})

	// ScrapePages counts listing pages fetched by the scrape engine
	ScrapePages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "claw_scrape_pages_total",
		Help: "The total number of listing pages fetched",
	})

	// ScrapeHits counts listing cards extracted by the scrape engine
	ScrapeHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "claw_scrape_hits_total",
		Help: "The total number of listing cards extracted",
	})

	// ScrapeFailures counts scrape runs that ended with an error
	ScrapeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "claw_scrape_failures_total",
		Help: "The total number of scrape runs that failed",
	})

	// ScrapeDuration records the duration of whole scrape runs
	ScrapeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "claw_scrape_duration_seconds",
		Help:    "Scrape run duration",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	// FetchRequests counts upstream page fetches by final status
	FetchRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claw_fetch_requests_total",
		Help: "The number of upstream fetch requests by status code",
	}, []string{"status"})

	// FetchRequestDuration records the last observed upstream fetch duration per status
	FetchRequestDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "claw_fetch_request_duration_seconds",
		Help: "The time it took to fetch an upstream page",
	}, []string{"status"})

	// RobotsCacheRequests counts robots.txt cache hits and misses
	RobotsCacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claw_robots_cache_requests_total",
		Help: "The number of robots.txt cache hits and misses",
	}, []string{"cache"})
)

// MustRegister registers all claw collectors with the default registerer.
// It panics on duplicate registration, which is a programming error.
func MustRegister() {
	prometheus.MustRegister(
		DispatchMaxConcurrency,
		DispatchExecuting,
		DispatchWaiting,
		DispatchRejected,
		DispatchTimeouts,
		ProcessedRequests,
		SessionsActive,
		LimitListenerMaxConns,
		LimitListenerConcurrentConns,
		LimitListenerWaitingConns,
		RateLimitSourceIPCachedEntries,
		RateLimitSourceIPCacheRequests,
		RateLimitSourceIPBlockedCount,
		ScrapePages,
		ScrapeHits,
		ScrapeFailures,
		ScrapeDuration,
		FetchRequests,
		FetchRequestDuration,
		RobotsCacheRequests,
	)
}
