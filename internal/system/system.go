// Package system exposes process-local counters for the fetch pipeline.
package system

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ApiRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikiviews_api_requests_total",
		Help: "Upstream API requests issued, retries included",
	})
	ApiRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikiviews_api_retries_total",
		Help: "Requests reissued after a retryable upstream failure",
	})
	ApiFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikiviews_api_failures_total",
		Help: "Entities that ended in a terminal fetch failure",
	})
	CacheHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikiviews_query_cache_hits_total",
		Help: "Queries answered from the local result cache",
	})
	CacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikiviews_query_cache_misses_total",
		Help: "Queries that fell through to the network",
	})
)
