package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Cache layer metrics
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	RefreshAttempts  prometheus.Counter
	RefreshFailures  *prometheus.CounterVec
	RefreshDuration  prometheus.Histogram
	CachedRowsServed prometheus.Counter

	// Query service metrics
	QueriesTotal      *prometheus.CounterVec
	QueryLogFailures  prometheus.Counter
	ResolverLatency   prometheus.Histogram
	ResolverFailures  *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_hits_total",
			Help:      "Total number of lookups served from a fresh cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_misses_total",
			Help:      "Total number of lookups that triggered a refresh",
		}),
		RefreshAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_refresh_attempts_total",
			Help:      "Total number of object store refresh attempts",
		}),
		RefreshFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_refresh_failures_total",
			Help:      "Total number of failed cache refreshes",
		}, []string{"reason"}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_refresh_duration_seconds",
			Help:      "Time spent fetching and replacing cache rows",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		CachedRowsServed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cached_rows_served_total",
			Help:      "Total number of cached rate rows returned to callers",
		}),
		QueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rate_queries_total",
			Help:      "Total number of rate queries",
		}, []string{"cache_hit"}),
		QueryLogFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "query_log_failures_total",
			Help:      "Total number of query log writes that failed",
		}),
		ResolverLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "resolver_duration_seconds",
			Help:      "Duration of fee schedule resolutions",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		ResolverFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "resolver_failures_total",
			Help:      "Total number of resolutions ending in a domain miss",
		}, []string{"reason"}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
	}
}
