package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheLookups counts Get outcomes.
	// Labels: kind, result (hit, miss, expired)
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codemap",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Diagram cache lookups by outcome",
	}, []string{"kind", "result"})

	// cacheStoreFailures counts artifacts that were generated but not stored.
	// Labels: kind
	cacheStoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codemap",
		Subsystem: "cache",
		Name:      "store_failures_total",
		Help:      "Generated diagrams that could not be persisted",
	}, []string{"kind"})

	// generationDuration measures cache-miss regeneration time.
	// Labels: kind
	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codemap",
		Subsystem: "cache",
		Name:      "generation_duration_seconds",
		Help:      "Time spent regenerating a diagram on cache miss",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"kind"})

	// cacheEvictions counts rows removed by cleanup or invalidation.
	// Labels: reason (expired, invalidated)
	cacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codemap",
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Cache rows removed by cleanup or invalidation",
	}, []string{"reason"})
)
