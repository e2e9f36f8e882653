// Package metrics implements the C13 ambient component: counters and
// histograms observing query volume, per-stage duration, and stage
// cache-hit rate, grounded on AleutianLocal's use of
// prometheus/client_golang for service instrumentation.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector wraps a prometheus.Registerer with the engine's metric
// set. The zero value is not usable; construct with New.
type Collector struct {
	QueriesTotal   prometheus.Counter
	StageDuration  *prometheus.HistogramVec
	CacheHitsTotal *prometheus.CounterVec
}

// New registers the engine's metrics on reg and returns the Collector.
// Pass prometheus.NewRegistry() in tests to avoid polluting the
// default global registry.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		QueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aptgraph",
			Name:      "queries_total",
			Help:      "Total number of analyze queries served.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aptgraph",
			Name:      "stage_duration_seconds",
			Help:      "Per-stage computation duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		CacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aptgraph",
			Name:      "cache_hits_total",
			Help:      "Number of stages served from cache rather than recomputed.",
		}, []string{"stage"}),
	}

	reg.MustRegister(c.QueriesTotal, c.StageDuration, c.CacheHitsTotal)
	return c
}

// ObserveStage records one stage's outcome: its duration always, and
// a cache-hit increment when cacheHit is true (recomputed stages never
// increment CacheHitsTotal).
func (c *Collector) ObserveStage(stage int, dur time.Duration, cacheHit bool) {
	label := strconv.Itoa(stage)
	c.StageDuration.WithLabelValues(label).Observe(dur.Seconds())
	if cacheHit {
		c.CacheHitsTotal.WithLabelValues(label).Inc()
	}
}
