package di

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalCollector *MetricsCollector
	collectorMu     sync.Mutex
)

// MetricsCollector holds the module's Prometheus metrics: one registry per
// instance, one instance per process (the first call's namespace is kept).
type MetricsCollector struct {
	registry *prometheus.Registry

	IngestTotal       *prometheus.CounterVec
	RetrieveDuration  prometheus.Histogram
	ConsolidationRuns *prometheus.CounterVec
	DecayedMemories   prometheus.Counter
	RateLimited       prometheus.Counter
	ModelFallbacks    *prometheus.CounterVec
}

// NewMetricsCollector returns the process-wide collector, creating it once.
func NewMetricsCollector(namespace string) *MetricsCollector {
	collectorMu.Lock()
	defer collectorMu.Unlock()
	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()
	c := &MetricsCollector{
		registry: registry,
		IngestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "memory_ingest_total", Help: "Memories extracted and persisted.",
		}, []string{"category"}),
		RetrieveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "memory_retrieve_duration_seconds", Help: "Retrieve() latency.",
		}),
		ConsolidationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "consolidation_runs_total", Help: "Consolidation cycles, by outcome.",
		}, []string{"outcome"}),
		DecayedMemories: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "decayed_memories_total", Help: "Memories whose importance was decayed.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rate_limited_total", Help: "Requests rejected by the rate limiter.",
		}),
		ModelFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "model_fallbacks_total", Help: "ModelRouter rung transitions, by provider.",
		}, []string{"provider"}),
	}

	registry.MustRegister(c.IngestTotal, c.RetrieveDuration, c.ConsolidationRuns, c.DecayedMemories, c.RateLimited, c.ModelFallbacks)
	globalCollector = c
	return c
}

// Registry exposes the underlying prometheus.Registry for a promhttp handler.
func (c *MetricsCollector) Registry() *prometheus.Registry {
	return c.registry
}
