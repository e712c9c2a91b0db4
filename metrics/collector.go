// Package metrics exposes Prometheus counters and histograms for
// Manager.Apply and the bounded LLM reprompt loop, mounted at
// MetricsConfig.ListenAddr when MetricsConfig.Enabled is true.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "policyai"

// Collector is the orchestrator for every metric this module records.
// A disabled Collector (enabled=false) records nothing so callers don't
// need to guard every call site with a config check.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	applyDuration   *prometheus.HistogramVec
	applyConflicts  prometheus.Counter
	applyErrors     *prometheus.CounterVec
	repromptsUsed   prometheus.Histogram
	policiesLoaded  prometheus.Gauge
	generationCalls *prometheus.CounterVec
}

// NewCollector creates a Collector registered against registry. A nil
// registry gets a fresh prometheus.NewRegistry() so tests never collide
// with the process-wide default registry.
func NewCollector(enabled bool, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		enabled:  enabled,
		registry: registry,
		applyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "apply_duration_seconds",
			Help:      "Duration of Manager.Apply calls, including the LLM round trip.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"policy_type"}),
		applyConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "apply_conflicts_total",
			Help:      "Number of fields with an unresolved Agreement conflict across all applies.",
		}),
		applyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "apply_errors_total",
			Help:      "Number of Manager.Apply calls that returned an ApplyError, by kind.",
		}, []string{"kind"}),
		repromptsUsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_reprompts_used",
			Help:      "Number of reprompt attempts CompleteJSON needed before a parseable response.",
			Buckets:   []float64{0, 1},
		}),
		policiesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "policies_loaded",
			Help:      "Number of policies currently held by the Manager.",
		}),
		generationCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_calls_total",
			Help:      "Number of generation.WithSemanticInjection calls, by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		c.applyDuration,
		c.applyConflicts,
		c.applyErrors,
		c.repromptsUsed,
		c.policiesLoaded,
		c.generationCalls,
	)
	return c
}

// Handler returns the HTTP handler to mount at MetricsConfig.ListenAddr.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// RecordApply records the outcome of a single Manager.Apply call.
func (c *Collector) RecordApply(policyType string, duration time.Duration, conflicts int) {
	if !c.enabled {
		return
	}
	c.applyDuration.WithLabelValues(policyType).Observe(duration.Seconds())
	if conflicts > 0 {
		c.applyConflicts.Add(float64(conflicts))
	}
}

// RecordApplyError records an ApplyError by kind ("conflict", "schema_violation", "llm").
func (c *Collector) RecordApplyError(kind string) {
	if !c.enabled {
		return
	}
	c.applyErrors.WithLabelValues(kind).Inc()
}

// RecordReprompts records how many reprompt attempts CompleteJSON used
// (0 means the first response parsed cleanly).
func (c *Collector) RecordReprompts(attempts int) {
	if !c.enabled {
		return
	}
	c.repromptsUsed.Observe(float64(attempts))
}

// SetPoliciesLoaded reports the current size of a Manager.
func (c *Collector) SetPoliciesLoaded(n int) {
	if !c.enabled {
		return
	}
	c.policiesLoaded.Set(float64(n))
}

// RecordGeneration records a generation.WithSemanticInjection outcome
// ("success", "unparseable", "schema_violation", "no_fields_mentioned").
func (c *Collector) RecordGeneration(outcome string) {
	if !c.enabled {
		return
	}
	c.generationCalls.WithLabelValues(outcome).Inc()
}
