// Package metrics provides Prometheus export for the query orchestrator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davag/ragquery/ai/query"
)

// PrometheusExporter exports batch and per-model telemetry in Prometheus
// format. It also implements query.CostSink so usage records flow into
// the token and cost counters without extra plumbing.
type PrometheusExporter struct {
	registry *prometheus.Registry

	batchLatency  prometheus.Histogram
	batchModels   prometheus.Histogram
	modelRequests *prometheus.CounterVec
	modelLatency  *prometheus.HistogramVec

	tokensUsed     *prometheus.CounterVec
	estimatedUsage *prometheus.CounterVec
	costUSD        *prometheus.CounterVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one).
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds).
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.batchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ragquery",
		Subsystem: "batch",
		Name:      "latency_seconds",
		Help:      "Wall-clock latency of whole query batches",
		Buckets:   cfg.LatencyBuckets,
	})

	e.batchModels = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ragquery",
		Subsystem: "batch",
		Name:      "models_per_batch",
		Help:      "Number of models fanned out per batch",
		Buckets:   []float64{1, 2, 3, 5, 8, 13},
	})

	e.modelRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragquery",
			Subsystem: "model",
			Name:      "requests_total",
			Help:      "Per-model invocation outcomes",
		},
		[]string{"model", "status"},
	)

	e.modelLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragquery",
			Subsystem: "model",
			Name:      "latency_seconds",
			Help:      "Per-model invocation latency",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"model"},
	)

	e.tokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragquery",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage per model and direction",
		},
		[]string{"model", "direction"},
	)

	e.estimatedUsage = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragquery",
			Subsystem: "llm",
			Name:      "estimated_usage_total",
			Help:      "Calls whose token counts were estimated rather than reported",
		},
		[]string{"model"},
	)

	e.costUSD = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragquery",
			Subsystem: "llm",
			Name:      "cost_usd_total",
			Help:      "Approximate dollar cost per model",
		},
		[]string{"model"},
	)

	registry.MustRegister(
		e.batchLatency,
		e.batchModels,
		e.modelRequests,
		e.modelLatency,
		e.tokensUsed,
		e.estimatedUsage,
		e.costUSD,
	)

	return e
}

// ObserveBatch records aggregate telemetry for one completed batch.
func (e *PrometheusExporter) ObserveBatch(result *query.BatchResult) {
	if result == nil {
		return
	}
	e.batchLatency.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	e.batchModels.Observe(float64(len(result.Results)))

	for _, res := range result.Results {
		e.modelRequests.WithLabelValues(res.Model, string(res.Status)).Inc()
		e.modelLatency.WithLabelValues(res.Model).
			Observe(float64(res.Metrics.ResponseTimeMs) / 1000)
	}
}

// Record implements query.CostSink.
func (e *PrometheusExporter) Record(rec query.UsageRecord) error {
	e.tokensUsed.WithLabelValues(rec.Model, "input").Add(float64(rec.Usage.Input))
	e.tokensUsed.WithLabelValues(rec.Model, "output").Add(float64(rec.Usage.Output))
	if rec.Usage.Estimated {
		e.estimatedUsage.WithLabelValues(rec.Model).Inc()
	}
	e.costUSD.WithLabelValues(rec.Model).Add(rec.CostUSD)
	return nil
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
