package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for grid
// generation and the request pipeline.
type Metrics struct {
	RequestsConsumed prometheus.Counter
	ReportsProduced  prometheus.Counter
	RequestErrors    prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Request batch metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Generation metrics.
	Generations        *prometheus.CounterVec // labels: outcome={completed,cancelled,failed}
	CellsGenerated     prometheus.Counter
	GenerationDuration prometheus.Histogram
	GenerationProgress prometheus.Gauge

	// Scoring metrics.
	Scores                *prometheus.CounterVec   // labels: source={classifier,fallback}
	ClassifierCache       *prometheus.CounterVec   // labels: tier={memory,redis}, result={hit,miss}
	ClassifierAPIDuration *prometheus.HistogramVec // labels: outcome={success,error}
	ClassifierEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RequestsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firegrid",
			Name:      "requests_consumed_total",
			Help:      "Total generation requests read from the source topic.",
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firegrid",
			Name:      "report_fragments_produced_total",
			Help:      "Total report fragments written to the sink topic.",
		}),
		RequestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firegrid",
			Name:      "request_errors_total",
			Help:      "Total requests rejected or failed during generation.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "firegrid",
			Name:      "pipeline_running",
			Help:      "1 when the request pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "firegrid",
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "firegrid",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete extract-generate-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firegrid",
			Name:      "generations_total",
			Help:      "Generation runs by outcome.",
		}, []string{"outcome"}),
		CellsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firegrid",
			Name:      "cells_generated_total",
			Help:      "Total grid cells synthesized by completed runs.",
		}),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "firegrid",
			Name:      "generation_duration_seconds",
			Help:      "Duration of a generation run, including scoring.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		GenerationProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "firegrid",
			Name:      "generation_progress_ratio",
			Help:      "Fraction of cells completed by the most recent run.",
		}),
		Scores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firegrid",
			Name:      "scores_total",
			Help:      "Records scored, by the model that produced the probability.",
		}, []string{"source"}),
		ClassifierCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firegrid",
			Name:      "classifier_cache_total",
			Help:      "Classifier cache lookups by tier and result.",
		}, []string{"tier", "result"}),
		ClassifierAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "firegrid",
			Name:      "classifier_api_duration_seconds",
			Help:      "Remote classifier request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"outcome"}),
		ClassifierEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "firegrid",
			Name:      "classifier_enabled",
			Help:      "1 when a remote classifier is configured, 0 when only the fallback formula is used.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RequestsConsumed,
		m.ReportsProduced,
		m.RequestErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.Generations,
		m.CellsGenerated,
		m.GenerationDuration,
		m.GenerationProgress,
		m.Scores,
		m.ClassifierCache,
		m.ClassifierAPIDuration,
		m.ClassifierEnabled,
	}
}
