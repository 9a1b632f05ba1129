package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storm_radar"

// Cache lookup results for GeometryCache.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the resampling service.
type Metrics struct {
	VolumesConsumed prometheus.Counter
	GridsProduced   prometheus.Counter
	TransformErrors prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Resampler metrics.
	PhaseDuration   *prometheus.HistogramVec // labels: phase={seed,fill,geometry,interp}
	CellsResolved   prometheus.Counter
	CellsUnresolved prometheus.Counter
	GeometryCache   *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
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
		VolumesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "volumes_consumed_total",
			Help:      "Total radar volumes read from the source topic.",
		}),
		GridsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grids_produced_total",
			Help:      "Total grid products written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total volumes that could not be parsed or resampled.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of volumes per batch extracted from Kafka.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-resample-load cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resample_phase_duration_seconds",
			Help:      "Duration of each resampling phase.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"phase"}),
		CellsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_resolved_total",
			Help:      "Output cells that received interpolation weights.",
		}),
		CellsUnresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_unresolved_total",
			Help:      "Output cells left missing because no valid neighbors bound them.",
		}),
		GeometryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geometry_cache_total",
			Help:      "Grid geometry cache lookups by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.VolumesConsumed,
		m.GridsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.PhaseDuration,
		m.CellsResolved,
		m.CellsUnresolved,
		m.GeometryCache,
	}
}
