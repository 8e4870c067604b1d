package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the upload pipeline.
// A nil *Collector is valid and records nothing, which keeps tests free of
// duplicate-registration panics.
type Collector struct {
	uploads            *prometheus.CounterVec
	areaComputations   prometheus.Counter
	conversionFailures prometheus.Counter
	areaLatency        prometheus.Histogram
}

// NewCollector creates and registers all pipeline metrics.
func NewCollector() *Collector {
	return &Collector{
		uploads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iceberg_uploads_total",
				Help: "Total number of accepted uploads by kind",
			},
			[]string{"kind"},
		),
		areaComputations: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "iceberg_area_computations_total",
				Help: "Total number of successful area computations",
			},
		),
		conversionFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "iceberg_conversion_failures_total",
				Help: "Total number of failed TIFF to PNG conversions",
			},
		),
		areaLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "iceberg_area_computation_seconds",
				Help:    "Latency of mask area computations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
	}
}

// RecordUpload increments the upload counter for the given kind ("image",
// "mask" or "archive").
func (c *Collector) RecordUpload(kind string) {
	if c == nil {
		return
	}
	c.uploads.WithLabelValues(kind).Inc()
}

// RecordAreaComputation records one successful area computation and its duration.
func (c *Collector) RecordAreaComputation(d time.Duration) {
	if c == nil {
		return
	}
	c.areaComputations.Inc()
	c.areaLatency.Observe(d.Seconds())
}

// RecordConversionFailure increments the conversion failure counter.
func (c *Collector) RecordConversionFailure() {
	if c == nil {
		return
	}
	c.conversionFailures.Inc()
}
