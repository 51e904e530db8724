package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	granularity *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	cache       *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		granularity: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxchart_granularity_selected_total",
				Help: "Granularities chosen for chart ranges",
			},
			[]string{"granularity"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxchart_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		cache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxchart_cache_lookups_total",
				Help: "Candle cache lookups by result",
			},
			[]string{"result"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxchart_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordGranularity counts a granularity selection.
func (r *Recorder) RecordGranularity(g string) {
	r.granularity.WithLabelValues(g).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordCache records a cache hit or miss.
func (r *Recorder) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(result).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
