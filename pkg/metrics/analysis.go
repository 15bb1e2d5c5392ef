package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the analysis counters.
const (
	OutcomeSuccess   = "success"
	OutcomeDiscarded = "discarded"
)

// AnalysisMetrics records photo analysis and daily aggregation activity.
// A nil receiver is a no-op so callers never need to guard.
type AnalysisMetrics struct {
	duration     *prometheus.HistogramVec
	outcomes     *prometheus.CounterVec
	imageBytes   prometheus.Histogram
	storeFailure *prometheus.CounterVec
}

// NewAnalysisMetrics registers the analysis metrics on the provided registerer.
func NewAnalysisMetrics(reg prometheus.Registerer) *AnalysisMetrics {
	if reg == nil {
		return &AnalysisMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analysis_provider_duration_seconds",
		Help:    "Latency of inference provider calls in seconds.",
		Buckets: []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_results_total",
		Help: "Photo analyses by outcome.",
	}, []string{"outcome"})
	imageBytes := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_image_bytes",
		Help:    "Size of submitted images in bytes.",
		Buckets: prometheus.ExponentialBuckets(16<<10, 2, 10),
	})
	storeFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "log_store_failures_total",
		Help: "Failed nutrition log store operations.",
	}, []string{"operation"})
	reg.MustRegister(duration, outcomes, imageBytes, storeFailure)
	return &AnalysisMetrics{
		duration:     duration,
		outcomes:     outcomes,
		imageBytes:   imageBytes,
		storeFailure: storeFailure,
	}
}

// ObserveProviderCall records how long the provider took and how it ended.
func (m *AnalysisMetrics) ObserveProviderCall(outcome string, took time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(outcome)).Observe(took.Seconds())
}

// IncOutcome counts a finished analysis.
func (m *AnalysisMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *AnalysisMetrics) ObserveImageSize(n int) {
	if m == nil || m.imageBytes == nil {
		return
	}
	m.imageBytes.Observe(float64(n))
}

// IncStoreFailure counts a failed log store operation.
func (m *AnalysisMetrics) IncStoreFailure(operation string) {
	if m == nil || m.storeFailure == nil {
		return
	}
	m.storeFailure.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
