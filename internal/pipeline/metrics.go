package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JaimeStill/auditor/internal/clinical"
)

// Metrics records verification outcomes. A nil *Metrics records nothing.
type Metrics struct {
	// Verified sheets by final status
	Verifications *prometheus.CounterVec

	// Non-fatal stage failures by kind
	Degradations *prometheus.CounterVec

	// Time from loading the pending sheet to the end of identity resolution
	Duration prometheus.Histogram
}

// NewMetrics creates pipeline metrics registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auditor_verifications_total",
			Help: "Total verified advisory sheets by status",
		}, []string{"status"}),

		Degradations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auditor_stage_degradations_total",
			Help: "Total pipeline stage degradations by kind",
		}, []string{"kind"}),

		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "auditor_verification_duration_seconds",
			Help:    "Duration of processing one pending sheet",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		}),
	}
}

// IncrementVerification records one promoted sheet.
func (m *Metrics) IncrementVerification(status clinical.Status) {
	if m != nil {
		m.Verifications.WithLabelValues(string(status)).Inc()
	}
}

// IncrementDegradation records one stage failure.
func (m *Metrics) IncrementDegradation(kind Kind) {
	if m != nil {
		m.Degradations.WithLabelValues(string(kind)).Inc()
	}
}

// ObserveDuration records the processing time of one sheet.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m != nil {
		m.Duration.Observe(d.Seconds())
	}
}
