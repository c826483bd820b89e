package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the screening pipeline.
type Metrics struct {
	// Full pipeline latency
	ScreenLatency prometheus.Histogram

	// Outcomes by decision and list type
	Outcomes *prometheus.CounterVec

	// Index passes lost to collaborator failures, by pass
	DegradedSearches *prometheus.CounterVec

	// Risk detector results by level
	RiskSignals *prometheus.CounterVec
}

// New creates a Metrics instance with all screening metrics registered.
func New() *Metrics {
	return &Metrics{
		ScreenLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "watchgate_screening_duration_seconds",
			Help:    "Duration of full screening pipeline runs",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchgate_screening_outcomes_total",
			Help: "Total screening outcomes by decision and list type",
		}, []string{"decision", "list"}),

		DegradedSearches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchgate_screening_degraded_searches_total",
			Help: "Index passes lost to collaborator failures",
		}, []string{"pass"}), // pass: "ac", "vector"

		RiskSignals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchgate_screening_risk_signals_total",
			Help: "Risk detector results by level",
		}, []string{"level"}),
	}
}

// ObserveScreenLatency records the total pipeline duration.
func (m *Metrics) ObserveScreenLatency(d time.Duration) {
	if m != nil {
		m.ScreenLatency.Observe(d.Seconds())
	}
}

// IncrementOutcome records one screening outcome.
func (m *Metrics) IncrementOutcome(decision, list string) {
	if m != nil {
		m.Outcomes.WithLabelValues(decision, list).Inc()
	}
}

// IncrementDegraded records a lost index pass.
func (m *Metrics) IncrementDegraded(pass string) {
	if m != nil {
		m.DegradedSearches.WithLabelValues(pass).Inc()
	}
}

// IncrementRiskSignal records a risk detector result.
func (m *Metrics) IncrementRiskSignal(level string) {
	if m != nil {
		m.RiskSignals.WithLabelValues(level).Inc()
	}
}
