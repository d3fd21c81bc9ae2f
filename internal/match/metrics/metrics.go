package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the match module.
type Metrics struct {
	// Decisions by status and algorithm code
	MatchOutcome *prometheus.CounterVec

	// Failed requests by error code
	MatchFailures *prometheus.CounterVec

	// Candidate provider latency
	LookupLatency prometheus.Histogram

	// Candidates returned per lookup
	CandidateCount prometheus.Histogram

	// End-to-end Match latency
	MatchLatency prometheus.Histogram
}

// New registers the match metrics on reg; nil uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		MatchOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "penmatch_match_outcomes_total",
			Help: "Match decisions by status and algorithm code",
		}, []string{"status", "algorithm"}),

		MatchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "penmatch_match_failures_total",
			Help: "Match requests that failed, by error code",
		}, []string{"code"}),

		LookupLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "penmatch_match_lookup_duration_seconds",
			Help:    "Duration of candidate registry lookups",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		CandidateCount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "penmatch_match_candidates",
			Help:    "Candidates returned per lookup",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),

		MatchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "penmatch_match_duration_seconds",
			Help:    "Duration of a full match including lookup",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncrementOutcome records a decision.
func (m *Metrics) IncrementOutcome(status, algorithm string) {
	if m != nil {
		m.MatchOutcome.WithLabelValues(status, algorithm).Inc()
	}
}

// IncrementFailure records a failed request.
func (m *Metrics) IncrementFailure(code string) {
	if m != nil {
		m.MatchFailures.WithLabelValues(code).Inc()
	}
}

// ObserveLookup records one provider call.
func (m *Metrics) ObserveLookup(d time.Duration, candidates int) {
	if m != nil {
		m.LookupLatency.Observe(d.Seconds())
		m.CandidateCount.Observe(float64(candidates))
	}
}

// ObserveMatchLatency records the total match duration.
func (m *Metrics) ObserveMatchLatency(d time.Duration) {
	if m != nil {
		m.MatchLatency.Observe(d.Seconds())
	}
}
