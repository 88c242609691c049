package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for redemptions.
type Metrics struct {
	// Outcomes by result code ("ok" on success) and method
	Outcomes *prometheus.CounterVec

	// Conflicts raised by the store, by attributed axis
	Conflicts *prometheus.CounterVec

	// Redemptions recorded without a directory member
	Unattributed prometheus.Counter

	// Pre-check reads that failed and were skipped
	AdvisoryErrors prometheus.Counter

	// End-to-end redemption latency and commit latency
	RedeemLatency prometheus.Histogram
	CommitLatency prometheus.Histogram
}

// New registers redemption metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers redemption metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_redemptions_total",
			Help: "Redemption attempts by outcome code and method",
		}, []string{"code", "method"}),

		Conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_redemption_conflicts_total",
			Help: "Uniqueness conflicts on commit by axis",
		}, []string{"axis"}),

		Unattributed: f.NewCounter(prometheus.CounterOpts{
			Name: "checkpoint_redemptions_unattributed_total",
			Help: "Redemptions recorded without a directory member",
		}),

		AdvisoryErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "checkpoint_precheck_errors_total",
			Help: "Advisory pre-check reads that failed and were bypassed",
		}),

		RedeemLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkpoint_redeem_duration_seconds",
			Help:    "Duration of a full redemption",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		CommitLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkpoint_commit_duration_seconds",
			Help:    "Duration of the atomic commit",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementOutcome records one redemption outcome.
func (m *Metrics) IncrementOutcome(code, method string) {
	if m != nil {
		m.Outcomes.WithLabelValues(code, method).Inc()
	}
}

// IncrementConflict records one commit conflict.
func (m *Metrics) IncrementConflict(axis string) {
	if m != nil {
		m.Conflicts.WithLabelValues(axis).Inc()
	}
}

// IncrementUnattributed records an open-directory miss.
func (m *Metrics) IncrementUnattributed() {
	if m != nil {
		m.Unattributed.Inc()
	}
}

// IncrementAdvisoryError records a failed pre-check read.
func (m *Metrics) IncrementAdvisoryError() {
	if m != nil {
		m.AdvisoryErrors.Inc()
	}
}

// ObserveRedeem records end-to-end latency.
func (m *Metrics) ObserveRedeem(d time.Duration) {
	if m != nil {
		m.RedeemLatency.Observe(d.Seconds())
	}
}

// ObserveCommit records commit latency.
func (m *Metrics) ObserveCommit(d time.Duration) {
	if m != nil {
		m.CommitLatency.Observe(d.Seconds())
	}
}
