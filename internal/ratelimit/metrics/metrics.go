package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions     *prometheus.CounterVec
	StoreErrors   prometheus.Counter
	BreakerOpened prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_ratelimit_decisions_total",
			Help: "Rate limit checks by class, outcome and backing store",
		}, []string{"class", "outcome", "store"}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "checkpoint_ratelimit_store_errors_total",
			Help: "Primary rate limit store failures",
		}),
		BreakerOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "checkpoint_ratelimit_breaker_opened_total",
			Help: "Times the primary store circuit opened and the local fallback took over",
		}),
	}
}

func (m *Metrics) IncrementDecision(class, outcome, store string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(class, outcome, store).Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

func (m *Metrics) IncrementBreakerOpened() {
	if m == nil {
		return
	}
	m.BreakerOpened.Inc()
}
