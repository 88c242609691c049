// Package publisher fans audit events out to a Store, either synchronously or
// through a bounded in-memory buffer drained by a background goroutine.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	audit "checkpoint/pkg/platform/audit"
)

const drainBatch = 256

// Publisher stamps and forwards audit events.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	buffer  *ringBuffer
	wake    chan struct{}
	done    chan struct{}
	closing sync.Once
	wg      sync.WaitGroup
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking. Events are buffered up to size;
// on overflow the oldest buffered event is dropped.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) { p.buffer = newRingBuffer(size) }
}

// WithLogger sets a logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

// NewPublisher creates a publisher writing to store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wake = make(chan struct{}, 1)
		p.done = make(chan struct{})
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit records event. In async mode it never blocks and never fails.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.Severity == "" {
		event.Severity = audit.SeverityInfo
	}

	if p.buffer == nil {
		if err := p.store.Append(ctx, event); err != nil {
			p.metrics.incFailed()
			return err
		}
		p.metrics.incDelivered()
		return nil
	}

	if p.buffer.enqueue(event) {
		p.metrics.incDropped()
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Dropped returns how many buffered events were discarded on overflow.
func (p *Publisher) Dropped() int64 {
	if p.buffer == nil {
		return 0
	}
	return p.buffer.droppedCount()
}

// Close stops the background drain after flushing buffered events.
func (p *Publisher) Close() {
	if p.buffer == nil {
		return
	}
	p.closing.Do(func() { close(p.done) })
	p.wg.Wait()
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.done:
			p.drain()
			return
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for {
		batch := p.buffer.dequeueBatch(drainBatch)
		if len(batch) == 0 {
			return
		}
		for _, event := range batch {
			if err := p.store.Append(ctx, event); err != nil {
				p.metrics.incFailed()
				p.logger.ErrorContext(ctx, "failed to deliver audit event",
					"action", event.Action,
					"meeting_id", event.MeetingID,
					"request_id", event.RequestID,
					"error", err,
				)
				continue
			}
			p.metrics.incDelivered()
		}
	}
}

// Metrics counts audit delivery outcomes.
type Metrics struct {
	delivered prometheus.Counter
	failed    prometheus.Counter
	dropped   prometheus.Counter
}

// NewMetrics registers audit delivery counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkpoint_audit_events_delivered_total",
			Help: "Audit events accepted by the configured sink",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkpoint_audit_events_failed_total",
			Help: "Audit events the sink rejected",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkpoint_audit_events_dropped_total",
			Help: "Audit events discarded because the async buffer was full",
		}),
	}
	reg.MustRegister(m.delivered, m.failed, m.dropped)
	return m
}

func (m *Metrics) incDelivered() {
	if m != nil {
		m.delivered.Inc()
	}
}

func (m *Metrics) incFailed() {
	if m != nil {
		m.failed.Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}
