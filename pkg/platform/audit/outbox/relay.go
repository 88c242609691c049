// Package outbox relays audit events from the Postgres outbox to Kafka.
package outbox

import (
	"context"
	"log/slog"
	"time"

	audit "checkpoint/pkg/platform/audit"
	"checkpoint/pkg/platform/audit/store/postgres"
)

// Source yields pending outbox rows.
type Source interface {
	FetchPending(ctx context.Context, limit int, fn func(ctx context.Context, rows []postgres.Pending) ([]string, error)) error
}

// Sink forwards one encoded event.
type Sink interface {
	Produce(ctx context.Context, key string, value []byte, action, category string) error
}

// Relay polls the outbox and forwards rows until its context ends.
type Relay struct {
	source   Source
	sink     Sink
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// New creates a relay polling every interval.
func New(source Source, sink Sink, logger *slog.Logger, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{source: source, sink: sink, logger: logger, interval: interval, batch: 500}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.Tick(ctx); err != nil {
				r.logger.WarnContext(ctx, "audit outbox relay failed", "error", err)
			}
		}
	}
}

// Tick forwards one batch.
func (r *Relay) Tick(ctx context.Context) error {
	return r.source.FetchPending(ctx, r.batch, func(ctx context.Context, rows []postgres.Pending) ([]string, error) {
		published := make([]string, 0, len(rows))
		for _, row := range rows {
			if err := r.sink.Produce(ctx, row.Key, row.Payload, row.Action, string(audit.AuditEvent(row.Action).Category())); err != nil {
				return published, err
			}
			published = append(published, row.ID)
		}
		return published, nil
	})
}
