package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	audit "checkpoint/pkg/platform/audit"
	txcontext "checkpoint/pkg/platform/tx"
)

// Store implements audit.Store as a transactional outbox. Events land in
// audit_outbox and a relay forwards them to the stream.
type Store struct {
	pool *pgxpool.Pool
}

// New creates an outbox store on pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) execer(ctx context.Context) execer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.pool
}

// Append writes event to the outbox, inside the caller's transaction when
// one is present in ctx.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	const query = `
		INSERT INTO audit_outbox (id, event_type, meeting_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.execer(ctx).Exec(ctx, query,
		event.ID,
		event.Action,
		event.MeetingID,
		payload,
		time.Now(),
	); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Pending is an outbox row awaiting relay.
type Pending struct {
	ID      string
	Key     string
	Action  string
	Payload []byte
}

// FetchPending returns up to limit unpublished rows, oldest first, locking
// them against concurrent relays until the surrounding work completes.
// Rows whose ids fn returns are marked published even when fn also reports
// an error for the rest.
func (s *Store) FetchPending(ctx context.Context, limit int, fn func(ctx context.Context, rows []Pending) ([]string, error)) error {
	var relayErr error
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, meeting_id, event_type, payload
			FROM audit_outbox
			WHERE published_at IS NULL
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, limit)
		if err != nil {
			return fmt.Errorf("query outbox: %w", err)
		}
		pending, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Pending, error) {
			var p Pending
			err := row.Scan(&p.ID, &p.Key, &p.Action, &p.Payload)
			return p, err
		})
		if err != nil {
			return fmt.Errorf("scan outbox: %w", err)
		}
		if len(pending) == 0 {
			return nil
		}

		var published []string
		published, relayErr = fn(ctx, pending)
		if len(published) == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx,
			`UPDATE audit_outbox SET published_at = now() WHERE id = ANY($1)`, published,
		); err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return relayErr
}

// ListByMeeting returns outbox events for a meeting, newest first.
func (s *Store) ListByMeeting(ctx context.Context, meetingID string) ([]audit.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM audit_outbox
		WHERE meeting_id = $1
		ORDER BY created_at DESC
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Event, error) {
		var raw []byte
		var e audit.Event
		if err := row.Scan(&raw); err != nil {
			return e, err
		}
		return e, json.Unmarshal(raw, &e)
	})
}
