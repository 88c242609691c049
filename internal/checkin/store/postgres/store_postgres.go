// Package postgres is the primary check-in store. Commit writes the nonce,
// device and attendance rows in one transaction and lets the unique
// constraints arbitrate concurrent redemptions.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"checkpoint/internal/checkin/models"
	audit "checkpoint/pkg/platform/audit"
	"checkpoint/pkg/platform/sentinel"
	txcontext "checkpoint/pkg/platform/tx"
)

const (
	codeUniqueViolation = "23505"
	codeDeadlock        = "40P01"
)

var constraintAxes = map[string]models.Axis{
	ConstraintNonce:      models.AxisNonce,
	ConstraintDevice:     models.AxisDevice,
	ConstraintAttendance: models.AxisMember,
}

// Store reads and writes check-in state on the primary.
type Store struct {
	pool   *pgxpool.Pool
	outbox audit.Store
}

// Option configures a Store.
type Option func(*Store)

// WithOutbox writes a compliance audit event inside every commit
// transaction. outbox must honor the transaction carried in ctx.
func WithOutbox(outbox audit.Store) Option {
	return func(s *Store) { s.outbox = outbox }
}

// New creates a primary store on pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Commit inserts nonce, device and attendance in that order. The fixed order
// keeps concurrent transactions from acquiring index locks in a cycle.
func (s *Store) Commit(ctx context.Context, r models.Redemption) (*models.Commit, error) {
	commit := &models.Commit{CheckedInAt: r.At, Unattributed: r.Member == nil}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO used_token_nonces (nonce, meeting_id, kiosk_id, used_at)
			VALUES ($1, $2, $3, $4)
		`, r.Nonce, r.MeetingID, r.KioskID, r.At); err != nil {
			return err
		}

		var memberID *int64
		if r.Member != nil {
			memberID = &r.Member.ID
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO used_device_fingerprints (meeting_id, fingerprint, member_id, used_at)
			VALUES ($1, $2, $3, $4)
		`, r.MeetingID, r.Fingerprint, memberID, r.At); err != nil {
			return err
		}

		if r.Member != nil {
			commit.AttendanceID = uuid.NewString()
			var lat, lng, accuracy *float64
			if r.Geo != nil {
				lat, lng, accuracy = &r.Geo.Lat, &r.Geo.Lng, &r.Geo.AccuracyM
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO attendance (
					id, meeting_id, member_id, status, method,
					lat, lng, accuracy_m, distance_m,
					kiosk_id, notes, ip_hash, ua_hash, checked_in_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			`,
				commit.AttendanceID, r.MeetingID, r.Member.ID, string(models.StatusPresent), string(r.Method),
				lat, lng, accuracy, r.DistanceM,
				r.KioskID, r.Notes, r.IPHash, r.UAHash, r.At,
			); err != nil {
				return err
			}
		}

		if s.outbox == nil {
			return nil
		}
		if err := s.outbox.Append(txcontext.WithTx(ctx, tx), complianceEvent(r)); err != nil {
			return fmt.Errorf("append compliance event: %w", err)
		}
		commit.Audited = true
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return commit, nil
}

func complianceEvent(r models.Redemption) audit.Event {
	e := audit.Event{
		ID:        uuid.NewString(),
		Action:    string(audit.EventCheckinRecorded),
		Category:  audit.CategoryCompliance,
		Severity:  audit.SeverityInfo,
		Timestamp: r.At,
		MeetingID: r.MeetingID,
		KioskID:   r.KioskID,
		Decision:  string(r.Method),
		IPHash:    r.IPHash,
	}
	if r.Member != nil {
		e.MemberID = strconv.FormatInt(r.Member.ID, 10)
	} else {
		e.Action = string(audit.EventCheckinUnattributed)
		e.Severity = audit.SeverityWarning
	}
	return e
}

// translate maps unique violations to a ConflictError carrying the axis named
// by the violated constraint. Unrecognized constraints yield AxisUnknown.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("commit redemption: %w", err)
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		axis, ok := constraintAxes[pgErr.ConstraintName]
		if !ok {
			axis = models.AxisUnknown
		}
		return &models.ConflictError{Axis: axis, Constraint: pgErr.ConstraintName}
	case codeDeadlock:
		return fmt.Errorf("commit redemption: deadlock detected: %w", err)
	default:
		return fmt.Errorf("commit redemption: %w", err)
	}
}

// GetMeeting loads a meeting by id.
func (s *Store) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	var (
		m              models.Meeting
		startAt, endAt *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, start_at, end_at, lat, lng, radius_m, active, strict
		FROM meetings WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &startAt, &endAt, &m.Center.Lat, &m.Center.Lng, &m.RadiusM, &m.Active, &m.Strict)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	m.StartAt, m.EndAt = derefTime(startAt), derefTime(endAt)
	return &m, nil
}

// PutMeeting inserts or replaces a meeting.
func (s *Store) PutMeeting(ctx context.Context, m models.Meeting) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO meetings (id, name, start_at, end_at, lat, lng, radius_m, active, strict)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			start_at = EXCLUDED.start_at,
			end_at = EXCLUDED.end_at,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			radius_m = EXCLUDED.radius_m,
			active = EXCLUDED.active,
			strict = EXCLUDED.strict
	`, m.ID, m.Name, nullTime(m.StartAt), nullTime(m.EndAt), m.Center.Lat, m.Center.Lng, m.RadiusM, m.Active, m.Strict)
	if err != nil {
		return fmt.Errorf("put meeting: %w", err)
	}
	return nil
}

// FindMember resolves a short id.
func (s *Store) FindMember(ctx context.Context, shortID string) (*models.Member, error) {
	var m models.Member
	err := s.pool.QueryRow(ctx, `
		SELECT id, short_id, name FROM members WHERE short_id = $1
	`, shortID).Scan(&m.ID, &m.ShortID, &m.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	return &m, nil
}

// PutMember upserts a member by short id and returns its row id.
func (s *Store) PutMember(ctx context.Context, shortID, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO members (short_id, name) VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT members_short_id_key DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, shortID, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("put member: %w", err)
	}
	return id, nil
}

// NonceUsed reports whether nonce has been consumed.
func (s *Store) NonceUsed(ctx context.Context, nonce string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM used_token_nonces WHERE nonce = $1)`, nonce)
}

// DeviceUsed reports whether fingerprint has redeemed for meetingID.
func (s *Store) DeviceUsed(ctx context.Context, meetingID, fingerprint string) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS (SELECT 1 FROM used_device_fingerprints WHERE meeting_id = $1 AND fingerprint = $2)
	`, meetingID, fingerprint)
}

// HasAttendance reports whether memberID has an attendance row for meetingID.
func (s *Store) HasAttendance(ctx context.Context, meetingID string, memberID int64) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS (SELECT 1 FROM attendance WHERE meeting_id = $1 AND member_id = $2)
	`, meetingID, memberID)
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("lookup: %w", err)
	}
	return ok, nil
}

// Counts reports row counts for a meeting. Used by the load driver and tests.
func (s *Store) Counts(ctx context.Context, meetingID string) (nonces, devices, attendance int, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM used_token_nonces WHERE meeting_id = $1),
			(SELECT count(*) FROM used_device_fingerprints WHERE meeting_id = $1),
			(SELECT count(*) FROM attendance WHERE meeting_id = $1)
	`, meetingID).Scan(&nonces, &devices, &attendance)
	if err != nil {
		err = fmt.Errorf("count rows: %w", err)
	}
	return
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
