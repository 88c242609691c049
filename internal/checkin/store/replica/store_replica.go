// Package replica serves read-only lookups from a streaming replica. Its
// answers may lag the primary and feed only the advisory pre-check and
// directory resolution, never exclusivity.
package replica

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkpoint/internal/checkin/models"
	"checkpoint/pkg/platform/sentinel"
)

// Store reads check-in state through database/sql.
type Store struct {
	db *sql.DB
}

// New creates a replica reader on db. A nil db yields a nil Store.
func New(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// NonceUsed reports whether nonce has been consumed.
func (s *Store) NonceUsed(ctx context.Context, nonce string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM used_token_nonces WHERE nonce = $1)`, nonce)
}

// Close releases the replica connections. It is safe on a nil Store.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// HasAttendance reports whether memberID has an attendance row for meetingID.
func (s *Store) HasAttendance(ctx context.Context, meetingID string, memberID int64) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS (SELECT 1 FROM attendance WHERE meeting_id = $1 AND member_id = $2)
	`, meetingID, memberID)
}

// DeviceUsed reports whether fingerprint has redeemed for meetingID.
func (s *Store) DeviceUsed(ctx context.Context, meetingID, fingerprint string) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS (SELECT 1 FROM used_device_fingerprints WHERE meeting_id = $1 AND fingerprint = $2)
	`, meetingID, fingerprint)
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("replica lookup: %w", err)
	}
	return ok, nil
}

// FindMember resolves a short id.
func (s *Store) FindMember(ctx context.Context, shortID string) (*models.Member, error) {
	var m models.Member
	err := s.db.QueryRowContext(ctx, `
		SELECT id, short_id, name FROM members WHERE short_id = $1
	`, shortID).Scan(&m.ID, &m.ShortID, &m.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("replica find member: %w", err)
	}
	return &m, nil
}
