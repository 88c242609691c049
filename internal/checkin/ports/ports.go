// Package ports declares the storage and side-effect contracts the check-in
// service depends on. Adapters live under internal/checkin/store.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"checkpoint/internal/checkin/models"
	audit "checkpoint/pkg/platform/audit"
)

// MeetingReader loads meetings. Misses return sentinel.ErrNotFound.
// Implementations must not cache across requests.
type MeetingReader interface {
	GetMeeting(ctx context.Context, id string) (*models.Meeting, error)
}

// MemberDirectory resolves short ids. Misses return sentinel.ErrNotFound.
type MemberDirectory interface {
	FindMember(ctx context.Context, shortID string) (*models.Member, error)
}

// AdvisoryReader answers the fast-path pre-check questions. Answers may be
// stale and are never used to decide exclusivity.
type AdvisoryReader interface {
	NonceUsed(ctx context.Context, nonce string) (bool, error)
	HasAttendance(ctx context.Context, meetingID string, memberID int64) (bool, error)
	DeviceUsed(ctx context.Context, meetingID, fingerprint string) (bool, error)
}

// Recorder commits a redemption atomically. A uniqueness violation returns
// *models.ConflictError and leaves no partial writes.
type Recorder interface {
	Commit(ctx context.Context, r models.Redemption) (*models.Commit, error)
}

// ConflictProbe answers consistent post-conflict lookups against the primary.
type ConflictProbe interface {
	NonceUsed(ctx context.Context, nonce string) (bool, error)
	DeviceUsed(ctx context.Context, meetingID, fingerprint string) (bool, error)
	HasAttendance(ctx context.Context, meetingID string, memberID int64) (bool, error)
}

// AuditPublisher records audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
