package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks
// can apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers attendance facts that must be retained.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers events that may indicate abuse.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Severity levels for routing security events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is emitted from domain logic to capture key actions. It stays
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string        `json:"id"`
	Category  EventCategory `json:"category"`
	Severity  Severity      `json:"severity"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`
	MeetingID string        `json:"meeting_id,omitempty"`
	// MemberID is empty for unattributed redemptions.
	MemberID string `json:"member_id,omitempty"`
	KioskID  string `json:"kiosk_id,omitempty"`
	// SubjectIDHash is a keyed hash of the attendee-supplied short id, kept
	// for traceability without storing the raw identifier.
	SubjectIDHash string `json:"subject_id_hash,omitempty"`
	Decision      string `json:"decision,omitempty"`
	Reason        string `json:"reason,omitempty"`
	IPHash        string `json:"ip_hash,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventCheckinRecorded     AuditEvent = "checkin_recorded"
	EventCheckinUnattributed AuditEvent = "checkin_unattributed"
	EventCheckinConflict     AuditEvent = "checkin_conflict"
	EventCheckinRejected     AuditEvent = "checkin_rejected"
	EventBypassUsed          AuditEvent = "chromebook_bypass_used"
	EventRateLimitExceeded   AuditEvent = "rate_limit_exceeded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventCheckinRecorded:     CategoryCompliance,
	EventCheckinUnattributed: CategorySecurity,
	EventBypassUsed:          CategorySecurity,
	EventRateLimitExceeded:   CategorySecurity,
	EventCheckinConflict:     CategoryOperations,
	EventCheckinRejected:     CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
