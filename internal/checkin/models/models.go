package models

import (
	"time"
)

// Meeting is a scheduled session that members check in to.
type Meeting struct {
	ID      string
	Name    string
	StartAt time.Time
	EndAt   time.Time
	Center  Point
	RadiusM float64
	Active  bool
	// Strict meetings reject identities missing from the directory.
	Strict bool
}

// InWindow reports whether t falls within the meeting's scheduled window.
// A zero bound is treated as open.
func (m *Meeting) InWindow(t time.Time) bool {
	if !m.StartAt.IsZero() && t.Before(m.StartAt) {
		return false
	}
	if !m.EndAt.IsZero() && t.After(m.EndAt) {
		return false
	}
	return true
}

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// GeoReading is the location a client reported at redemption time.
type GeoReading struct {
	Point
	AccuracyM float64
}

// Member is a directory entry resolvable by its short id.
type Member struct {
	ID      int64
	ShortID string
	Name    string
}

// Claims are the verified contents of a kiosk token.
type Claims struct {
	MeetingID string
	Nonce     string
	KioskID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Method records how presence was established.
type Method string

const (
	MethodGeo      Method = "geo"
	MethodOverride Method = "override"
)

// AttendanceStatus is the recorded outcome of a check-in.
type AttendanceStatus string

const StatusPresent AttendanceStatus = "present"

// Redemption is everything the recorder needs to commit one check-in atomically.
// A nil Member records the nonce and device without an attendance row.
type Redemption struct {
	MeetingID   string
	Nonce       string
	KioskID     string
	Fingerprint string
	Member      *Member
	Geo         *GeoReading
	DistanceM   *float64
	Method      Method
	Notes       string
	IPHash      string
	UAHash      string
	At          time.Time
}

// Commit is the result of a successful atomic commit.
type Commit struct {
	AttendanceID string
	CheckedInAt  time.Time
	// Unattributed is set when the nonce and device were recorded without a member.
	Unattributed bool
	// Audited is set when the recorder wrote the compliance event in the
	// same transaction as the rows.
	Audited bool
}

// Attendee is the identity echoed back to the kiosk on success.
type Attendee struct {
	ID   string
	Name string
}

// Result is the outcome of a successful redemption.
type Result struct {
	Attendee     *Attendee
	Unattributed bool
	CheckedInAt  time.Time
	Method       Method
}

// MeetingContext is what the gate hands downstream once a meeting admits a reading.
type MeetingContext struct {
	MeetingID string
	Name      string
	Strict    bool
	// DistanceM is nil when the geofence was not evaluated.
	DistanceM *float64
}
