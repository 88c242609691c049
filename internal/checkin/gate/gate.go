package gate

import (
	"context"
	"errors"
	"strings"
	"time"

	"checkpoint/internal/checkin/geo"
	"checkpoint/internal/checkin/models"
	"checkpoint/internal/checkin/ports"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/platform/sentinel"
)

// Defaults applied when no option overrides them.
const (
	DefaultMaxAccuracyM = 50.0
	DefaultBufferM      = 10.0
)

// Gate admits a redemption to a meeting based on meeting state and the
// reported location.
type Gate struct {
	meetings      ports.MeetingReader
	maxAccuracyM  float64
	bufferM       float64
	enforceWindow bool
}

// Option configures a Gate.
type Option func(*Gate)

// WithMaxAccuracy sets the largest acceptable reported accuracy radius.
func WithMaxAccuracy(m float64) Option {
	return func(g *Gate) { g.maxAccuracyM = m }
}

// WithBuffer sets the jitter allowance added to every meeting radius.
func WithBuffer(m float64) Option {
	return func(g *Gate) { g.bufferM = m }
}

// WithWindowEnforcement rejects redemptions outside a meeting's start/end.
func WithWindowEnforcement(enabled bool) Option {
	return func(g *Gate) { g.enforceWindow = enabled }
}

// New creates a gate reading meetings from meetings.
func New(meetings ports.MeetingReader, opts ...Option) (*Gate, error) {
	if meetings == nil {
		return nil, errors.New("meeting reader is required")
	}
	g := &Gate{
		meetings:     meetings,
		maxAccuracyM: DefaultMaxAccuracyM,
		bufferM:      DefaultBufferM,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Check loads the meeting and verifies it is open and that the reading is
// accurate enough and inside the geofence. Accuracy is checked before
// distance.
func (g *Gate) Check(ctx context.Context, meetingID string, reading models.GeoReading, now time.Time) (*models.MeetingContext, error) {
	m, err := g.load(ctx, meetingID, now)
	if err != nil {
		return nil, err
	}

	if reading.AccuracyM > g.maxAccuracyM {
		return nil, models.Fail(models.CodeLocationInaccurate)
	}
	inside, distance := geo.Within(reading.Point, m.Center, m.RadiusM, g.bufferM)
	if !inside {
		return nil, models.Fail(models.CodeNotInGeofence)
	}

	return &models.MeetingContext{
		MeetingID: m.ID,
		Name:      m.Name,
		Strict:    m.Strict,
		DistanceM: &distance,
	}, nil
}

// CheckActive verifies only that the meeting exists and is open. Used by
// redemption paths that do not carry a location.
func (g *Gate) CheckActive(ctx context.Context, meetingID string, now time.Time) (*models.MeetingContext, error) {
	m, err := g.load(ctx, meetingID, now)
	if err != nil {
		return nil, err
	}
	return &models.MeetingContext{MeetingID: m.ID, Name: m.Name, Strict: m.Strict}, nil
}

func (g *Gate) load(ctx context.Context, meetingID string, now time.Time) (*models.Meeting, error) {
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return nil, models.Fail(models.CodeMeetingNotConfigured)
	}
	m, err := g.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.Fail(models.CodeMeetingNotConfigured)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load meeting")
	}
	if m == nil {
		return nil, models.Fail(models.CodeMeetingNotConfigured)
	}
	if !m.Active {
		return nil, models.Fail(models.CodeMeetingInactive)
	}
	if g.enforceWindow && !m.InWindow(now) {
		return nil, models.Fail(models.CodeMeetingInactive)
	}
	return m, nil
}
