package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"checkpoint/internal/checkin/models"
	"checkpoint/internal/checkin/store/memory"
	dErrors "checkpoint/pkg/domain-errors"
)

var center = models.Point{Lat: 37.7749, Lng: -122.4194}

type GateSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	store *memory.Store
	gate  *Gate
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 4, 19, 0, 0, 0, time.UTC)
	s.store = memory.New()
	s.store.PutMeeting(models.Meeting{
		ID: "m-1", Name: "March general", Center: center, RadiusM: 100, Active: true, Strict: true,
		StartAt: s.now.Add(-time.Hour), EndAt: s.now.Add(time.Hour),
	})
	s.store.PutMeeting(models.Meeting{ID: "m-off", Center: center, RadiusM: 100, Active: false})

	var err error
	s.gate, err = New(s.store, WithMaxAccuracy(50), WithBuffer(10))
	s.Require().NoError(err)
}

func (s *GateSuite) reading(latOffset, accuracy float64) models.GeoReading {
	return models.GeoReading{Point: models.Point{Lat: center.Lat + latOffset, Lng: center.Lng}, AccuracyM: accuracy}
}

func (s *GateSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func (s *GateSuite) TestAtCenterPasses() {
	mc, err := s.gate.Check(s.ctx, "m-1", s.reading(0, 30), s.now)
	s.Require().NoError(err)
	s.Equal("m-1", mc.MeetingID)
	s.True(mc.Strict)
	s.Require().NotNil(mc.DistanceM)
	s.InDelta(0, *mc.DistanceM, 1e-6)
}

func (s *GateSuite) TestTwoHundredMetresAwayFails() {
	// 0.0018 degrees of latitude is roughly 200 m.
	_, err := s.gate.Check(s.ctx, "m-1", s.reading(0.0018, 30), s.now)
	s.requireCode(err, models.CodeNotInGeofence)
}

func (s *GateSuite) TestBufferAbsorbsJitter() {
	// ~105 m: outside the radius, inside radius plus buffer.
	mc, err := s.gate.Check(s.ctx, "m-1", s.reading(0.000945, 10), s.now)
	s.Require().NoError(err)
	s.Greater(*mc.DistanceM, 100.0)

	// ~115 m: outside both.
	_, err = s.gate.Check(s.ctx, "m-1", s.reading(0.001035, 10), s.now)
	s.requireCode(err, models.CodeNotInGeofence)
}

func (s *GateSuite) TestAccuracyCheckedBeforeDistance() {
	_, err := s.gate.Check(s.ctx, "m-1", s.reading(0, 51), s.now)
	s.requireCode(err, models.CodeLocationInaccurate)

	// Far away and inaccurate still reports accuracy.
	_, err = s.gate.Check(s.ctx, "m-1", s.reading(1, 500), s.now)
	s.requireCode(err, models.CodeLocationInaccurate)

	_, err = s.gate.Check(s.ctx, "m-1", s.reading(0, 50), s.now)
	s.NoError(err, "accuracy equal to the maximum is accepted")
}

func (s *GateSuite) TestMeetingState() {
	s.Run("missing", func() {
		_, err := s.gate.Check(s.ctx, "nope", s.reading(0, 10), s.now)
		s.requireCode(err, models.CodeMeetingNotConfigured)
	})
	s.Run("blank id", func() {
		_, err := s.gate.Check(s.ctx, " ", s.reading(0, 10), s.now)
		s.requireCode(err, models.CodeMeetingNotConfigured)
	})
	s.Run("inactive", func() {
		_, err := s.gate.Check(s.ctx, "m-off", s.reading(0, 10), s.now)
		s.requireCode(err, models.CodeMeetingInactive)
	})
	s.Run("inactive wins over bad location", func() {
		_, err := s.gate.Check(s.ctx, "m-off", s.reading(1, 500), s.now)
		s.requireCode(err, models.CodeMeetingInactive)
	})
}

func (s *GateSuite) TestWindowEnforcement() {
	late := s.now.Add(2 * time.Hour)

	_, err := s.gate.Check(s.ctx, "m-1", s.reading(0, 10), late)
	s.NoError(err, "window ignored by default")

	strict, err := New(s.store, WithWindowEnforcement(true))
	s.Require().NoError(err)
	_, err = strict.Check(s.ctx, "m-1", s.reading(0, 10), late)
	s.requireCode(err, models.CodeMeetingInactive)
	_, err = strict.CheckActive(s.ctx, "m-1", late)
	s.requireCode(err, models.CodeMeetingInactive)
	_, err = strict.Check(s.ctx, "m-1", s.reading(0, 10), s.now)
	s.NoError(err)
}

func (s *GateSuite) TestCheckActiveSkipsLocation() {
	mc, err := s.gate.CheckActive(s.ctx, "m-1", s.now)
	s.Require().NoError(err)
	s.Nil(mc.DistanceM)
}

type failingReader struct{}

func (failingReader) GetMeeting(context.Context, string) (*models.Meeting, error) {
	return nil, errors.New("connection refused")
}

func (s *GateSuite) TestStoreFailureIsInternal() {
	g, err := New(failingReader{})
	s.Require().NoError(err)
	_, err = g.Check(s.ctx, "m-1", s.reading(0, 10), s.now)
	s.requireCode(err, dErrors.CodeInternal)
	s.False(dErrors.HasCode(err, models.CodeMeetingNotConfigured))
}

func (s *GateSuite) TestNewRequiresReader() {
	_, err := New(nil)
	s.Error(err)
}
