//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"checkpoint/internal/checkin/models"
	"checkpoint/internal/checkin/store/postgres"
	auditpg "checkpoint/pkg/platform/audit/store/postgres"
	"checkpoint/pkg/platform/sentinel"
	"checkpoint/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	outbox   *auditpg.Store
	store    *postgres.Store
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.Require().NoError(postgres.Migrate(s.ctx, s.postgres.Pool))
	s.outbox = auditpg.New(s.postgres.Pool)
	s.store = postgres.New(s.postgres.Pool, postgres.WithOutbox(s.outbox))
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(s.ctx,
		"attendance", "used_device_fingerprints", "used_token_nonces", "members", "meetings", "audit_outbox")
	s.Require().NoError(err)
	s.Require().NoError(s.store.PutMeeting(s.ctx, models.Meeting{
		ID: "m-1", Name: "Weekly", Center: models.Point{Lat: 37.77, Lng: -122.41}, RadiusM: 100, Active: true,
	}))
}

func (s *PostgresStoreSuite) member(shortID string) *models.Member {
	id, err := s.store.PutMember(s.ctx, shortID, "Member "+shortID)
	s.Require().NoError(err)
	return &models.Member{ID: id, ShortID: shortID}
}

func (s *PostgresStoreSuite) redemption(nonce, fp string, m *models.Member) models.Redemption {
	d := 4.2
	return models.Redemption{
		MeetingID: "m-1", Nonce: nonce, KioskID: "k-1", Fingerprint: fp, Member: m,
		Geo: &models.GeoReading{Point: models.Point{Lat: 37.77, Lng: -122.41}, AccuracyM: 8}, DistanceM: &d,
		Method: models.MethodGeo, At: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) requireAxis(err error, axis models.Axis) {
	var conflict *models.ConflictError
	s.Require().True(errors.As(err, &conflict), "expected conflict, got %v", err)
	s.Equal(axis, conflict.Axis)
}

func (s *PostgresStoreSuite) requireCounts(nonces, devices, attendance int) {
	n, d, a, err := s.store.Counts(s.ctx, "m-1")
	s.Require().NoError(err)
	s.Equal([3]int{nonces, devices, attendance}, [3]int{n, d, a})
}

func (s *PostgresStoreSuite) TestReads() {
	m, err := s.store.GetMeeting(s.ctx, "m-1")
	s.Require().NoError(err)
	s.Equal("Weekly", m.Name)
	s.True(m.StartAt.IsZero())

	_, err = s.store.GetMeeting(s.ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.member("123456")
	got, err := s.store.FindMember(s.ctx, "123456")
	s.Require().NoError(err)
	s.Equal("Member 123456", got.Name)

	_, err = s.store.FindMember(s.ctx, "000000")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCommitAxes() {
	ada := s.member("100001")
	bob := s.member("100002")

	commit, err := s.store.Commit(s.ctx, s.redemption("n-1", "fp-1", ada))
	s.Require().NoError(err)
	s.NotEmpty(commit.AttendanceID)
	s.True(commit.Audited)

	s.Run("nonce reuse", func() {
		_, err := s.store.Commit(s.ctx, s.redemption("n-1", "fp-2", bob))
		s.requireAxis(err, models.AxisNonce)
	})
	s.Run("device reuse", func() {
		_, err := s.store.Commit(s.ctx, s.redemption("n-2", "fp-1", bob))
		s.requireAxis(err, models.AxisDevice)
	})
	s.Run("member reuse", func() {
		_, err := s.store.Commit(s.ctx, s.redemption("n-3", "fp-3", ada))
		s.requireAxis(err, models.AxisMember)
	})
	s.Run("failed commits leave no partial rows", func() {
		s.requireCounts(1, 1, 1)

		used, err := s.store.NonceUsed(s.ctx, "n-3")
		s.Require().NoError(err)
		s.False(used, "nonce from the rolled-back member conflict must not persist")
	})
	s.Run("compliance event committed with the rows", func() {
		events, err := s.outbox.ListByMeeting(s.ctx, "m-1")
		s.Require().NoError(err)
		s.Len(events, 1)
	})
}

func (s *PostgresStoreSuite) TestUnattributedCommit() {
	commit, err := s.store.Commit(s.ctx, s.redemption("n-1", "fp-1", nil))
	s.Require().NoError(err)
	s.True(commit.Unattributed)
	s.Empty(commit.AttendanceID)
	s.requireCounts(1, 1, 0)

	_, err = s.store.Commit(s.ctx, s.redemption("n-2", "fp-1", nil))
	s.requireAxis(err, models.AxisDevice)
}

func (s *PostgresStoreSuite) TestProbes() {
	ada := s.member("100001")
	_, err := s.store.Commit(s.ctx, s.redemption("n-1", "fp-1", ada))
	s.Require().NoError(err)

	used, err := s.store.NonceUsed(s.ctx, "n-1")
	s.Require().NoError(err)
	s.True(used)

	used, err = s.store.DeviceUsed(s.ctx, "m-1", "fp-1")
	s.Require().NoError(err)
	s.True(used)

	present, err := s.store.HasAttendance(s.ctx, "m-1", ada.ID)
	s.Require().NoError(err)
	s.True(present)

	present, err = s.store.HasAttendance(s.ctx, "m-2", ada.ID)
	s.Require().NoError(err)
	s.False(present)
}

// TestConcurrentSharedNonce races 500 commits of one nonce with distinct
// devices and members. Exactly one may win and every loser must be
// attributed to the nonce.
func (s *PostgresStoreSuite) TestConcurrentSharedNonce() {
	const goroutines = 500
	members := make([]*models.Member, goroutines)
	for i := range members {
		members[i] = s.member(fmt.Sprintf("%06d", i))
	}
	nonce := uuid.NewString()

	var (
		wg       sync.WaitGroup
		wins     atomic.Int32
		nonceErr atomic.Int32
		other    atomic.Int32
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.store.Commit(s.ctx, s.redemption(nonce, fmt.Sprintf("fp-%d", i), members[i]))
			var conflict *models.ConflictError
			switch {
			case err == nil:
				wins.Add(1)
			case errors.As(err, &conflict) && conflict.Axis == models.AxisNonce:
				nonceErr.Add(1)
			default:
				other.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), nonceErr.Load())
	s.Zero(other.Load())
	s.requireCounts(1, 1, 1)
}

// TestConcurrentDistinctRedemptions commits 500 fully distinct redemptions
// at once; none may fail.
func (s *PostgresStoreSuite) TestConcurrentDistinctRedemptions() {
	const goroutines = 500
	members := make([]*models.Member, goroutines)
	for i := range members {
		members[i] = s.member(fmt.Sprintf("%06d", i))
	}

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.store.Commit(s.ctx, s.redemption(uuid.NewString(), fmt.Sprintf("fp-%d", i), members[i])); err != nil {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Zero(failures.Load())
	s.requireCounts(goroutines, goroutines, goroutines)
}

// race commits every redemption concurrently and tallies the conflict axes.
func (s *PostgresStoreSuite) race(rs []models.Redemption) (wins int, axes map[models.Axis]int) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	axes = map[models.Axis]int{}
	for _, r := range rs {
		wg.Add(1)
		go func(r models.Redemption) {
			defer wg.Done()
			_, err := s.store.Commit(s.ctx, r)
			mu.Lock()
			defer mu.Unlock()
			var conflict *models.ConflictError
			switch {
			case err == nil:
				wins++
			case errors.As(err, &conflict):
				axes[conflict.Axis]++
			default:
				axes["error"]++
			}
		}(r)
	}
	wg.Wait()
	return wins, axes
}

// TestConcurrentSharedDevice races distinct nonces and members from one
// device. Only the first may record.
func (s *PostgresStoreSuite) TestConcurrentSharedDevice() {
	const goroutines = 200
	rs := make([]models.Redemption, goroutines)
	for i := range rs {
		rs[i] = s.redemption(uuid.NewString(), "shared-fp", s.member(fmt.Sprintf("%06d", i)))
	}

	wins, axes := s.race(rs)
	s.Equal(1, wins)
	s.Equal(map[models.Axis]int{models.AxisDevice: goroutines - 1}, axes)
	s.requireCounts(1, 1, 1)
}

// TestConcurrentSameMember races distinct nonces and devices for one member.
func (s *PostgresStoreSuite) TestConcurrentSameMember() {
	const goroutines = 200
	ada := s.member("100001")
	rs := make([]models.Redemption, goroutines)
	for i := range rs {
		rs[i] = s.redemption(uuid.NewString(), fmt.Sprintf("fp-%d", i), ada)
	}

	wins, axes := s.race(rs)
	s.Equal(1, wins)
	s.Equal(map[models.Axis]int{models.AxisMember: goroutines - 1}, axes)
	s.requireCounts(1, 1, 1)
}
