// Package memory is an in-process check-in store for tests and
// single-instance development. One mutex makes Commit atomic across the three
// uniqueness axes; it does not arbitrate across processes.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"checkpoint/internal/checkin/models"
	"checkpoint/pkg/platform/sentinel"
)

type deviceKey struct {
	meetingID   string
	fingerprint string
}

type attendanceKey struct {
	meetingID string
	memberID  int64
}

// UsedNonce mirrors a consumed-nonce row.
type UsedNonce struct {
	Nonce     string
	MeetingID string
	KioskID   string
}

// UsedDevice mirrors a consumed-device row.
type UsedDevice struct {
	MeetingID   string
	Fingerprint string
	MemberID    *int64
}

// Attendance mirrors an attendance row.
type Attendance struct {
	ID        string
	MeetingID string
	MemberID  int64
	Redemption models.Redemption
}

// Store holds meetings, members and redemption records in memory.
type Store struct {
	mu         sync.RWMutex
	meetings   map[string]models.Meeting
	members    map[string]models.Member
	nonces     map[string]UsedNonce
	devices    map[deviceKey]UsedDevice
	attendance map[attendanceKey]Attendance
}

// New creates an empty store.
func New() *Store {
	return &Store{
		meetings:   make(map[string]models.Meeting),
		members:    make(map[string]models.Member),
		nonces:     make(map[string]UsedNonce),
		devices:    make(map[deviceKey]UsedDevice),
		attendance: make(map[attendanceKey]Attendance),
	}
}

// PutMeeting inserts or replaces a meeting.
func (s *Store) PutMeeting(m models.Meeting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = m
}

// PutMember inserts or replaces a member keyed by short id.
func (s *Store) PutMember(m models.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ShortID] = m
}

func (s *Store) GetMeeting(_ context.Context, id string) (*models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &m, nil
}

func (s *Store) FindMember(_ context.Context, shortID string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[strings.TrimSpace(shortID)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &m, nil
}

func (s *Store) HasAttendance(_ context.Context, meetingID string, memberID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.attendance[attendanceKey{meetingID, memberID}]
	return ok, nil
}

func (s *Store) DeviceUsed(_ context.Context, meetingID, fingerprint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.devices[deviceKey{meetingID, fingerprint}]
	return ok, nil
}

func (s *Store) NonceUsed(_ context.Context, nonce string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nonces[nonce]
	return ok, nil
}

// Commit checks the three keys in insert order and writes all rows or none.
func (s *Store) Commit(ctx context.Context, r models.Redemption) (*models.Commit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nonces[r.Nonce]; ok {
		return nil, &models.ConflictError{Axis: models.AxisNonce}
	}
	dk := deviceKey{r.MeetingID, r.Fingerprint}
	if _, ok := s.devices[dk]; ok {
		return nil, &models.ConflictError{Axis: models.AxisDevice}
	}
	var ak attendanceKey
	if r.Member != nil {
		ak = attendanceKey{r.MeetingID, r.Member.ID}
		if _, ok := s.attendance[ak]; ok {
			return nil, &models.ConflictError{Axis: models.AxisMember}
		}
	}

	s.nonces[r.Nonce] = UsedNonce{Nonce: r.Nonce, MeetingID: r.MeetingID, KioskID: r.KioskID}
	device := UsedDevice{MeetingID: r.MeetingID, Fingerprint: r.Fingerprint}
	if r.Member != nil {
		id := r.Member.ID
		device.MemberID = &id
	}
	s.devices[dk] = device

	commit := &models.Commit{CheckedInAt: r.At, Unattributed: r.Member == nil}
	if r.Member != nil {
		commit.AttendanceID = uuid.NewString()
		s.attendance[ak] = Attendance{
			ID:         commit.AttendanceID,
			MeetingID:  r.MeetingID,
			MemberID:   r.Member.ID,
			Redemption: r,
		}
	}
	return commit, nil
}

// Counts reports how many rows each table holds.
func (s *Store) Counts() (nonces, devices, attendance int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nonces), len(s.devices), len(s.attendance)
}

// AttendanceFor returns the attendance row for a member, if any.
func (s *Store) AttendanceFor(meetingID string, memberID int64) (Attendance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attendance[attendanceKey{meetingID, memberID}]
	return a, ok
}
