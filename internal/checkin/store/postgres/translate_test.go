package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkpoint/internal/checkin/models"
	audit "checkpoint/pkg/platform/audit"
	"checkpoint/pkg/platform/sentinel"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		constraint string
		axis       models.Axis
	}{
		{ConstraintNonce, models.AxisNonce},
		{ConstraintDevice, models.AxisDevice},
		{ConstraintAttendance, models.AxisMember},
		{"some_future_index", models.AxisUnknown},
		{"", models.AxisUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.constraint, func(t *testing.T) {
			wrapped := fmt.Errorf("exec: %w", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: tc.constraint})
			err := translate(wrapped)

			var conflict *models.ConflictError
			require.True(t, errors.As(err, &conflict))
			assert.Equal(t, tc.axis, conflict.Axis)
			assert.Equal(t, tc.constraint, conflict.Constraint)
			assert.ErrorIs(t, err, sentinel.ErrConflict)
		})
	}

	t.Run("other postgres errors are not conflicts", func(t *testing.T) {
		for _, code := range []string{codeDeadlock, "23503", "57014"} {
			err := translate(&pgconn.PgError{Code: code})
			assert.NotErrorIs(t, err, sentinel.ErrConflict, code)
		}
	})

	t.Run("driver errors are wrapped", func(t *testing.T) {
		cause := errors.New("conn closed")
		err := translate(cause)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, sentinel.ErrConflict)
	})
}

func TestComplianceEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	r := models.Redemption{MeetingID: "m-1", KioskID: "k-1", Method: models.MethodGeo, At: at, Member: &models.Member{ID: 7}}

	e := complianceEvent(r)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, string(audit.EventCheckinRecorded), e.Action)
	assert.Equal(t, audit.CategoryCompliance, e.Category)
	assert.Equal(t, "7", e.MemberID)
	assert.Equal(t, at, e.Timestamp)

	r.Member = nil
	e = complianceEvent(r)
	assert.Equal(t, string(audit.EventCheckinUnattributed), e.Action)
	assert.Equal(t, audit.SeverityWarning, e.Severity)
	assert.Empty(t, e.MemberID)
}
