package handler

import (
	"net/http"
	"time"

	"checkpoint/internal/checkin/models"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/platform/httputil"
)

// AttendeeResponse echoes the resolved member.
type AttendeeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CheckinResponse is the success body.
type CheckinResponse struct {
	Status       string            `json:"status"`
	Attendee     *AttendeeResponse `json:"attendee,omitempty"`
	Unattributed bool              `json:"unattributed,omitempty"`
	Method       string            `json:"method"`
	CheckedInAt  time.Time         `json:"checkedInAt"`
}

// FromResult maps a service result to the response body.
func FromResult(r *models.Result) CheckinResponse {
	resp := CheckinResponse{
		Status:       "ok",
		Unattributed: r.Unattributed,
		Method:       string(r.Method),
		CheckedInAt:  r.CheckedInAt,
	}
	if r.Attendee != nil {
		resp.Attendee = &AttendeeResponse{ID: r.Attendee.ID, Name: r.Attendee.Name}
	}
	return resp
}

var redemptionStatus = map[dErrors.Code]int{
	models.CodeTokenInvalidOrExpired: http.StatusUnauthorized,
	models.CodeTokenStale:            http.StatusUnauthorized,
	models.CodeTokenMalformed:        http.StatusBadRequest,
	models.CodeMeetingInactive:       http.StatusBadRequest,
	models.CodeLocationInaccurate:    http.StatusBadRequest,
	models.CodeNotInGeofence:         http.StatusBadRequest,
	models.CodeUnknownUser:           http.StatusBadRequest,
	models.CodeMeetingNotConfigured:  http.StatusNotFound,
	models.CodeTokenAlreadyUsed:      http.StatusConflict,
	models.CodeDeviceAlreadyUsed:     http.StatusConflict,
	models.CodeAlreadyCheckedIn:      http.StatusConflict,
	models.CodeRateLimited:           http.StatusTooManyRequests,
}

// StatusFor maps any error to its HTTP status.
func StatusFor(err error) int {
	code := dErrors.CodeOf(err)
	if status, ok := redemptionStatus[code]; ok {
		return status
	}
	return httputil.StatusFor(code)
}

// writeError renders redemption codes with their client message and coarse
// reason; everything else goes through the shared error writer.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	if !models.IsRedemptionCode(code) {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteErrorResponse(w, StatusFor(err), httputil.ErrorResponse{
		Error:       string(code),
		Description: models.Message(code),
		Reason:      models.AppCode(code),
	})
}
