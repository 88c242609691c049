package models

import (
	"fmt"

	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/platform/sentinel"
)

// Redemption failure codes. These are stable and shown to clients.
const (
	CodeTokenInvalidOrExpired dErrors.Code = "TOKEN_INVALID_OR_EXPIRED"
	CodeTokenMalformed        dErrors.Code = "TOKEN_MALFORMED"
	CodeTokenStale            dErrors.Code = "TOKEN_STALE"
	CodeTokenAlreadyUsed      dErrors.Code = "TOKEN_ALREADY_USED"
	CodeMeetingNotConfigured  dErrors.Code = "MEETING_NOT_CONFIGURED"
	CodeMeetingInactive       dErrors.Code = "MEETING_INACTIVE"
	CodeLocationInaccurate    dErrors.Code = "LOCATION_INACCURATE"
	CodeNotInGeofence         dErrors.Code = "NOT_IN_GEOFENCE"
	CodeUnknownUser           dErrors.Code = "UNKNOWN_USER"
	CodeDeviceAlreadyUsed     dErrors.Code = "DEVICE_ALREADY_USED"
	CodeAlreadyCheckedIn      dErrors.Code = "ALREADY_CHECKED_IN"
	CodeRateLimited           dErrors.Code = "RATE_LIMITED"
)

type publicError struct {
	appCode string
	message string
}

// Several codes share one app code so kiosk clients can branch coarsely.
var publicErrors = map[dErrors.Code]publicError{
	CodeTokenInvalidOrExpired: {"INVALID_TOKEN", "Your check-in link has expired. Please scan the QR code again."},
	CodeTokenMalformed:        {"INVALID_TOKEN", "Invalid check-in link. Please scan the QR code again."},
	CodeTokenStale:            {"INVALID_TOKEN", "Your check-in link has expired. Please scan the QR code again."},
	CodeTokenAlreadyUsed:      {"TOKEN_USED", "This check-in link has already been used. Please scan a fresh QR code."},
	CodeRateLimited:           {"TOO_MANY_ATTEMPTS", "Too many attempts. Please wait a moment and try again."},
	CodeMeetingInactive:       {"EVENT_UNAVAILABLE", "This event is currently not available for check-in."},
	CodeMeetingNotConfigured:  {"EVENT_UNAVAILABLE", "Event configuration error. Please contact event staff."},
	CodeLocationInaccurate:    {"LOCATION_REQUIRED", "Unable to verify your location accurately. Please ensure location services are enabled and try again."},
	CodeNotInGeofence:         {"LOCATION_REQUIRED", "You must be at the event location to check in."},
	CodeUnknownUser:           {"INVALID_USER", "User ID not found. Please check your ID and try again."},
	CodeDeviceAlreadyUsed:     {"DEVICE_USED", "This device has already been used to check in to this event."},
	CodeAlreadyCheckedIn:      {"ALREADY_CHECKED_IN", "You have already checked in to this event."},
}

// Message returns the client-facing message for a redemption code.
func Message(code dErrors.Code) string {
	if p, ok := publicErrors[code]; ok {
		return p.message
	}
	return "Check-in failed."
}

// AppCode returns the coarse client code for a redemption code, or "" for
// codes outside the redemption taxonomy.
func AppCode(code dErrors.Code) string {
	return publicErrors[code].appCode
}

// IsRedemptionCode reports whether code belongs to the redemption taxonomy.
func IsRedemptionCode(code dErrors.Code) bool {
	_, ok := publicErrors[code]
	return ok
}

// Codes lists every redemption failure code.
func Codes() []dErrors.Code {
	return []dErrors.Code{
		CodeTokenInvalidOrExpired, CodeTokenMalformed, CodeTokenStale, CodeTokenAlreadyUsed,
		CodeMeetingNotConfigured, CodeMeetingInactive, CodeLocationInaccurate, CodeNotInGeofence,
		CodeUnknownUser, CodeDeviceAlreadyUsed, CodeAlreadyCheckedIn, CodeRateLimited,
	}
}

// Fail builds a coded redemption error with its standard message.
func Fail(code dErrors.Code) error {
	return dErrors.New(code, Message(code))
}

// Axis identifies which uniqueness constraint a commit violated.
type Axis string

const (
	AxisNonce   Axis = "nonce"
	AxisDevice  Axis = "device"
	AxisMember  Axis = "member"
	AxisUnknown Axis = "unknown"
)

// ConflictError reports a uniqueness violation on commit. The whole
// transaction has been rolled back when this is returned.
type ConflictError struct {
	Axis       Axis
	Constraint string
}

func (e *ConflictError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("uniqueness conflict on %s (%s)", e.Axis, e.Constraint)
	}
	return fmt.Sprintf("uniqueness conflict on %s", e.Axis)
}

func (e *ConflictError) Unwrap() error { return sentinel.ErrConflict }
