package handler

import (
	"math"
	"regexp"
	"strings"

	"checkpoint/internal/checkin/device"
	"checkpoint/internal/checkin/models"
	dErrors "checkpoint/pkg/domain-errors"
)

const maxTokenLen = 4096

// GeoInput is the client-reported location.
type GeoInput struct {
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	AccuracyM *float64 `json:"accuracyM"`
}

// CheckinRequest is the body of POST /checkin.
type CheckinRequest struct {
	Token             string    `json:"token"`
	UserID            string    `json:"userId"`
	DeviceFingerprint string    `json:"deviceFingerprint"`
	Geo               *GeoInput `json:"geo"`
}

// BypassRequest is the body of POST /checkin/bypass.
type BypassRequest struct {
	Token             string `json:"token"`
	UserID            string `json:"userId"`
	DeviceFingerprint string `json:"deviceFingerprint"`
}

// Normalize trims identifiers.
func (r *CheckinRequest) Normalize() {
	r.Token = strings.TrimSpace(r.Token)
	r.UserID = strings.TrimSpace(r.UserID)
	r.DeviceFingerprint = strings.TrimSpace(r.DeviceFingerprint)
}

// Normalize trims identifiers.
func (r *BypassRequest) Normalize() {
	r.Token = strings.TrimSpace(r.Token)
	r.UserID = strings.TrimSpace(r.UserID)
	r.DeviceFingerprint = strings.TrimSpace(r.DeviceFingerprint)
}

// rules holds the deployment-specific input limits.
type rules struct {
	shortID      *regexp.Regexp
	maxAccuracyM float64
}

func (v rules) common(token, userID, fingerprint string) error {
	switch {
	case token == "":
		return dErrors.New(dErrors.CodeValidation, "token is required")
	case len(token) > maxTokenLen:
		return dErrors.New(dErrors.CodeValidation, "token is too long")
	case !v.shortID.MatchString(userID):
		return dErrors.New(dErrors.CodeValidation, "userId has an invalid format")
	case fingerprint == "":
		return dErrors.New(dErrors.CodeValidation, "deviceFingerprint is required")
	case !device.ValidFingerprint(fingerprint):
		return dErrors.New(dErrors.CodeValidation, "deviceFingerprint is too long or not valid UTF-8")
	}
	return nil
}

func (v rules) checkin(r *CheckinRequest) (models.GeoReading, error) {
	if err := v.common(r.Token, r.UserID, r.DeviceFingerprint); err != nil {
		return models.GeoReading{}, err
	}
	g := r.Geo
	if g == nil || g.Lat == nil || g.Lng == nil || g.AccuracyM == nil {
		return models.GeoReading{}, dErrors.New(dErrors.CodeValidation, "geo.lat, geo.lng and geo.accuracyM are required")
	}
	reading := models.GeoReading{Point: models.Point{Lat: *g.Lat, Lng: *g.Lng}, AccuracyM: *g.AccuracyM}
	switch {
	case !finite(reading.Lat) || reading.Lat < -90 || reading.Lat > 90:
		return models.GeoReading{}, dErrors.New(dErrors.CodeValidation, "geo.lat must be between -90 and 90")
	case !finite(reading.Lng) || reading.Lng < -180 || reading.Lng > 180:
		return models.GeoReading{}, dErrors.New(dErrors.CodeValidation, "geo.lng must be between -180 and 180")
	case !finite(reading.AccuracyM) || reading.AccuracyM < 0 || reading.AccuracyM > v.maxAccuracyM:
		return models.GeoReading{}, dErrors.New(dErrors.CodeValidation, "geo.accuracyM is out of range")
	}
	return reading, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
