package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "checkpoint/pkg/domain-errors"
)

// Issuer mints kiosk tokens. Production kiosks sign their own tokens; this is
// used by the dev CLI, the load driver, and tests.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an issuer that signs with secret and expires tokens after ttl.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issued describes a minted token.
type Issued struct {
	Token     string
	Nonce     string
	ExpiresAt time.Time
}

// Issue signs a token for meetingID. Every call draws a fresh random nonce.
func (i *Issuer) Issue(meetingID, kioskID string, now time.Time) (*Issued, error) {
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "meeting id is required")
	}
	nonce := uuid.NewString()
	iat := now.Unix()
	exp := now.Add(i.ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, kioskClaims{
		MeetingID:     flexString(meetingID),
		KioskID:       flexString(kioskID),
		Nonce:         flexString(nonce),
		KioskIssuedAt: &iat,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}).SignedString(i.secret)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign kiosk token")
	}
	return &Issued{Token: signed, Nonce: nonce, ExpiresAt: exp}, nil
}
