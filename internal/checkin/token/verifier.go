package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"checkpoint/internal/checkin/models"
)

// Algorithm is the only signing method accepted for kiosk tokens.
const Algorithm = "HS256"

// Verifier validates kiosk tokens against a shared secret.
type Verifier struct {
	secret  []byte
	iatSkew time.Duration
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithIATSkew rejects tokens whose issuedAt differs from now by more than d.
// Zero disables the check and leaves freshness to the expiry alone.
func WithIATSkew(d time.Duration) Option {
	return func(v *Verifier) { v.iatSkew = d }
}

// NewVerifier creates a verifier for tokens signed with secret.
func NewVerifier(secret string, opts ...Option) *Verifier {
	v := &Verifier{secret: []byte(secret)}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks signature, expiry, required claims and, when enabled,
// issuedAt skew. It has no side effects. Claim types are checked only after
// the signature, so a signed token with a bad claim is malformed.
func (v *Verifier) Verify(raw string, now time.Time) (*models.Claims, error) {
	verified := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(raw), verified,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenUnverifiable
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithJSONNumber(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !parsed.Valid {
		// Expired, forged and undecodable tokens are indistinguishable to clients.
		return nil, models.Fail(models.CodeTokenInvalidOrExpired)
	}
	claims, err := decodeClaims(verified)
	if err != nil {
		return nil, models.Fail(models.CodeTokenMalformed)
	}

	nonce := strings.TrimSpace(string(claims.Nonce))
	if nonce == "" {
		nonce = claims.ID
	}
	meetingID := strings.TrimSpace(string(claims.MeetingID))
	if meetingID == "" || nonce == "" {
		return nil, models.Fail(models.CodeTokenMalformed)
	}

	out := &models.Claims{
		MeetingID: meetingID,
		Nonce:     nonce,
		KioskID:   strings.TrimSpace(string(claims.KioskID)),
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	switch {
	case claims.KioskIssuedAt != nil:
		out.IssuedAt = time.Unix(*claims.KioskIssuedAt, 0)
	case claims.RegisteredClaims.IssuedAt != nil:
		out.IssuedAt = claims.RegisteredClaims.IssuedAt.Time
	}

	if v.iatSkew > 0 && !out.IssuedAt.IsZero() {
		skew := now.Sub(out.IssuedAt)
		if skew < 0 {
			skew = -skew
		}
		if skew > v.iatSkew {
			return nil, models.Fail(models.CodeTokenStale)
		}
	}
	return out, nil
}
