package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// kioskClaims is the wire shape of a kiosk token.
type kioskClaims struct {
	MeetingID flexString `json:"meetingId,omitempty"`
	KioskID   flexString `json:"kioskId,omitempty"`
	Nonce     flexString `json:"nonce,omitempty"`
	// IssuedAt is the kiosk's own clock reading in unix seconds. Tokens that
	// only carry the registered iat fall back to it.
	KioskIssuedAt *int64 `json:"issuedAt,omitempty"`
	jwt.RegisteredClaims
}

// flexString accepts either a JSON string or a JSON number, since kiosks
// have emitted numeric ids.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("must be a string or number")
	}
	if i, err := n.Int64(); err == nil {
		*f = flexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexString(n.String())
	return nil
}

// decodeClaims reads the kiosk claims out of an already verified token. A
// claim of the wrong type fails here rather than during verification.
func decodeClaims(verified jwt.MapClaims) (*kioskClaims, error) {
	raw, err := json.Marshal(verified)
	if err != nil {
		return nil, err
	}
	claims := &kioskClaims{}
	if err := json.Unmarshal(raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
