package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"checkpoint/internal/checkin/models"
	dErrors "checkpoint/pkg/domain-errors"
)

const testSecret = "kiosk-secret"

type VerifierSuite struct {
	suite.Suite
	now      time.Time
	verifier *Verifier
}

func TestVerifierSuite(t *testing.T) {
	suite.Run(t, new(VerifierSuite))
}

func (s *VerifierSuite) SetupTest() {
	s.now = time.Date(2026, 3, 4, 19, 0, 0, 0, time.UTC)
	s.verifier = NewVerifier(testSecret, WithIATSkew(120*time.Second))
}

func (s *VerifierSuite) sign(claims jwt.MapClaims, method jwt.SigningMethod, secret string) string {
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	s.Require().NoError(err)
	return tok
}

func (s *VerifierSuite) validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"meetingId": "m-1",
		"kioskId":   "front-door",
		"nonce":     "9b0c7d6e-1f1a-4a8e-9f1e-4a7c2b1d0e11",
		"issuedAt":  s.now.Unix(),
		"iat":       s.now.Unix(),
		"exp":       s.now.Add(60 * time.Second).Unix(),
	}
}

func (s *VerifierSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func (s *VerifierSuite) TestValidToken() {
	claims, err := s.verifier.Verify(s.sign(s.validClaims(), jwt.SigningMethodHS256, testSecret), s.now)

	s.Require().NoError(err)
	s.Equal("m-1", claims.MeetingID)
	s.Equal("front-door", claims.KioskID)
	s.Equal("9b0c7d6e-1f1a-4a8e-9f1e-4a7c2b1d0e11", claims.Nonce)
	s.Equal(s.now.Unix(), claims.IssuedAt.Unix())
	s.Equal(s.now.Add(60*time.Second).Unix(), claims.ExpiresAt.Unix())
}

func (s *VerifierSuite) TestInvalidOrExpired() {
	s.Run("expired after clock advances past exp", func() {
		tok := s.sign(s.validClaims(), jwt.SigningMethodHS256, testSecret)
		_, err := s.verifier.Verify(tok, s.now.Add(61*time.Second))
		s.requireCode(err, models.CodeTokenInvalidOrExpired)
	})

	s.Run("expired wins over missing claims", func() {
		c := s.validClaims()
		delete(c, "nonce")
		delete(c, "meetingId")
		_, err := s.verifier.Verify(s.sign(c, jwt.SigningMethodHS256, testSecret), s.now.Add(2*time.Minute))
		s.requireCode(err, models.CodeTokenInvalidOrExpired)
	})

	s.Run("wrong secret", func() {
		_, err := s.verifier.Verify(s.sign(s.validClaims(), jwt.SigningMethodHS256, "other"), s.now)
		s.requireCode(err, models.CodeTokenInvalidOrExpired)
	})

	s.Run("different HMAC algorithm", func() {
		_, err := s.verifier.Verify(s.sign(s.validClaims(), jwt.SigningMethodHS512, testSecret), s.now)
		s.requireCode(err, models.CodeTokenInvalidOrExpired)
	})

	s.Run("unsigned token", func() {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, s.validClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
		s.Require().NoError(err)
		_, err = s.verifier.Verify(tok, s.now)
		s.requireCode(err, models.CodeTokenInvalidOrExpired)
	})

	s.Run("not a token", func() {
		_, err := s.verifier.Verify("definitely-not-a-jwt", s.now)
		s.requireCode(err, models.CodeTokenInvalidOrExpired)
	})

	s.Run("missing expiry", func() {
		c := s.validClaims()
		delete(c, "exp")
		_, err := s.verifier.Verify(s.sign(c, jwt.SigningMethodHS256, testSecret), s.now)
		s.requireCode(err, models.CodeTokenInvalidOrExpired)
	})
}

func (s *VerifierSuite) TestMalformed() {
	s.Run("missing nonce", func() {
		c := s.validClaims()
		delete(c, "nonce")
		_, err := s.verifier.Verify(s.sign(c, jwt.SigningMethodHS256, testSecret), s.now)
		s.requireCode(err, models.CodeTokenMalformed)
	})

	s.Run("missing meeting id", func() {
		c := s.validClaims()
		delete(c, "meetingId")
		_, err := s.verifier.Verify(s.sign(c, jwt.SigningMethodHS256, testSecret), s.now)
		s.requireCode(err, models.CodeTokenMalformed)
	})

	s.Run("blank meeting id", func() {
		c := s.validClaims()
		c["meetingId"] = "  "
		_, err := s.verifier.Verify(s.sign(c, jwt.SigningMethodHS256, testSecret), s.now)
		s.requireCode(err, models.CodeTokenMalformed)
	})

	wrongTypes := map[string]any{
		"meetingId": true,
		"nonce":     map[string]any{"v": 1},
		"kioskId":   []string{"front-door"},
		"issuedAt":  "yesterday",
	}
	for claim, value := range wrongTypes {
		s.Run("signed token with a mistyped "+claim, func() {
			c := s.validClaims()
			c[claim] = value
			_, err := s.verifier.Verify(s.sign(c, jwt.SigningMethodHS256, testSecret), s.now)
			s.requireCode(err, models.CodeTokenMalformed)
		})
	}

	s.Run("non-integer issuedAt", func() {
		c := s.validClaims()
		c["issuedAt"] = float64(s.now.Unix()) + 0.5
		_, err := s.verifier.Verify(s.sign(c, jwt.SigningMethodHS256, testSecret), s.now)
		s.requireCode(err, models.CodeTokenMalformed)
	})

	s.Run("forged token with a mistyped claim stays invalid", func() {
		c := s.validClaims()
		c["nonce"] = true
		_, err := s.verifier.Verify(s.sign(c, jwt.SigningMethodHS256, "other"), s.now)
		s.requireCode(err, models.CodeTokenInvalidOrExpired)
	})
}

func (s *VerifierSuite) TestClaimShapes() {
	s.Run("numeric meeting id", func() {
		c := s.validClaims()
		c["meetingId"] = 42
		claims, err := s.verifier.Verify(s.sign(c, jwt.SigningMethodHS256, testSecret), s.now)
		s.Require().NoError(err)
		s.Equal("42", claims.MeetingID)
	})

	s.Run("jti stands in for nonce", func() {
		c := s.validClaims()
		delete(c, "nonce")
		c["jti"] = "jti-nonce"
		claims, err := s.verifier.Verify(s.sign(c, jwt.SigningMethodHS256, testSecret), s.now)
		s.Require().NoError(err)
		s.Equal("jti-nonce", claims.Nonce)
	})

	s.Run("numeric nonce and kiosk id", func() {
		c := s.validClaims()
		c["nonce"] = 123456789
		c["kioskId"] = 7
		claims, err := s.verifier.Verify(s.sign(c, jwt.SigningMethodHS256, testSecret), s.now)
		s.Require().NoError(err)
		s.Equal("123456789", claims.Nonce)
		s.Equal("7", claims.KioskID)
	})

	s.Run("kiosk id is optional", func() {
		c := s.validClaims()
		delete(c, "kioskId")
		claims, err := s.verifier.Verify(s.sign(c, jwt.SigningMethodHS256, testSecret), s.now)
		s.Require().NoError(err)
		s.Empty(claims.KioskID)
	})
}

func (s *VerifierSuite) TestIssuedAtSkew() {
	old := s.validClaims()
	old["issuedAt"] = s.now.Add(-200 * time.Second).Unix()
	old["iat"] = s.now.Add(-200 * time.Second).Unix()
	old["exp"] = s.now.Add(100 * time.Second).Unix()
	oldTok := s.sign(old, jwt.SigningMethodHS256, testSecret)

	s.Run("stale token is rejected while still cryptographically valid", func() {
		_, err := s.verifier.Verify(oldTok, s.now)
		s.requireCode(err, models.CodeTokenStale)
	})

	s.Run("issuedAt in the future beyond the skew is rejected", func() {
		c := s.validClaims()
		c["issuedAt"] = s.now.Add(5 * time.Minute).Unix()
		c["exp"] = s.now.Add(6 * time.Minute).Unix()
		_, err := s.verifier.Verify(s.sign(c, jwt.SigningMethodHS256, testSecret), s.now)
		s.requireCode(err, models.CodeTokenStale)
	})

	s.Run("registered iat is used when issuedAt is absent", func() {
		c := s.validClaims()
		delete(c, "issuedAt")
		c["iat"] = s.now.Add(-200 * time.Second).Unix()
		_, err := s.verifier.Verify(s.sign(c, jwt.SigningMethodHS256, testSecret), s.now)
		s.requireCode(err, models.CodeTokenStale)
	})

	s.Run("within the skew passes", func() {
		_, err := s.verifier.Verify(oldTok, s.now.Add(-90*time.Second))
		s.NoError(err)
	})

	s.Run("disabled skew relies on expiry alone", func() {
		_, err := NewVerifier(testSecret).Verify(oldTok, s.now)
		s.NoError(err)
	})
}

func TestIssuerRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 4, 19, 0, 0, 0, time.UTC)
	issuer := NewIssuer(testSecret, 90*time.Second)
	verifier := NewVerifier(testSecret, WithIATSkew(120*time.Second))

	first, err := issuer.Issue("m-7", "kiosk-a", now)
	require.NoError(t, err)
	second, err := issuer.Issue("m-7", "kiosk-a", now)
	require.NoError(t, err)
	require.NotEqual(t, first.Nonce, second.Nonce)

	claims, err := verifier.Verify(first.Token, now.Add(30*time.Second))
	require.NoError(t, err)
	require.Equal(t, "m-7", claims.MeetingID)
	require.Equal(t, "kiosk-a", claims.KioskID)
	require.Equal(t, first.Nonce, claims.Nonce)

	_, err = verifier.Verify(first.Token, now.Add(91*time.Second))
	require.True(t, dErrors.HasCode(err, models.CodeTokenInvalidOrExpired))

	_, err = issuer.Issue(" ", "kiosk-a", now)
	require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}
