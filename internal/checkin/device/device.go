// Package device derives the client signals stored alongside a redemption:
// keyed hashes of network identifiers and a coarse user-agent reading.
package device

import (
	"encoding/hex"
	"hash"
	"strings"
	"unicode/utf8"

	"github.com/mssola/useragent"
	"golang.org/x/crypto/blake2b"
)

// MaxFingerprintLen is the longest accepted client-supplied fingerprint, in bytes.
const MaxFingerprintLen = 512

// Service hashes client signals with a deployment salt so stored values
// cannot be joined across deployments or reversed by dictionary.
type Service struct {
	key [32]byte
}

// NewService derives the hashing key from salt.
func NewService(salt string) *Service {
	return &Service{key: blake2b.Sum256([]byte("checkpoint/device:" + salt))}
}

// Hash returns the hex keyed BLAKE2b-256 of v, or "" for empty input.
func (s *Service) Hash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	h := s.mac()
	h.Write([]byte(v))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Service) mac() hash.Hash {
	// A 32-byte key is always accepted.
	h, _ := blake2b.New256(s.key[:])
	return h
}

// NormalizeFingerprint trims a client-supplied fingerprint. It never
// shortens the value; distinct devices must stay distinct.
func NormalizeFingerprint(fp string) string {
	return strings.TrimSpace(fp)
}

// ValidFingerprint reports whether fp is non-empty UTF-8 within
// MaxFingerprintLen bytes.
func ValidFingerprint(fp string) bool {
	return fp != "" && len(fp) <= MaxFingerprintLen && utf8.ValidString(fp)
}

// IsChromeOS reports whether ua was sent by a ChromeOS device.
func IsChromeOS(ua string) bool {
	if strings.TrimSpace(ua) == "" {
		return false
	}
	parsed := useragent.New(ua)
	if parsed.Bot() {
		return false
	}
	os := strings.ToLower(parsed.OS() + " " + parsed.Platform())
	if strings.Contains(os, "cros") || strings.Contains(os, "chrome os") || strings.Contains(os, "chromeos") {
		return true
	}
	return strings.Contains(ua, "CrOS")
}

// ParseUserAgent returns a short display name such as "Chrome on Linux".
func ParseUserAgent(ua string) string {
	if strings.TrimSpace(ua) == "" {
		return "Unknown Device"
	}
	parsed := useragent.New(ua)
	browser, _ := parsed.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := parsed.OS()
	if os == "" {
		os = parsed.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}
