package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

const (
	chromebookUA = "Mozilla/5.0 (X11; CrOS x86_64 14541.0.0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	macChromeUA  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	iphoneUA     = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	linuxFirefox = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
)

type DeviceSuite struct {
	suite.Suite
	svc *Service
}

func TestDeviceSuite(t *testing.T) {
	suite.Run(t, new(DeviceSuite))
}

func (s *DeviceSuite) SetupTest() {
	s.svc = NewService("pepper")
}

func (s *DeviceSuite) TestHash() {
	s.Run("deterministic hex digest", func() {
		h1 := s.svc.Hash("203.0.113.7")
		h2 := s.svc.Hash("203.0.113.7")
		s.Equal(h1, h2)
		s.Len(h1, 64)
		s.NotContains(h1, "203.0.113.7")
	})

	s.Run("salt changes the digest", func() {
		s.NotEqual(s.svc.Hash("203.0.113.7"), NewService("other").Hash("203.0.113.7"))
	})

	s.Run("empty input stays empty", func() {
		s.Empty(s.svc.Hash(""))
		s.Empty(s.svc.Hash("   "))
	})

	s.Run("long salts are accepted", func() {
		s.Len(NewService(strings.Repeat("x", 200)).Hash("v"), 64)
	})
}

func (s *DeviceSuite) TestIsChromeOS() {
	s.True(IsChromeOS(chromebookUA))
	s.False(IsChromeOS(macChromeUA))
	s.False(IsChromeOS(iphoneUA))
	s.False(IsChromeOS(linuxFirefox))
	s.False(IsChromeOS(""))
}

func (s *DeviceSuite) TestParseUserAgent() {
	s.Run("empty user agent returns unknown device", func() {
		s.Equal("Unknown Device", ParseUserAgent(""))
	})

	s.Run("chrome on desktop includes browser and OS", func() {
		result := ParseUserAgent(macChromeUA)
		s.Contains(result, "Chrome")
		s.Contains(result, " on ")
		s.NotContains(result, "  ")
	})

	s.Run("firefox on linux includes browser", func() {
		s.Contains(ParseUserAgent(linuxFirefox), "Firefox")
	})

	s.Run("result has no surrounding whitespace", func() {
		result := ParseUserAgent("Unknown/1.0")
		s.Equal(strings.TrimSpace(result), result)
		s.NotEmpty(result)
	})
}

func (s *DeviceSuite) TestNormalizeFingerprint() {
	s.Equal("abc", NormalizeFingerprint("  abc \n"))

	long := strings.Repeat("f", 2*MaxFingerprintLen)
	s.Equal(long, NormalizeFingerprint(long), "long values are never shortened")
}

func (s *DeviceSuite) TestValidFingerprint() {
	s.True(ValidFingerprint(strings.Repeat("f", MaxFingerprintLen)))
	s.True(ValidFingerprint("é"))
	s.False(ValidFingerprint(""))
	s.False(ValidFingerprint(strings.Repeat("f", MaxFingerprintLen+1)))
	s.False(ValidFingerprint(strings.Repeat("a", MaxFingerprintLen-1)+"é"), "multi-byte rune crossing the limit")
	s.False(ValidFingerprint("fp-\xff"))
}
