package config

import (
	"time"
)

// Config captures process configuration. Keys are flat so that every field
// can be overridden with a single CHECKPOINT_<KEY> environment variable.
type Config struct {
	Addr      string `koanf:"addr"`
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`

	// QRCodeSecret is the shared HMAC key used by kiosks to sign tokens.
	QRCodeSecret string `koanf:"qr_code_secret"`
	// IATSkewSeconds bounds how old a token's issuedAt may be. Zero disables the check.
	IATSkewSeconds int `koanf:"iat_skew_seconds"`
	// KioskTokenTTLSeconds is the lifetime of tokens minted by the dev issuer.
	KioskTokenTTLSeconds int `koanf:"kiosk_token_ttl_seconds"`

	MaxAccuracyM         float64 `koanf:"max_accuracy_m"`
	GeofenceBufferM      float64 `koanf:"geofence_buffer_m"`
	MaxReportedAccuracyM float64 `koanf:"max_reported_accuracy_m"`
	EnforceMeetingWindow bool    `koanf:"enforce_meeting_window"`
	PrecheckEnabled      bool    `koanf:"precheck_enabled"`
	ShortIDPattern       string  `koanf:"short_id_pattern"`
	HashSalt             string  `koanf:"hash_salt"`

	AllowChromebookBypass bool `koanf:"allow_chromebook_bypass"`

	// Fallback meeting answers lookups for its id when the store has none.
	FallbackMeetingID      string  `koanf:"fallback_meeting_id"`
	FallbackMeetingLat     float64 `koanf:"fallback_meeting_lat"`
	FallbackMeetingLng     float64 `koanf:"fallback_meeting_lng"`
	FallbackMeetingRadiusM float64 `koanf:"fallback_meeting_radius_m"`

	DatabaseURL          string `koanf:"database_url"`
	ReplicaDatabaseURL   string `koanf:"replica_database_url"`
	DatabaseMaxConns     int32  `koanf:"database_max_conns"`
	CommitTimeoutSeconds int    `koanf:"commit_timeout_seconds"`

	RedisURL          string `koanf:"redis_url"`
	RedisPoolSize     int    `koanf:"redis_pool_size"`
	RateLimitPerMin   int    `koanf:"rate_limit_per_minute"`
	RateLimitDisabled bool   `koanf:"rate_limit_disabled"`

	KafkaBrokers     string `koanf:"kafka_brokers"`
	KafkaAuditTopic  string `koanf:"kafka_audit_topic"`
	AuditBufferSize  int    `koanf:"audit_buffer_size"`
	ShutdownTimeoutS int    `koanf:"shutdown_timeout_seconds"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Addr:                 ":8080",
		LogLevel:             "info",
		LogFormat:            "json",
		IATSkewSeconds:       120,
		KioskTokenTTLSeconds: 90,
		MaxAccuracyM:         50,
		GeofenceBufferM:      10,
		MaxReportedAccuracyM: 2000,
		PrecheckEnabled:      true,
		ShortIDPattern:       `^\d{6}$`,
		DatabaseMaxConns:     20,
		CommitTimeoutSeconds: 5,
		RedisPoolSize:        10,
		RateLimitPerMin:      20,
		KafkaAuditTopic:      "checkpoint.audit",
		AuditBufferSize:      10_000,
		ShutdownTimeoutS:     15,
	}
}

// IATSkew returns the issuedAt tolerance as a duration.
func (c *Config) IATSkew() time.Duration {
	return time.Duration(c.IATSkewSeconds) * time.Second
}

// KioskTokenTTL returns the dev issuer token lifetime.
func (c *Config) KioskTokenTTL() time.Duration {
	return time.Duration(c.KioskTokenTTLSeconds) * time.Second
}

// CommitTimeout bounds a single redemption transaction.
func (c *Config) CommitTimeout() time.Duration {
	return time.Duration(c.CommitTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutS) * time.Second
}

// HasFallbackMeeting reports whether a fallback meeting is configured.
func (c *Config) HasFallbackMeeting() bool {
	return c.FallbackMeetingID != "" && c.FallbackMeetingRadiusM > 0
}
