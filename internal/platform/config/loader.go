package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	platformstrings "checkpoint/pkg/platform/strings"
)

const (
	envPrefix  = "CHECKPOINT_"
	envFileVar = "CHECKPOINT_CONFIG"
)

// Load builds a Config by layering, from lowest to highest precedence:
//  1. defaults (New)
//  2. a YAML file named by CHECKPOINT_CONFIG
//  3. CHECKPOINT_* environment variables, including those from a local .env file
func Load(_ context.Context) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QRCodeSecret == "":
		return fmt.Errorf("%w: qr_code_secret must be set", ErrInvalidConfig)
	case c.IATSkewSeconds < 0:
		return fmt.Errorf("%w: iat_skew_seconds must not be negative", ErrInvalidConfig)
	case c.MaxAccuracyM <= 0:
		return fmt.Errorf("%w: max_accuracy_m must be positive", ErrInvalidConfig)
	case c.GeofenceBufferM < 0:
		return fmt.Errorf("%w: geofence_buffer_m must not be negative", ErrInvalidConfig)
	case c.RateLimitPerMin <= 0 && !c.RateLimitDisabled:
		return fmt.Errorf("%w: rate_limit_per_minute must be positive", ErrInvalidConfig)
	}
	if _, err := regexp.Compile(c.ShortIDPattern); err != nil {
		return fmt.Errorf("%w: short_id_pattern: %v", ErrInvalidConfig, err)
	}
	return nil
}

// KafkaBrokerList splits the comma-separated broker setting.
func (c *Config) KafkaBrokerList() []string {
	return platformstrings.SplitList(c.KafkaBrokers)
}
