// Package config loads server configuration from the environment.
package config

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"formwall.dev/captcha"
)

// Config holds the immutable inputs the captcha core and HTTP layer are
// given at startup.
type Config struct {
	Addr         string
	HMACKey      []byte
	GeneratedKey bool // HMACKey was generated because none was supplied
	Algorithm    captcha.Algorithm
	MaxNumber    int64
	SaltLength   int
	Expires      time.Duration // 0 disables the salt expiry marker
	TokenTTL     time.Duration // 0 disables verification tokens
	CORSOrigins  []string
}

// Load reads configuration from the environment, loading a local .env file
// first when one exists. Invalid values are returned as errors and are meant
// to abort startup; per-request failures never originate here.
//
// When CAPTCHA_HMAC_KEY is unset a random 32-byte key is generated for the
// process lifetime. Challenges issued under a generated key stop verifying
// after a restart.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:        getEnvWithDefault("ADDR", ":8080"),
		Algorithm:   captcha.Algorithm(getEnvWithDefault("CAPTCHA_ALGORITHM", string(captcha.DefaultAlgorithm))),
		MaxNumber:   captcha.DefaultMaxNumber,
		SaltLength:  captcha.DefaultSaltLength,
		Expires:     10 * time.Minute,
		CORSOrigins: []string{"*"},
	}

	if !cfg.Algorithm.Valid() {
		return nil, fmt.Errorf("invalid CAPTCHA_ALGORITHM %q", cfg.Algorithm)
	}

	if raw := os.Getenv("CAPTCHA_HMAC_KEY"); raw != "" {
		cfg.HMACKey = []byte(raw)
	} else {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate hmac key: %w", err)
		}
		cfg.HMACKey = key
		cfg.GeneratedKey = true
	}

	if raw := os.Getenv("CAPTCHA_MAX_NUMBER"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid CAPTCHA_MAX_NUMBER %q", raw)
		}
		cfg.MaxNumber = n
	}

	if raw := os.Getenv("CAPTCHA_SALT_LENGTH"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 64 {
			return nil, fmt.Errorf("invalid CAPTCHA_SALT_LENGTH %q", raw)
		}
		cfg.SaltLength = n
	}

	if raw := os.Getenv("CAPTCHA_EXPIRES"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid CAPTCHA_EXPIRES %q", raw)
		}
		cfg.Expires = d
	}

	if raw := os.Getenv("CAPTCHA_TOKEN_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid CAPTCHA_TOKEN_TTL %q", raw)
		}
		cfg.TokenTTL = d
	}

	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		var origins []string
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) == 0 {
			return nil, fmt.Errorf("invalid CORS_ORIGINS %q", raw)
		}
		cfg.CORSOrigins = origins
	}

	return cfg, nil
}

// KeyFingerprint identifies the active HMAC key in logs without revealing it.
func (c *Config) KeyFingerprint() string {
	sum := sha256.Sum256(c.HMACKey)
	return hex.EncodeToString(sum[:8])
}

func getEnvWithDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
