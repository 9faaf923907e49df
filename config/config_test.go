package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formwall.dev/captcha"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ADDR", "CAPTCHA_HMAC_KEY", "CAPTCHA_ALGORITHM", "CAPTCHA_MAX_NUMBER",
		"CAPTCHA_SALT_LENGTH", "CAPTCHA_EXPIRES", "CAPTCHA_TOKEN_TTL", "CORS_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, captcha.SHA256, cfg.Algorithm)
	assert.EqualValues(t, captcha.DefaultMaxNumber, cfg.MaxNumber)
	assert.Equal(t, captcha.DefaultSaltLength, cfg.SaltLength)
	assert.Equal(t, 10*time.Minute, cfg.Expires)
	assert.Zero(t, cfg.TokenTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)

	// No key supplied: one is generated for the process lifetime.
	assert.True(t, cfg.GeneratedKey)
	assert.Len(t, cfg.HMACKey, 32)
	assert.Len(t, cfg.KeyFingerprint(), 16)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADDR", ":9090")
	t.Setenv("CAPTCHA_HMAC_KEY", "super-secret")
	t.Setenv("CAPTCHA_ALGORITHM", "SHA-512")
	t.Setenv("CAPTCHA_MAX_NUMBER", "50000")
	t.Setenv("CAPTCHA_SALT_LENGTH", "16")
	t.Setenv("CAPTCHA_EXPIRES", "2m")
	t.Setenv("CAPTCHA_TOKEN_TTL", "30m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, []byte("super-secret"), cfg.HMACKey)
	assert.False(t, cfg.GeneratedKey)
	assert.Equal(t, captcha.SHA512, cfg.Algorithm)
	assert.EqualValues(t, 50000, cfg.MaxNumber)
	assert.Equal(t, 16, cfg.SaltLength)
	assert.Equal(t, 2*time.Minute, cfg.Expires)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad algorithm", "CAPTCHA_ALGORITHM", "MD5"},
		{"zero max number", "CAPTCHA_MAX_NUMBER", "0"},
		{"negative max number", "CAPTCHA_MAX_NUMBER", "-5"},
		{"non-numeric max number", "CAPTCHA_MAX_NUMBER", "lots"},
		{"oversized salt", "CAPTCHA_SALT_LENGTH", "100"},
		{"bad expires", "CAPTCHA_EXPIRES", "soon"},
		{"negative token ttl", "CAPTCHA_TOKEN_TTL", "-1m"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
