package config

import (
	"testing"

	"github.com/caarlos0/env/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, env.Parse(&cfg))

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "local", cfg.StorageType)
	assert.Equal(t, "/files", cfg.StoragePublicBaseURL)
	assert.Equal(t, "V_2", cfg.IdeogramModel)
	assert.Equal(t, 120, cfg.ProviderTimeoutSeconds)
	assert.Equal(t, "basic", cfg.SignupTier)
	assert.Equal(t, "sygl", cfg.JWTIssuer)
	assert.Empty(t, cfg.RedisAddr)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SIGNUP_TIER", "pro")
	t.Setenv("STORAGE_S3_FORCE_PATH_STYLE", "true")

	cfg, err := ParseConfig()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, "g-key", cfg.GeminiAPIKey)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "pro", cfg.SignupTier)
	assert.True(t, cfg.StorageS3ForcePathStyle)
}

func TestConfigRejectsBadNumber(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT_SECONDS", "soon")
	_, err := ParseConfig()
	assert.Error(t, err)
}
