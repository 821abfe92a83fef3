package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/patentchat")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("MAX_PAGE_SIZE", "50")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 50, cfg.MaxPageSize)
	require.Equal(t, 20, cfg.DefaultPageSize)
	require.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	require.Equal(t, "http://a.test,http://b.test", cfg.CORSOriginList())
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		DefaultPageSize: 200,
		MaxPageSize:     100,
		IdempotencyTTL:  time.Hour,
		JWTSecret:       "short",
		LogFormat:       "xml",
	}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "DEFAULT_PAGE_SIZE")
	require.Contains(t, err.Error(), "JWT_SECRET")
	require.Contains(t, err.Error(), "LOG_FORMAT")

	cfg.DefaultPageSize = 20
	cfg.JWTSecret = "0123456789abcdef"
	cfg.LogFormat = "json"
	require.NoError(t, cfg.Validate())
}
