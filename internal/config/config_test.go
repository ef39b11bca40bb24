package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://lify.db")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_EXPIRY", "")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg := Load()

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 100, cfg.RateLimitMaxRequests)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "lify:events", cfg.EventsChannel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "7")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ENVIRONMENT", "production")

	cfg := Load()

	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 7, cfg.RateLimitMaxRequests)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "lots")
	t.Setenv("RATE_LIMIT_WINDOW", "soon")

	cfg := Load()

	assert.Equal(t, 100, cfg.RateLimitMaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
}

func TestValidate_MissingSecret(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://x"}
	assert.EqualError(t, cfg.Validate(), "JWT_SECRET is required")
}
