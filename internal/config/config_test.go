package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BEDROCK_MODEL_ID", "")
	t.Setenv("ADMIN_ALLOWLIST", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "leadline", cfg.LeadsTable)
	assert.Equal(t, 10*time.Minute, cfg.RateWindow)
	assert.Equal(t, 3, cfg.RateMaxRequests)
	assert.Equal(t, "store", cfg.RateBackend)
	assert.Equal(t, "bedrock", cfg.SuggestProvider)
	assert.NotEmpty(t, cfg.BookingNote)
	assert.Nil(t, cfg.AdminAllowlist)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LEADS_TABLE", "leads_prod")
	t.Setenv("ADMIN_ALLOWLIST", "owner@studio.com, assistant@studio.com ,")
	t.Setenv("ADMIN_ROLE", "studio-admins")
	t.Setenv("RATE_WINDOW", "5m")
	t.Setenv("RATE_MAX_REQUESTS", "10")
	t.Setenv("RATE_BACKEND", "Redis")
	t.Setenv("REDIS_TLS", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "leads_prod", cfg.LeadsTable)
	require.Equal(t, []string{"owner@studio.com", "assistant@studio.com"}, cfg.AdminAllowlist)
	assert.Equal(t, "studio-admins", cfg.AdminRole)
	assert.Equal(t, 5*time.Minute, cfg.RateWindow)
	assert.Equal(t, 10, cfg.RateMaxRequests)
	assert.Equal(t, "redis", cfg.RateBackend)
	assert.True(t, cfg.RedisTLS)
}

func TestLoadBadNumericFallsBack(t *testing.T) {
	t.Setenv("RATE_MAX_REQUESTS", "lots")
	t.Setenv("RATE_WINDOW", "soon")

	cfg := Load()

	assert.Equal(t, 3, cfg.RateMaxRequests)
	assert.Equal(t, 10*time.Minute, cfg.RateWindow)
}
