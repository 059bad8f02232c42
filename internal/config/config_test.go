package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "sqlite://crm.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "sqlite://crm.db", cfg.DatabaseURL)
	assert.Equal(t, 8, cfg.JWTExpirationHours)
	assert.Equal(t, 200, cfg.TrashSweepBatch)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 5*time.Minute, cfg.RegistryCacheTTL())
}

func TestAllowedOrigins(t *testing.T) {
	assert.Nil(t, (&Config{}).AllowedOrigins())
	cfg := &Config{CORSAllowedOrigins: " https://a.test, ,https://b.test"}
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins())
}
