package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "0123456789abcdef")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, uint16(3000), cfg.HttpServerPort)
	assert.Equal(t, uint16(6379), cfg.RedisPort)
	assert.Equal(t, "relay_db", cfg.PostgresDb)
	assert.Equal(t, "disable", cfg.PostgresSSLMode)
	assert.Equal(t, 20, cfg.PostgresMaxConns)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 256, cfg.WsSendBuffer)
	assert.Equal(t, int64(4096), cfg.WsMaxMessageSize)
	assert.Equal(t, 30*time.Second, cfg.WsPingPeriod)
	assert.Zero(t, cfg.WsIdleTimeout)
	assert.Equal(t, []string{"*"}, cfg.CorsAllow)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SECRET_KEY", "0123456789abcdef")
	t.Setenv("HTTP_SERVER_PORT", "8081")
	t.Setenv("CORS_ALLOW", "http://a.test,http://b.test")
	t.Setenv("WS_IDLE_TIMEOUT", "90s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, uint16(8081), cfg.HttpServerPort)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CorsAllow)
	assert.Equal(t, 90*time.Second, cfg.WsIdleTimeout)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigValidates(t *testing.T) {
	t.Setenv("SECRET_KEY", "short")

	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("SECRET_KEY", "0123456789abcdef")
	t.Setenv("HTTP_SERVER_PORT", "80")
	_, err = LoadConfig()
	assert.Error(t, err)

	t.Setenv("HTTP_SERVER_PORT", "3000")
	t.Setenv("POSTGRES_SSLMODE", "sometimes")
	_, err = LoadConfig()
	assert.Error(t, err)
}
