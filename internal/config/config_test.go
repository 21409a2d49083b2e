package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "HTTP_ADDR", "DB_AUTO_MIGRATE", "IDEMPOTENCY_TTL", "DEFAULT_GST_PERCENTAGE", "CORS_ALLOWED_ORIGINS", "RABBITMQ_WORKER_MODE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, ":8086", cfg.HTTPAddr)
	assert.False(t, cfg.DBAutoMigrate)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.True(t, decimal.NewFromInt(5).Equal(cfg.DefaultGSTPercentage))
	assert.Nil(t, cfg.CorsAllowedOrigins)
	assert.Equal(t, "daemon", cfg.RabbitMQWorkerMode)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("IDEMPOTENCY_TTL", "90m")
	t.Setenv("DEFAULT_GST_PERCENTAGE", "12.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://pos.example.com, ,https://kds.example.com")
	t.Setenv("WS_HEARTBEAT_INTERVAL", "not-a-duration")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.DBAutoMigrate)
	assert.Equal(t, 90*time.Minute, cfg.IdempotencyTTL)
	assert.True(t, decimal.RequireFromString("12.5").Equal(cfg.DefaultGSTPercentage))
	assert.Equal(t, []string{"https://pos.example.com", "https://kds.example.com"}, cfg.CorsAllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.WSHeartbeatInterval)
}

func TestNegativeGSTFallsBack(t *testing.T) {
	t.Setenv("DEFAULT_GST_PERCENTAGE", "-3")
	assert.True(t, decimal.NewFromInt(5).Equal(Load().DefaultGSTPercentage))
}
