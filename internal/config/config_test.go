package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("STORE_DRIVER", "memory")
}

func TestLoad_MemoryDefaults(t *testing.T) {
	setBase(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.RefundRestoresInventory)
	assert.False(t, cfg.ConsumerEnabled)
	assert.Equal(t, "logs/purchases.log", cfg.PurchaseLogPath)
	assert.True(t, cfg.Cache.Methods["GET"])
}

func TestLoad_MySQLRequiresConnectionSettings(t *testing.T) {
	setBase(t)
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PORT", "not-a-port")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, "DB_HOST")
	assert.ErrorContains(t, err, "DB_NAME")
	assert.ErrorContains(t, err, "invalid int for DB_PORT")
}

func TestLoad_RejectsUnknownValues(t *testing.T) {
	setBase(t)
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("LOG_FORMAT", "xml")
	t.Setenv("LOG_LEVEL", "loud")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, "STORE_DRIVER")
	assert.ErrorContains(t, err, "LOG_FORMAT")
	assert.ErrorContains(t, err, "LOG_LEVEL")
}

func TestLoad_Overrides(t *testing.T) {
	setBase(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REFUND_RESTORES_INVENTORY", "false")
	t.Setenv("AMQP_URL", "amqp://guest:guest@mq:5672/")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.False(t, cfg.RefundRestoresInventory)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.RabbitURL)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)
	assert.Equal(t, "ip_route", cfg.KeyStrategy)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_ENABLED", "off")

	cfg := LoadCacheConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, 15*time.Second, cfg.TTL)
}
