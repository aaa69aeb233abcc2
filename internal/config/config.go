// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable.
type Config struct {
	Env  string // APP_ENV (dev, test, prod)
	Port string // APP_PORT

	LogLevel  slog.Level // LOG_LEVEL (debug, info, warn, error)
	LogFormat string     // LOG_FORMAT (json, text)

	StoreDriver   string // STORE_DRIVER (mysql, memory)
	DBUser        string
	DBPass        string // may be empty
	DBHost        string
	DBPort        string
	DBName        string
	DBAutoMigrate bool // DB_AUTO_MIGRATE

	RabbitURL       string // RABBITMQ_URL, falls back to AMQP_URL; empty disables events
	ConsumerEnabled bool   // QUEUE_CONSUMER_ENABLED
	PurchaseLogPath string // PURCHASE_LOG_PATH

	// RefundRestoresInventory makes refunds return tickets to sale like
	// cancellations do (REFUND_RESTORES_INVENTORY, default true).
	RefundRestoresInventory bool

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// Load reads a .env file when present, then the environment. Every
// missing or malformed required variable is reported in the returned
// error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	var r reader
	cfg := Config{
		Env:       r.must("APP_ENV"),
		Port:      r.mustInt("APP_PORT"),
		LogFormat: strings.ToLower(getenv("LOG_FORMAT", "json")),

		StoreDriver:   strings.ToLower(getenv("STORE_DRIVER", StoreMySQL)),
		DBPass:        os.Getenv("DB_PASS"),
		DBAutoMigrate: envBool("DB_AUTO_MIGRATE", false),

		RabbitURL:       firstEnv("RABBITMQ_URL", "AMQP_URL"),
		ConsumerEnabled: envBool("QUEUE_CONSUMER_ENABLED", false),
		PurchaseLogPath: getenv("PURCHASE_LOG_PATH", "logs/purchases.log"),

		RefundRestoresInventory: envBool("REFUND_RESTORES_INVENTORY", true),

		Redis:     LoadRedisConfig(),
		RateLimit: LoadRateLimitConfig(),
		Cache:     LoadCacheConfig(),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		r.errs = append(r.errs, fmt.Errorf("invalid LOG_FORMAT %q (want json or text)", cfg.LogFormat))
	}

	switch cfg.StoreDriver {
	case StoreMySQL:
		cfg.DBUser = r.must("DB_USER")
		cfg.DBHost = r.must("DB_HOST")
		cfg.DBPort = r.mustInt("DB_PORT")
		cfg.DBName = r.must("DB_NAME")
	case StoreMemory:
	default:
		r.errs = append(r.errs, fmt.Errorf("invalid STORE_DRIVER %q (want mysql or memory)", cfg.StoreDriver))
	}

	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// reader collects errors for required variables instead of exiting on
// the first one.
type reader struct{ errs []error }

// must retrieves the value of a required environment variable.
func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.errs = append(r.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// mustInt is like must but also checks that the value is an integer. The
// string form is returned since ports are used as strings.
func (r *reader) mustInt(key string) string {
	s := r.must(key)
	if s == "" {
		return s
	}
	if _, err := strconv.Atoi(s); err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return s
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
