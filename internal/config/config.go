package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Env                  string
	HTTPAddr             string
	LogLevel             string
	DatabaseURL          string
	DBAutoMigrate        bool
	JWTSecret            string
	RabbitMQURL          string
	RabbitMQWorkerMode   string
	RedisURL             string
	IdempotencyTTL       time.Duration
	DefaultGSTPercentage decimal.Decimal
	CorsAllowedOrigins   []string
	WSHeartbeatInterval  time.Duration
}

func Load() Config {
	return Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8086"),
		LogLevel:             getEnv("LOG_LEVEL", ""),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		DBAutoMigrate:        getEnvBool("DB_AUTO_MIGRATE", false),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		RabbitMQURL:          getEnv("RABBITMQ_URL", ""),
		RabbitMQWorkerMode:   getEnv("RABBITMQ_WORKER_MODE", "daemon"),
		RedisURL:             getEnv("REDIS_URL", ""),
		IdempotencyTTL:       getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		DefaultGSTPercentage: getEnvDecimal("DEFAULT_GST_PERCENTAGE", decimal.NewFromInt(5)),
		CorsAllowedOrigins:   splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		WSHeartbeatInterval:  getEnvDuration("WS_HEARTBEAT_INTERVAL", 30*time.Second),
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
