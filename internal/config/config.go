package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// GetString retrieves an environment variable or returns a fallback when unset.
func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetInt retrieves an environment variable as integer or returns fallback.
func GetInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetBool retrieves an environment variable as bool or returns fallback.
func GetBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// Config holds runtime configuration for the proctoring API.
type Config struct {
	Environment        string
	Addr               string
	DatabaseURL        string
	MigrationsDir      string
	LogLevel           string
	EventPageLimit     int
	EventPageLimitMax  int
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
	BatchSize          int
	BatchInterval      time.Duration
	BatchFlushDelay    time.Duration
	SignalingURL       string
}

// Load constructs a Config from environment variables. A .env file in the
// working directory is honored when present.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":4000"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://proctor:proctor@db:5432/proctor?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "./db/migrations"),
		LogLevel:           GetString("LOG_LEVEL", "info"),
		EventPageLimit:     GetInt("EVENT_PAGE_LIMIT", 100),
		EventPageLimitMax:  GetInt("EVENT_PAGE_LIMIT_MAX", 500),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
		BatchSize:          GetInt("EVENT_BATCH_SIZE", 20),
		BatchInterval:      time.Duration(GetInt("EVENT_BATCH_INTERVAL_MS", 5000)) * time.Millisecond,
		BatchFlushDelay:    time.Duration(GetInt("EVENT_BATCH_FLUSH_DELAY_MS", 750)) * time.Millisecond,
		SignalingURL:       GetString("SIGNALING_URL", "ws://localhost:4000/ws/signaling"),
	}
}
