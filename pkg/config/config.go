package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	JWTSecret     string
	EncryptionKey string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SyncStream        string
	SyncConsumerGroup string
	SyncConsumerName  string
	GuardTTL          time.Duration
	LedgerTTL         time.Duration

	ExtractorURL string
	EmbedderURL  string

	HTTPTimeout time.Duration

	IncludeTopLevelFiles bool
	IncludePages         bool
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	guardTTL := 30 * time.Minute
	if ttl := os.Getenv("SYNC_GUARD_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			guardTTL = parsed
		}
	}

	ledgerTTL := 24 * time.Hour
	if ttl := os.Getenv("SYNC_LEDGER_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			ledgerTTL = parsed
		}
	}

	httpTimeout := 60 * time.Second
	if t := os.Getenv("HTTP_TIMEOUT"); t != "" {
		if parsed, err := time.ParseDuration(t); err == nil {
			httpTimeout = parsed
		}
	}

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		JWTSecret:            getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		EncryptionKey:        getEnv("ENCRYPTION_KEY", ""),
		DatabaseURL:          getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=canvas_mirror port=5432 sslmode=disable"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		SyncStream:           getEnv("SYNC_STREAM", "canvas:sync:jobs"),
		SyncConsumerGroup:    getEnv("SYNC_CONSUMER_GROUP", "sync-workers"),
		SyncConsumerName:     getEnv("SYNC_CONSUMER_NAME", ""),
		GuardTTL:             guardTTL,
		LedgerTTL:            ledgerTTL,
		ExtractorURL:         getEnv("EXTRACTOR_URL", "http://localhost:9090/extract"),
		EmbedderURL:          getEnv("EMBEDDER_URL", "http://localhost:9091/embed"),
		HTTPTimeout:          httpTimeout,
		IncludeTopLevelFiles: getEnvBool("CANVAS_INCLUDE_TOP_LEVEL_FILES", false),
		IncludePages:         getEnvBool("CANVAS_INCLUDE_PAGES", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
