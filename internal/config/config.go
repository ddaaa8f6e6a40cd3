package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DatabaseURL string

	// Redis (progress tracker); empty keeps progress in memory
	RedisURL string

	// Kafka
	KafkaBrokers   []string
	KafkaSyncTopic string
	KafkaGroupID   string

	// SyncTrigger selects how a scheduled sync is dispatched: "local" or "kafka"
	SyncTrigger string

	// API Configuration
	APIPort string
	APIHost string

	// Encryption of the stored ERP password
	EncryptionKey string

	// Spire ERP
	ERPTimeout       time.Duration
	SyncPageSize     int
	DefaultWarehouse string
	ProgressTTL      time.Duration

	// Environment
	Env      string
	LogLevel string
}

const (
	TriggerLocal = "local"
	TriggerKafka = "kafka"
)

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	trigger := strings.ToLower(getEnv("SYNC_TRIGGER", TriggerLocal))
	if trigger != TriggerKafka {
		trigger = TriggerLocal
	}

	return &Config{
		DatabaseURL:      getEnv("DATABASE_URL", "sqlite://spire-sync.db"),
		RedisURL:         getEnv("REDIS_URL", ""),
		KafkaBrokers:     getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaSyncTopic:   getEnv("KAFKA_SYNC_TOPIC", "inventory-sync-requests"),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "spire-sync-worker"),
		SyncTrigger:      trigger,
		APIPort:          getEnv("API_PORT", "8080"),
		APIHost:          getEnv("API_HOST", "0.0.0.0"),
		EncryptionKey:    getEnv("ENCRYPTION_KEY", "your-32-byte-encryption-key-here"),
		ERPTimeout:       getEnvAsDuration("ERP_TIMEOUT", 30*time.Second),
		SyncPageSize:     getEnvAsInt("SYNC_PAGE_SIZE", 100),
		DefaultWarehouse: getEnv("DEFAULT_WAREHOUSE", "01"),
		ProgressTTL:      getEnvAsDuration("PROGRESS_TTL", 5*time.Minute),
		Env:              getEnv("ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
