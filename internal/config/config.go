// Package config reads service configuration from the environment. A .env
// file, when present, supplies development defaults; real deployments set
// variables directly.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	DatabaseURL   string
	MigrationsDir string

	KafkaBrokers []string
	KafkaTopic   string

	NotificationWebhookURL string // empty = log notifications

	ShutdownTimeout time.Duration
}

// Load builds the configuration. Missing .env is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:                    getEnv("MOPESA_ENV", "development"),
		Port:                   getEnvAsInt("MOPESA_PORT", 8080),
		DatabaseURL:            getEnv("MOPESA_PG_DSN", ""),
		MigrationsDir:          getEnv("MOPESA_MIGRATIONS_DIR", "migrations"),
		KafkaBrokers:           splitList(getEnv("MOPESA_KAFKA_BROKERS", "")),
		KafkaTopic:             getEnv("MOPESA_KAFKA_TOPIC", "wallet.transactions"),
		NotificationWebhookURL: getEnv("MOPESA_NOTIFY_WEBHOOK_URL", ""),
		ShutdownTimeout:        getEnvAsDuration("MOPESA_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback))); err == nil {
		return v
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, fallback.String())); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
