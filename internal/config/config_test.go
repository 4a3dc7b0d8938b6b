package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != 8080 {
		t.Fatalf("default port = %d", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("default env = %s", cfg.Env)
	}
	if cfg.KafkaTopic != "wallet.transactions" {
		t.Fatalf("default topic = %s", cfg.KafkaTopic)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Fatalf("brokers should default empty, got %v", cfg.KafkaBrokers)
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("MOPESA_PORT", "9999")
	t.Setenv("MOPESA_KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("MOPESA_SHUTDOWN_TIMEOUT", "3s")

	cfg := Load()
	if cfg.Port != 9999 {
		t.Fatalf("port = %d", cfg.Port)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("shutdown timeout = %s", cfg.ShutdownTimeout)
	}
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("MOPESA_PORT", "not-a-number")
	t.Setenv("MOPESA_SHUTDOWN_TIMEOUT", "never")

	cfg := Load()
	if cfg.Port != 8080 {
		t.Fatalf("port fallback = %d", cfg.Port)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("timeout fallback = %s", cfg.ShutdownTimeout)
	}
}
