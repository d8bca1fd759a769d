package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.Locale != "ko" {
		t.Fatalf("expected ko locale, got %q", cfg.Locale)
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("unexpected session ttl: %v", cfg.SessionTTL)
	}
	if cfg.BlobBackend() != "memory" {
		t.Fatalf("expected memory blob backend by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("LOCALE", "en")
	t.Setenv("S3_ENDPOINT", "minio:9000")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("KAFKA_BROKERS", "kafka:9092")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("expected override session ttl, got %v", cfg.SessionTTL)
	}
	if cfg.Locale != "en" {
		t.Fatalf("expected override locale")
	}
	if !cfg.S3UseSSL || cfg.BlobBackend() != "s3" {
		t.Fatalf("expected s3 backend with ssl")
	}
	if cfg.KafkaBrokers != "kafka:9092" {
		t.Fatalf("expected override kafka brokers")
	}
}

func TestBlobBackendGCS(t *testing.T) {
	cfg := Config{GCSBucket: "bucket"}
	if cfg.BlobBackend() != "gcs" {
		t.Fatalf("expected gcs backend")
	}
}

func TestBrokers(t *testing.T) {
	if got := (Config{}).Brokers(); len(got) != 0 {
		t.Fatalf("expected no brokers, got %v", got)
	}
	got := Config{KafkaBrokers: "kafka-1:9092, kafka-2:9092,"}.Brokers()
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", got)
	}
}
