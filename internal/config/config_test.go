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
	if cfg.FeedChunkSize != 10 {
		t.Fatalf("expected chunk size 10, got %d", cfg.FeedChunkSize)
	}
	if cfg.PostTTL != 24*time.Hour || cfg.RecencyWindow != 24*time.Hour {
		t.Fatalf("expected 24h windows, got %v / %v", cfg.PostTTL, cfg.RecencyWindow)
	}
	if !cfg.IsDev() {
		t.Fatalf("expected development by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("FEED_CHUNK_SIZE", "5")
	t.Setenv("RECENCY_WINDOW", "12h")

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
	if cfg.IsDev() {
		t.Fatalf("expected production")
	}
	if cfg.FeedChunkSize != 5 {
		t.Fatalf("expected chunk size override")
	}
	if cfg.RecencyWindow != 12*time.Hour {
		t.Fatalf("expected recency override")
	}
}
