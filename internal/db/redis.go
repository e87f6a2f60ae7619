package db

import (
	"context"
	"log/slog"
	"time"

	"brief-backend/internal/config"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns nil when no address is configured. An unreachable
// server is logged but the client is still returned; callers degrade to
// local behaviour until it comes back.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable", "addr", cfg.RedisAddr, "error", err)
	}
	return client
}
