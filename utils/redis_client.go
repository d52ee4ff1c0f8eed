package utils

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the configured URL, applying the
// separately-configured password and database on top. A URL that fails to
// parse is treated as a plain host:port.
func RedisOptions(url, password string, db int) *redis.Options {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	if password != "" {
		opts.Password = password
	}
	if db != 0 {
		opts.DB = db
	}

	opts.PoolSize = 100
	opts.MinIdleConns = 10
	opts.MaxRetries = 3
	return opts
}

// NewRedisClient creates a pooled Redis client. Redis backs auth sessions and
// the scan rate limiter; the entity store does not depend on it.
func NewRedisClient(url, password string, db int) (*redis.Client, error) {
	opts := RedisOptions(url, password, db)
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: connect %s: %w", url, err)
	}

	slog.Info("connected to redis", "addr", opts.Addr, "db", opts.DB)
	return client, nil
}

// RedisHealthCheck performs a health check on the Redis connection.
func RedisHealthCheck(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
