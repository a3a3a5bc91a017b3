package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/waifu/internal/config"
)

// PingTimeout bounds the connectivity check made by NewRedisClient and Health.
const PingTimeout = 2 * time.Second

// RedisClient wraps a go-redis client with a health check.
type RedisClient struct {
	*redis.Client
}

// NewRedisClient connects to Redis and verifies the connection.
//
// Postcondition: Returns a connected client or an error; the client is
// closed on failure.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping redis %s failed: %w", cfg.Addr, err)
	}
	return &RedisClient{Client: client}, nil
}

// Health pings the server.
func (c *RedisClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	return c.Ping(ctx).Err()
}
