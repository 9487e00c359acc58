package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
)

const redisClientName = "ekaya-lakehouse"

// NewRedisClient connects the user lookup cache. It returns a nil client when
// the cache is not configured, which callers treat as caching disabled.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	timeout := cfg.Timeout()
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		ClientName:   redisClientName,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   -1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("user cache at %s unreachable: %w", cfg.Addr(), err)
	}
	return client, nil
}
