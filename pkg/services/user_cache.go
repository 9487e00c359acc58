package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

const userCacheKeyPrefix = "lakehouse:user:"

// cachedUserResolver serves token subject lookups from redis before the database.
// Cache failures are logged and fall through to the database.
type cachedUserResolver struct {
	next   auth.UserResolver
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUserResolver wraps next with a redis cache. A nil client returns next unchanged.
func NewCachedUserResolver(next auth.UserResolver, client *redis.Client, ttl time.Duration, logger *zap.Logger) auth.UserResolver {
	if client == nil {
		return next
	}
	return &cachedUserResolver{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.Named("user-cache"),
	}
}

func (c *cachedUserResolver) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	key := userCacheKeyPrefix + email

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var user models.User
		if jerr := json.Unmarshal(data, &user); jerr == nil {
			return &user, nil
		}
		c.logger.Warn("Dropping unreadable cache entry")
		_ = c.client.Del(ctx, key).Err()
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("User cache read failed", zap.Error(err))
	}

	user, err := c.next.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(user); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("User cache write failed", zap.Error(err))
		}
	}
	return user, nil
}

var _ auth.UserResolver = (*cachedUserResolver)(nil)
