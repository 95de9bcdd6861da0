// Package cache keeps populated profiles in Redis, keyed by owning user.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/devconnector/devconnector/backend/go-services/internal/profile"
	"github.com/devconnector/devconnector/backend/go-services/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const keyPrefix = "profile:user:"

func key(userID primitive.ObjectID) string { return keyPrefix + userID.Hex() }

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns (nil, nil) on a miss.
func (c *RedisCache) Get(ctx context.Context, userID primitive.ObjectID) (*profile.View, error) {
	b, err := c.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ProfileCache.WithLabelValues("miss").Inc()
		return nil, nil
	}
	if err != nil {
		metrics.ProfileCache.WithLabelValues("error").Inc()
		return nil, err
	}
	var v profile.View
	if err := json.Unmarshal(b, &v); err != nil {
		metrics.ProfileCache.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ProfileCache.WithLabelValues("hit").Inc()
	return &v, nil
}

func (c *RedisCache) Set(ctx context.Context, userID primitive.ObjectID, v *profile.View) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(userID), b, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, userID primitive.ObjectID) error {
	return c.client.Del(ctx, key(userID)).Err()
}
