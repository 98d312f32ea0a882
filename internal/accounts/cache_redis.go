package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "adsgate:login-customer:"

// RedisCache shares resolved login customers between gateway replicas.
type RedisCache struct {
	rdb *redis.Client
	// ttl of zero keeps entries until deleted.
	ttl time.Duration
}

var _ LoginCustomerCache = (*RedisCache)(nil)

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// NewRedisCacheFromURL connects to a redis:// or rediss:// URL.
func NewRedisCacheFromURL(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisCache(redis.NewClient(opts), ttl), nil
}

func redisKey(userID string) string {
	return redisKeyPrefix + userID
}

func (c *RedisCache) Get(ctx context.Context, userID string) (string, bool, error) {
	id, err := c.rdb.Get(ctx, redisKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return id, true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID, customerID string) error {
	if err := c.rdb.Set(ctx, redisKey(userID), customerID, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := c.rdb.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
