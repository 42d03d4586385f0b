// Package cache provides the Redis-backed product read cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"salesledger/internal/core/id"
	"salesledger/internal/domain/catalogs/product"
)

const keyPrefix = "salesledger:product:"

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisProductCache implements product.Cache on Redis. Values are JSON.
type RedisProductCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisProductCache connects a client for cfg.
func NewRedisProductCache(cfg Config) *RedisProductCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewProductCache(client, cfg.TTL)
}

// NewProductCache wraps an existing client.
func NewProductCache(client redis.UniversalClient, ttl time.Duration) *RedisProductCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisProductCache{client: client, ttl: ttl}
}

// Ping checks connectivity.
func (c *RedisProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client.
func (c *RedisProductCache) Close() error {
	return c.client.Close()
}

func key(productID id.ID) string {
	return keyPrefix + productID.String()
}

// Get implements product.Cache.
func (c *RedisProductCache) Get(ctx context.Context, productID id.ID) (*product.Product, bool, error) {
	val, err := c.client.Get(ctx, key(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var p product.Product
	if err := json.Unmarshal(val, &p); err != nil {
		// A corrupt entry is a miss; drop it so the next read refills.
		_ = c.client.Del(ctx, key(productID)).Err()
		return nil, false, nil
	}
	return &p, true, nil
}

// Set implements product.Cache.
func (c *RedisProductCache) Set(ctx context.Context, p *product.Product) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}
	return c.client.Set(ctx, key(p.ID), payload, c.ttl).Err()
}

// Invalidate implements product.Cache.
func (c *RedisProductCache) Invalidate(ctx context.Context, ids ...id.ID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, pid := range ids {
		keys = append(keys, key(pid))
	}
	return c.client.Del(ctx, keys...).Err()
}

var _ product.Cache = (*RedisProductCache)(nil)
