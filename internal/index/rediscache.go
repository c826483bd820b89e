package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"watchgate/internal/screening/ports"
)

const (
	acCacheKeyPrefix     = "wg:idx:ac:"
	vectorCacheKeyPrefix = "wg:idx:vec:"
)

// RedisCache is a read-through cache in front of an index backend. Reference
// lists change rarely, so short-TTL caching of tier queries removes most of
// the index load for repeated screenings. Cache failures are logged and fall
// through to the inner backend; a cache must never fail a search.
type RedisCache struct {
	inner  Backend
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache)

// WithCacheLogger sets a logger for cache-failure reporting.
func WithCacheLogger(logger *slog.Logger) RedisCacheOption {
	return func(c *RedisCache) { c.logger = logger }
}

// NewRedisCache wraps an index backend with a Redis read-through cache.
func NewRedisCache(inner Backend, client *redis.Client, ttl time.Duration, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchAC implements ports.IndexSearcher.
func (c *RedisCache) SearchAC(ctx context.Context, q ports.ACQuery) ([]ports.Hit, error) {
	key, ok := c.key(acCacheKeyPrefix, q)
	if ok {
		if hits, hit := c.lookup(ctx, key); hit {
			return hits, nil
		}
	}
	hits, err := c.inner.SearchAC(ctx, q)
	if err != nil {
		return nil, err
	}
	if ok {
		c.store(ctx, key, hits)
	}
	return hits, nil
}

// SearchVector implements ports.VectorSearcher.
func (c *RedisCache) SearchVector(ctx context.Context, q ports.VectorQuery) ([]ports.Hit, error) {
	key, ok := c.key(vectorCacheKeyPrefix, q)
	if ok {
		if hits, hit := c.lookup(ctx, key); hit {
			return hits, nil
		}
	}
	hits, err := c.inner.SearchVector(ctx, q)
	if err != nil {
		return nil, err
	}
	if ok {
		c.store(ctx, key, hits)
	}
	return hits, nil
}

// Health implements ports.HealthChecker by delegating to the inner backend;
// the cache itself is optional capacity, not a dependency.
func (c *RedisCache) Health(ctx context.Context) error {
	if h, ok := c.inner.(ports.HealthChecker); ok {
		return h.Health(ctx)
	}
	return nil
}

func (c *RedisCache) key(prefix string, q any) (string, bool) {
	raw, err := json.Marshal(q)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(raw)
	return prefix + hex.EncodeToString(sum[:16]), true
}

func (c *RedisCache) lookup(ctx context.Context, key string) ([]ports.Hit, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "index cache read failed", "error", err)
		}
		return nil, false
	}
	var hits []ports.Hit
	if err := json.Unmarshal(raw, &hits); err != nil {
		c.logger.WarnContext(ctx, "index cache entry corrupt, dropping", "key", key, "error", err)
		c.client.Del(ctx, key)
		return nil, false
	}
	return hits, true
}

func (c *RedisCache) store(ctx context.Context, key string, hits []ports.Hit) {
	raw, err := json.Marshal(hits)
	if err != nil {
		c.logger.WarnContext(ctx, "index cache encode failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "index cache write failed", "error", err)
	}
}

// flushPattern removes cached entries by glob pattern, for list reloads.
func (c *RedisCache) flushPattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("flush cache key %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

// Invalidate drops all cached index results.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	for _, prefix := range []string{acCacheKeyPrefix, vectorCacheKeyPrefix} {
		if err := c.flushPattern(ctx, prefix+"*"); err != nil {
			return err
		}
	}
	return nil
}
