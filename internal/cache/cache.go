package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/IshaanNene/ReviewGoat/internal/observability"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

const keyPrefix = "reviewgoat:run:"

// RunCache keeps the latest finished run per product URL in Redis.
type RunCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// New connects a RunCache. Connectivity is checked lazily on first use.
func New(addr, password string, db int, ttl time.Duration, metrics *observability.Metrics) *RunCache {
	return &RunCache{
		client:  redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		ttl:     ttl,
		metrics: metrics,
	}
}

// Key is the Redis key for a product URL.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return keyPrefix + hex.EncodeToString(sum[:16])
}

// Get returns the cached run for url, or types.ErrCacheMiss.
func (c *RunCache) Get(ctx context.Context, url string) (*types.Run, error) {
	b, err := c.client.Get(ctx, Key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.ObserveCache("miss")
		return nil, types.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	c.metrics.ObserveCache("hit")

	var run types.Run
	if err := json.Unmarshal(b, &run); err != nil {
		return nil, fmt.Errorf("decode cached run: %w", err)
	}
	return &run, nil
}

// Set stores run under its URL. Only completed runs are worth caching.
func (c *RunCache) Set(ctx context.Context, run *types.Run) error {
	if run.Status != types.RunCompleted {
		return nil
	}
	b, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	c.metrics.ObserveCache("set")
	return c.client.Set(ctx, Key(run.URL), b, c.ttl).Err()
}

// Invalidate drops the cached run for url.
func (c *RunCache) Invalidate(ctx context.Context, url string) error {
	return c.client.Del(ctx, Key(url)).Err()
}

// Close releases the connection pool.
func (c *RunCache) Close() error {
	return c.client.Close()
}
