package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheKey is where the current catalog definition is cached.
const CacheKey = "pricing:catalog:current"

// Cache keeps the current definition in Redis so API and worker replicas agree
// without each hitting Postgres.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client redis.Cmdable, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get loads the cached definition. It reports whether the key existed.
func (c *Cache) Get(ctx context.Context) (Definition, bool, error) {
	var def Definition
	if c == nil || c.client == nil {
		return def, false, nil
	}
	data, err := c.client.Get(ctx, CacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return def, false, nil
		}
		return def, false, err
	}
	if err := json.Unmarshal(data, &def); err != nil {
		return def, false, err
	}
	return def, true, nil
}

// Set stores def with the configured TTL.
func (c *Cache) Set(ctx context.Context, def Definition) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(def)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, CacheKey, data, c.ttl).Err()
}

// Invalidate drops the cached definition.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, CacheKey).Err()
}
