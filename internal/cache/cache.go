// Package cache is a Redis read-through cache for reference data.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/pageza/larder/backend/internal/logger"
)

type Cache struct {
	rdb    *redis.Client
	sf     singleflight.Group
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

// New returns a cache over rdb. A nil rdb gives a pass-through cache that
// always calls the loader.
func New(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl, prefix: "larder:cache:", log: log}
}

func (c *Cache) enabled() bool {
	return c != nil && c.rdb != nil
}

// jitter spreads expiry of keys written together over an extra tenth of the TTL.
func (c *Cache) jitter() time.Duration {
	window := int64(c.ttl / 10)
	if window <= 0 {
		return c.ttl
	}
	return c.ttl + time.Duration(rand.Int63n(window))
}

// Fetch returns the cached value for key or loads, stores and returns it.
// Concurrent misses on one key share a single load, which runs detached from
// the cancellation of whichever caller started it. Redis errors degrade to
// calling load directly.
func Fetch[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	if !c.enabled() {
		return load(ctx)
	}
	full := c.prefix + key

	raw, err := c.rdb.Get(ctx, full).Bytes()
	switch {
	case err == nil:
		var out T
		if jsonErr := json.Unmarshal(raw, &out); jsonErr == nil {
			return out, nil
		}
		c.log.Warn("discarding undecodable cache entry", "key", full)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("cache read failed", "key", full, "error", err)
		return load(ctx)
	}

	v, err, _ := c.sf.Do(full, func() (interface{}, error) {
		shared := context.WithoutCancel(ctx)
		val, err := load(shared)
		if err != nil {
			return nil, err
		}
		if data, mErr := json.Marshal(val); mErr == nil {
			if sErr := c.rdb.Set(shared, full, data, c.jitter()).Err(); sErr != nil {
				c.log.Warn("cache write failed", "key", full, "error", sErr)
			}
		}
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate removes keys and every key under the given prefixes.
func (c *Cache) Invalidate(ctx context.Context, keys []string, prefixes ...string) error {
	if !c.enabled() {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.prefix+k)
	}
	for _, p := range prefixes {
		iter := c.rdb.Scan(ctx, 0, c.prefix+p+"*", 100).Iterator()
		for iter.Next(ctx) {
			full = append(full, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	if len(full) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, full...).Err()
}
