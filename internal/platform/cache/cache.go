// Package cache provides the key/value cache repositories fall back to when
// the primary store is unavailable. Values are stored as JSON.
package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Cache stores JSON-encoded values by key.
type Cache interface {
	// Get decodes the value stored at key into dst and reports whether the
	// key was present.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// New returns a Redis-backed cache when redisURL is set and the server
// answers a ping, otherwise an in-memory cache. The returned close function
// releases the Redis client, if any.
func New(ctx context.Context, redisURL string, logger zerolog.Logger) (Cache, func() error) {
	if redisURL == "" {
		logger.Info().Msg("REDIS_URL not set, using in-memory cache")
		return NewMemoryCache(), func() error { return nil }
	}

	rc, err := NewRedisCache(redisURL, "seniorcare:")
	if err != nil {
		logger.Warn().Err(err).Msg("invalid REDIS_URL, using in-memory cache")
		return NewMemoryCache(), func() error { return nil }
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, using in-memory cache")
		_ = rc.Close()
		return NewMemoryCache(), func() error { return nil }
	}

	logger.Info().Msg("connected to redis")
	return rc, rc.Close
}

// Key joins parts into a cache key such as "users:<id>".
func Key(collection, id string) string {
	return collection + ":" + id
}
