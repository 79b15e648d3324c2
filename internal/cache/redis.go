// internal/cache/redis.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/valpere/klresults/internal/utils"
)

const redisKeyPrefix = "klresults:date:"

// RedisDateCache shares candidate dates between runs and processes.
// Lookup failures are logged and treated as misses.
type RedisDateCache struct {
	client *redis.Client
	ttl    time.Duration
	logger utils.Logger
}

// NewRedisDateCache connects to the server at redisURL (redis://host:port/db).
func NewRedisDateCache(ctx context.Context, redisURL string, ttl time.Duration, logger utils.Logger) (*RedisDateCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisDateCache{client: client, ttl: ttl, logger: logger}, nil
}

// GetDate returns the cached date for url.
func (c *RedisDateCache) GetDate(ctx context.Context, url string) (time.Time, bool) {
	val, err := c.client.Get(ctx, redisKeyPrefix+url).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false
	}
	if err != nil {
		c.logger.Warnf("redis get %s: %v", url, err)
		return time.Time{}, false
	}
	date, err := time.Parse(time.DateOnly, val)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// SetDate stores the date resolved for url.
func (c *RedisDateCache) SetDate(ctx context.Context, url string, date time.Time) {
	if err := c.client.Set(ctx, redisKeyPrefix+url, date.Format(time.DateOnly), c.ttl).Err(); err != nil {
		c.logger.Warnf("redis set %s: %v", url, err)
	}
}

// Ping reports whether the server is reachable.
func (c *RedisDateCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the connection pool.
func (c *RedisDateCache) Close() error {
	return c.client.Close()
}
