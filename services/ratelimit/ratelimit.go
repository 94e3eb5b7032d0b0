// Package ratelimit provides the stores behind echo's rate limiter middleware.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/trezcool/cblms/core"
)

const redisTimeout = 500 * time.Millisecond

// NewRedisClient returns nil when no Redis address is configured.
func NewRedisClient(conf *core.Config) *redis.Client {
	if conf.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

// NewStore allows limit requests per window and identifier. The counters live in Redis when client
// is set, so that every instance shares them, and in memory otherwise.
func NewStore(client *redis.Client, prefix string, limit int, window time.Duration) middleware.RateLimiterStore {
	if client != nil {
		return NewRedisStore(client, prefix, limit, window)
	}
	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(limit) / window.Seconds()),
		Burst:     limit,
		ExpiresIn: window,
	})
}

// RedisStore is a fixed window counter: one key per identifier and window, expiring with the window.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

var _ middleware.RateLimiterStore = (*RedisStore)(nil)

func NewRedisStore(client redis.Cmdable, prefix string, limit int, window time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, limit: limit, window: window}
}

func (s *RedisStore) key(identifier string, now time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", s.prefix, identifier, now.Truncate(s.window).Unix())
}

func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	key := s.key(identifier, core.NowFunc())
	pipe := s.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		// fail open when Redis is unreachable
		return true, errors.Wrap(err, "counting request")
	}
	return count.Val() <= int64(s.limit), nil
}
