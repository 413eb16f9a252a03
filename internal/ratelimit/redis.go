package ratelimit

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lunarlash/leadline/pkg/logging"
)

// RedisLimiter counts submissions per source in Redis. INCR makes the count
// update atomic, so unlike the store-backed limiter it does not over-admit
// under concurrent bursts.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
	max    int
	logger *logging.Logger
}

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	TLS      bool
}

// NewRedisLimiter connects a limiter to Redis.
func NewRedisLimiter(cfg RedisConfig, window time.Duration, max int, logger *logging.Logger) *RedisLimiter {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return NewRedisLimiterWithClient(redis.NewClient(opts), window, max, logger)
}

// NewRedisLimiterWithClient wraps an existing client, for tests.
func NewRedisLimiterWithClient(client *redis.Client, window time.Duration, max int, logger *logging.Logger) *RedisLimiter {
	if client == nil {
		panic("ratelimit: redis client cannot be nil")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMaxRequests
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisLimiter{client: client, window: window, max: max, logger: logger}
}

var _ Limiter = (*RedisLimiter)(nil)

// Allow admits or rejects one submission attempt, failing open on any Redis
// error and skipping entirely for an empty source.
func (l *RedisLimiter) Allow(ctx context.Context, source string) bool {
	if source == "" {
		return true
	}

	key := "ratelimit:" + source
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("ratelimit: redis incr failed, admitting", "source", source, "error", err)
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("ratelimit: redis expire failed", "source", source, "error", err)
		}
	}
	return count <= int64(l.max)
}
