package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a limiter backed by Redis, for deployments where several
// instances must share attempt counters. Counting is a fixed window per key:
// INCR plus an expiry set on the first attempt.
type RedisLimiter struct {
	client  *redis.Client
	configs map[Operation]Config
	prefix  string
}

// NewRedisLimiter creates a Redis-backed limiter with the given per-operation
// configs (nil means DefaultConfigs).
func NewRedisLimiter(client *redis.Client, configs map[Operation]Config) *RedisLimiter {
	if configs == nil {
		configs = DefaultConfigs()
	}
	return &RedisLimiter{
		client:  client,
		configs: configs,
		prefix:  "ratelimit",
	}
}

// Allow implements Limiter.Allow
func (l *RedisLimiter) Allow(ctx context.Context, op Operation, key string) (Result, error) {
	cfg, ok := l.configs[op]
	if !ok {
		return Result{}, fmt.Errorf("no rate limit config for operation %q", op)
	}

	k := fmt.Sprintf("%s:%s:%s", l.prefix, op, key)

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("failed to increment attempt counter: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, k, cfg.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("failed to set attempt counter expiry: %w", err)
		}
	}

	if count > int64(cfg.MaxAttempts) {
		ttl, err := l.client.TTL(ctx, k).Result()
		if err != nil || ttl < 0 {
			ttl = cfg.Window
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: ttl}, nil
	}

	remaining := cfg.MaxAttempts - int(count)
	return Result{Allowed: true, Remaining: remaining}, nil
}

// Reset implements Limiter.Reset
func (l *RedisLimiter) Reset(ctx context.Context, op Operation, key string) error {
	k := fmt.Sprintf("%s:%s:%s", l.prefix, op, key)
	if err := l.client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("failed to reset attempt counter: %w", err)
	}
	return nil
}

// Close is a no-op; the Redis client is owned by the caller
func (l *RedisLimiter) Close() error {
	return nil
}

var _ Limiter = (*RedisLimiter)(nil)
var _ Limiter = (*MemoryLimiter)(nil)
