// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package throttle limits repeated failed logins for the same account.

Counters live in Redis so every server instance sees the same totals. When no
Redis client is configured the service uses [Disabled], which never throttles.
*/
package throttle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/jetstream/internal/platform/apperr"
	"github.com/taibuivan/jetstream/internal/platform/constants"
)

// LoginThrottle is the contract the login flow depends on.
type LoginThrottle interface {
	// Check returns apperr.RateLimited when the key has exhausted its attempts.
	Check(context context.Context, key string) error
	// RecordFailure counts one failed attempt for the key.
	RecordFailure(context context.Context, key string) error
	// Reset forgets all failures for the key.
	Reset(context context.Context, key string) error
}

// Counter is a windowed counter store.
type Counter interface {
	Incr(context context.Context, key string, window time.Duration) (int64, error)
	Get(context context.Context, key string) (int64, time.Duration, error)
	Del(context context.Context, key string) error
}

// # Login Throttle

// Limiter throttles by counting failures per key over a fixed window.
type Limiter struct {
	counter     Counter
	maxAttempts int64
	window      time.Duration
}

// New creates a Limiter allowing maxAttempts failures per window.
func New(counter Counter, maxAttempts int, window time.Duration) *Limiter {
	return &Limiter{counter: counter, maxAttempts: int64(maxAttempts), window: window}
}

// Check implements [LoginThrottle].
func (limiter *Limiter) Check(context context.Context, key string) error {
	count, ttl, err := limiter.counter.Get(context, constants.RedisPrefixLoginAttempts+key)
	if err != nil {
		return fmt.Errorf("throttle_check_failed: %w", err)
	}

	if count < limiter.maxAttempts {
		return nil
	}

	if ttl <= 0 {
		ttl = limiter.window
	}
	return apperr.RateLimited(int(math.Ceil(ttl.Seconds())))
}

// RecordFailure implements [LoginThrottle].
func (limiter *Limiter) RecordFailure(context context.Context, key string) error {
	if _, err := limiter.counter.Incr(context, constants.RedisPrefixLoginAttempts+key, limiter.window); err != nil {
		return fmt.Errorf("throttle_record_failed: %w", err)
	}
	return nil
}

// Reset implements [LoginThrottle].
func (limiter *Limiter) Reset(context context.Context, key string) error {
	if err := limiter.counter.Del(context, constants.RedisPrefixLoginAttempts+key); err != nil {
		return fmt.Errorf("throttle_reset_failed: %w", err)
	}
	return nil
}

// # Disabled

// Disabled never throttles.
type Disabled struct{}

func (Disabled) Check(context.Context, string) error         { return nil }
func (Disabled) RecordFailure(context.Context, string) error { return nil }
func (Disabled) Reset(context.Context, string) error         { return nil }

// # Redis Counter

// RedisCounter implements [Counter] with INCR and EXPIRE.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a Redis-backed Counter.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

/*
Incr increments the key and starts its window on the first hit.

Parameters:
  - context: context.Context
  - key: string
  - window: time.Duration (expiry applied when the key is created)

Returns:
  - int64: Count after the increment
  - error: Redis failures
*/
func (counter *RedisCounter) Incr(context context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd

	_, err := counter.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(context, key)
		pipe.ExpireNX(context, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis_counter_incr_failed: %w", err)
	}

	return incr.Val(), nil
}

// Get returns the current count and remaining window. A missing key reads as zero.
func (counter *RedisCounter) Get(context context.Context, key string) (int64, time.Duration, error) {
	count, err := counter.client.Get(context, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("redis_counter_get_failed: %w", err)
	}

	ttl, err := counter.client.TTL(context, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis_counter_ttl_failed: %w", err)
	}

	return count, ttl, nil
}

// Del removes the key.
func (counter *RedisCounter) Del(context context.Context, key string) error {
	if err := counter.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_counter_del_failed: %w", err)
	}
	return nil
}
