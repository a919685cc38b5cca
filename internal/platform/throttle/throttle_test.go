// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package throttle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/jetstream/internal/platform/apperr"
	"github.com/taibuivan/jetstream/internal/platform/throttle"
)

// mapCounter is an in-process Counter with a fixed remaining window.
type mapCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMapCounter() *mapCounter { return &mapCounter{counts: map[string]int64{}} }

func (c *mapCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key], nil
}

func (c *mapCounter) Get(_ context.Context, key string) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key], 90 * time.Second, nil
}

func (c *mapCounter) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, key)
	return nil
}

/*
TestLimiter_ThrottlesAfterMaxAttempts verifies the 429 boundary and reset.
*/
func TestLimiter_ThrottlesAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	limiter := throttle.New(newMapCounter(), 3, 15*time.Minute)

	for range 3 {
		require.NoError(t, limiter.Check(ctx, "a@x.com"))
		require.NoError(t, limiter.RecordFailure(ctx, "a@x.com"))
	}

	err := limiter.Check(ctx, "a@x.com")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeRateLimited))

	// Other keys are unaffected.
	assert.NoError(t, limiter.Check(ctx, "b@x.com"))

	require.NoError(t, limiter.Reset(ctx, "a@x.com"))
	assert.NoError(t, limiter.Check(ctx, "a@x.com"))
}

func TestDisabled(t *testing.T) {
	var limiter throttle.LoginThrottle = throttle.Disabled{}
	for range 100 {
		require.NoError(t, limiter.RecordFailure(context.Background(), "a@x.com"))
	}
	assert.NoError(t, limiter.Check(context.Background(), "a@x.com"))
}
