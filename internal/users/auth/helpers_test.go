// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"sync"
	"time"
)

// counter is an in-process throttle.Counter.
type counter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newCounter() *counter { return &counter{counts: map[string]int64{}} }

func (c *counter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key], nil
}

func (c *counter) Get(_ context.Context, key string) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key], time.Minute, nil
}

func (c *counter) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, key)
	return nil
}
