// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ratelimit implements per-key token buckets.

A bucket holds Capacity tokens and refills one token every Window/Capacity, so
a client may spend the whole allowance at once and then regains it gradually
over one window.

Two implementations share the [Limiter] interface:

  - [LocalLimiter]: in-process buckets from golang.org/x/time/rate
  - [RedisLimiter]: the same algorithm as an atomic Lua script, shared by every replica
*/
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/trailhead/internal/platform/constants"
)

// Decision is the outcome of a single [Limiter.Allow] call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// refillInterval is the time needed to regain one token.
func refillInterval(capacity int, window time.Duration) time.Duration {
	return window / time.Duration(capacity)
}

// # In-process Buckets

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter keeps one token bucket per key in memory.
type LocalLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	every    time.Duration
	idleTTL  time.Duration
	now      func() time.Time
}

// NewLocalLimiter creates a [LocalLimiter] and starts a janitor that evicts
// buckets idle for a full window. The janitor stops when ctx is cancelled.
func NewLocalLimiter(ctx context.Context, capacity int, window time.Duration) *LocalLimiter {
	limiter := &LocalLimiter{
		buckets:  make(map[string]*bucket),
		capacity: capacity,
		every:    refillInterval(capacity, window),
		idleTTL:  window,
		now:      time.Now,
	}

	go limiter.janitor(ctx)
	return limiter
}

// Allow consumes one token from the bucket of key.
func (limiter *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	currentTime := limiter.now()
	entry, found := limiter.buckets[key]

	// Initialize a full bucket if this is a fresh key
	if !found {
		entry = &bucket{limiter: rate.NewLimiter(rate.Every(limiter.every), limiter.capacity)}
		limiter.buckets[key] = entry
	}
	entry.lastSeen = currentTime

	if entry.limiter.AllowN(currentTime, 1) {
		return Decision{Allowed: true, Remaining: int(entry.limiter.TokensAt(currentTime))}, nil
	}

	missing := 1 - entry.limiter.TokensAt(currentTime)
	retryAfter := time.Duration(missing * float64(limiter.every))
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}

// janitor removes idle buckets. A bucket idle for a full window is full again,
// so dropping it changes nothing for the client.
func (limiter *LocalLimiter) janitor(ctx context.Context) {
	ticker := time.NewTicker(constants.RateLimitCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			limiter.evictIdle()
		case <-ctx.Done():
			return
		}
	}
}

// evictIdle drops buckets untouched for longer than the idle TTL.
func (limiter *LocalLimiter) evictIdle() {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	currentTime := limiter.now()
	for key, entry := range limiter.buckets {
		if currentTime.Sub(entry.lastSeen) > limiter.idleTTL {
			delete(limiter.buckets, key)
		}
	}
}

// size returns the number of tracked buckets.
func (limiter *LocalLimiter) size() int {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	return len(limiter.buckets)
}
