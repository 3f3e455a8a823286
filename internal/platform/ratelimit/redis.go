// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/trailhead/internal/platform/constants"
)

// tokenBucketScript refills and spends a bucket atomically.
//
// KEYS[1]  bucket key
// ARGV[1]  now (ms), ARGV[2] capacity, ARGV[3] refill interval (ms), ARGV[4] ttl (s)
// Returns  { allowed (0|1), remaining tokens, retry after (ms) }
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals)
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RedisLimiter runs the token bucket inside Redis so all replicas share state.
type RedisLimiter struct {
	client   redis.Scripter
	capacity int
	every    time.Duration
	ttl      time.Duration
	now      func() time.Time
}

// NewRedisLimiter creates a [RedisLimiter] on top of an established client.
func NewRedisLimiter(client redis.Scripter, capacity int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		capacity: capacity,
		every:    refillInterval(capacity, window),
		ttl:      window + time.Minute,
		now:      time.Now,
	}
}

// Allow consumes one token from the shared bucket of key.
func (limiter *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	result, err := tokenBucketScript.Run(ctx, limiter.client,
		[]string{constants.RedisPrefixRateLimit + key},
		limiter.now().UnixMilli(),
		limiter.capacity,
		limiter.every.Milliseconds(),
		int64(limiter.ttl/time.Second),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: redis script failed: %w", err)
	}

	if len(result) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script result of length %s", strconv.Itoa(len(result)))
	}

	return Decision{
		Allowed:    result[0] == 1,
		Remaining:  int(result[1]),
		RetryAfter: time.Duration(result[2]) * time.Millisecond,
	}, nil
}
