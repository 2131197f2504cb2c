package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// throttleNamespace prefixes every bucket key.
const throttleNamespace = "exprgate:throttle"

// minBucketTTL keeps idle buckets around long enough to matter.
const minBucketTTL = 2 * time.Minute

// RateLimitResult is the outcome of one bucket check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// bucketScript refills and drains a token bucket in one round trip. Time
// comes from the Redis server clock in milliseconds so every gateway
// replica sees the same refill schedule.
//
// KEYS[1] bucket key
// ARGV[1] tokens per millisecond
// ARGV[2] capacity
// ARGV[3] ttl in seconds
//
// Returns {allowed, retry_after_ms, tokens_left}.
var bucketScript = redis.NewScript(`
local clock = redis.call('TIME')
local now = tonumber(clock[1]) * 1000 + math.floor(tonumber(clock[2]) / 1000)
local per_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or capacity
local ts = tonumber(state[2]) or now
if now > ts then
	tokens = math.min(capacity, tokens + (now - ts) * per_ms)
end

local allowed = 0
local wait_ms = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait_ms = math.ceil((1 - tokens) / per_ms)
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', now)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[3]))
return {allowed, wait_ms, math.floor(tokens)}
`)

// CheckClientRateLimit spends one token from client's bucket for scope.
// Buckets hold burst tokens and refill at perMinute. A perMinute of zero
// or less always allows.
func (c *Cache) CheckClientRateLimit(ctx context.Context, scope, client string, perMinute, burst int) (*RateLimitResult, error) {
	if burst < 1 {
		burst = 1
	}
	if perMinute <= 0 {
		return &RateLimitResult{Allowed: true, Remaining: int64(burst), ResetAt: time.Now()}, nil
	}

	perMilli := float64(perMinute) / float64(time.Minute/time.Millisecond)
	reply, err := bucketScript.Run(ctx, c.client,
		[]string{bucketKey(scope, client)},
		perMilli, burst, int(bucketTTL(perMinute, burst).Seconds()),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", scope, err)
	}
	if len(reply) != 3 {
		return nil, fmt.Errorf("rate limit %s: unexpected reply %v", scope, reply)
	}

	wait := time.Duration(reply[1]) * time.Millisecond
	refill := time.Duration(float64(time.Minute) / float64(perMinute))
	result := &RateLimitResult{
		Allowed:    reply[0] == 1,
		Remaining:  reply[2],
		RetryAfter: wait,
		ResetAt:    time.Now().Add(refill),
	}
	if !result.Allowed {
		result.ResetAt = time.Now().Add(wait)
	}
	return result, nil
}

// bucketKey namespaces a bucket by scope. Client addresses are hashed so
// raw IPs never land in Redis.
func bucketKey(scope, client string) string {
	sum := sha256.Sum256([]byte(client))
	return throttleNamespace + ":" + scope + ":" + hex.EncodeToString(sum[:8])
}

// bucketTTL is the time a drained bucket needs to refill, floored at
// minBucketTTL.
func bucketTTL(perMinute, burst int) time.Duration {
	full := time.Duration(math.Ceil(float64(burst)*60/float64(perMinute))) * time.Second
	if full < minBucketTTL {
		return minBucketTTL
	}
	return full
}
