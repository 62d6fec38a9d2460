package httpx

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and takes one token atomically. It returns
// {allowed, remaining, retry_after_ms}.
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

// RedisBackend keeps token buckets in Redis so limits hold across replicas.
type RedisBackend struct {
	client redis.Scripter
	prefix string

	// Now is the clock used for refill arithmetic. Defaults to time.Now.
	Now func() time.Time
}

// NewRedisBackend returns a backend storing buckets under prefix.
func NewRedisBackend(client redis.Scripter, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix, Now: time.Now}
}

func (b *RedisBackend) Allow(ctx context.Context, key string, cfg RateLimitConfig) (Decision, error) {
	ttl := max(int64((2 * cfg.Window).Seconds()), 1)

	vals, err := tokenBucketScript.Run(ctx, b.client, []string{b.prefix + key},
		b.Now().UnixMilli(),
		cfg.Burst,
		cfg.interval().Milliseconds(),
		ttl,
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("httpx: redis rate limit: %w", err)
	}

	arr, ok := vals.([]any)
	if !ok || len(arr) != 3 {
		return Decision{}, fmt.Errorf("httpx: unexpected rate limit script result %#v", vals)
	}

	return Decision{
		Allowed:    asInt64(arr[0]) == 1,
		Remaining:  int(asInt64(arr[1])),
		RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
