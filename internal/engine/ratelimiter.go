package engine

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles outbound API calls per project with a sliding
// window in Redis. Each window is a sorted set of request IDs scored by
// timestamp; a Lua script atomically cleans expired entries, checks the
// count, and admits or denies the call.
type RateLimiter struct {
	redisClient *redis.Client
	logger      *slog.Logger
	script      *redis.Script
}

// Lua script for atomic sliding window rate limiting.
// 1. Remove entries older than the window
// 2. Count remaining entries
// 3. If under the limit, add a new entry and return 1 (allowed)
// 4. If at/over the limit, return 0 (denied)
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

-- Remove entries outside the sliding window
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

-- Count current entries in the window
local count = redis.call('ZCARD', key)

if count < limit then
    -- Under the limit: add this request and allow
    redis.call('ZADD', key, now, member)
    -- Set TTL so the key auto-expires after the window
    redis.call('EXPIRE', key, window / 1000 + 1)
    return 1
else
    -- At the limit: deny
    return 0
end
`)

func NewRateLimiter(redisClient *redis.Client, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		logger:      logger,
		script:      slidingWindowScript,
	}
}

func rlKey(projectKey string) string {
	sum := sha256.Sum256([]byte(projectKey))
	return fmt.Sprintf("rl:%x", sum[:8])
}

// Allow checks whether an outbound call for this project is within the
// per-second limit. Returns true if allowed, false if rate limited.
func (rl *RateLimiter) Allow(ctx context.Context, projectKey string, limit int) bool {
	if limit <= 0 {
		return true // No rate limit configured
	}

	key := rlKey(projectKey)
	now := time.Now().UnixMilli()
	window := int64(1000) // 1 second window in milliseconds
	member := fmt.Sprintf("%d:%d", now, time.Now().UnixNano()%10000) // unique member

	result, err := rl.script.Run(ctx, rl.redisClient, []string{key},
		now, window, limit, member,
	).Int64()
	if err != nil {
		rl.logger.Error("rate limiter script failed", "error", err, "project", key)
		return true // Fail open — allow the call if Redis fails
	}

	if result == 0 {
		rl.logger.Debug("outbound call rate limited",
			"project", key,
			"limit", limit,
		)
		return false
	}

	return true
}
