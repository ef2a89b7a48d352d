package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ticket-pricing-service/config"
)

// Limiter bounds booking attempts per customer over a sliding window.
// Callers decide what a limiter failure means; the booking path fails
// open so Redis trouble never blocks sales.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type RedisSlidingWindowLimiterImpl struct {
	client *redis.Client
	max    int
	window time.Duration
}

func NewRedisSlidingWindowLimiter(client *redis.Client, cfg config.LimitsConfig) Limiter {
	return &RedisSlidingWindowLimiterImpl{
		client: client,
		max:    cfg.RateLimitMax,
		window: cfg.RateLimitWindow,
	}
}

func (l *RedisSlidingWindowLimiterImpl) attemptsKey(key string) string {
	return fmt.Sprintf("ratelimit:booking:%s", key)
}

// Allow records one attempt and reports whether it fits the budget. The
// whole check-and-record runs as a single Lua script so concurrent
// attempts cannot slip past the limit between check and write.
func (l *RedisSlidingWindowLimiterImpl) Allow(ctx context.Context, key string) (bool, error) {
	script := `
		local key = KEYS[1]
		local now_ms = tonumber(ARGV[1])
		local window_ms = tonumber(ARGV[2])
		local max_attempts = tonumber(ARGV[3])
		local member = ARGV[4]

		-- drop attempts that slid out of the window
		redis.call('ZREMRANGEBYSCORE', key, 0, now_ms - window_ms)

		local count = redis.call('ZCARD', key)
		if count >= max_attempts then
			return 0
		end

		redis.call('ZADD', key, now_ms, member)
		redis.call('PEXPIRE', key, window_ms)
		return 1
	`

	now := time.Now().UnixMilli()
	member := fmt.Sprintf("%d-%s", now, uuid.New().String())

	result, err := l.client.Eval(ctx, script,
		[]string{l.attemptsKey(key)},
		now, l.window.Milliseconds(), l.max, member,
	).Result()
	if err != nil {
		return false, err
	}

	code, ok := result.(int64)
	if !ok {
		return false, errors.New("unexpected result")
	}

	return code == 1, nil
}
