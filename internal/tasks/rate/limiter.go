package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RateLimit struct {
	Window time.Duration // e.g., 15 minutes
	Max    int           // max hits per window
}

type Config struct {
	Name      string
	RateLimit RateLimit
}

// Result describes one hit against a window.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// WindowLimiter is a sliding window counter kept in a redis sorted set per
// identifier. Every hit is recorded, rejected ones included.
type WindowLimiter struct {
	redis  redis.Cmdable
	config Config
	now    func() time.Time
}

func NewWindowLimiter(client redis.Cmdable, config Config) *WindowLimiter {
	return &WindowLimiter{
		redis:  client,
		config: config,
		now:    time.Now,
	}
}

func (l *WindowLimiter) key(identifier string) string {
	return fmt.Sprintf("rate_limit:%s:%s", l.config.Name, identifier)
}

func (l *WindowLimiter) Allow(ctx context.Context, identifier string) (Result, error) {
	key := l.key(identifier)
	window := l.config.RateLimit.Window
	now := l.now()
	windowStart := now.Add(-window).UnixMilli()

	pipe := l.redis.Pipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))

	// Count current window
	card := pipe.ZCard(ctx, key)

	// Add new entry
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})

	// Oldest remaining entry decides when the window frees up
	oldest := pipe.ZRangeWithScores(ctx, key, 0, 0)

	// Set expiration
	pipe.PExpire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("redis pipeline error: %w", err)
	}

	max := l.config.RateLimit.Max
	count := int(card.Val())
	res := Result{
		Allowed:   count < max,
		Limit:     max,
		Remaining: max - count - 1,
		ResetAt:   now.UTC().Add(window),
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if zs := oldest.Val(); len(zs) > 0 {
		res.ResetAt = time.UnixMilli(int64(zs[0].Score)).UTC().Add(window)
	}
	return res, nil
}

// Reset forgets every hit of identifier.
func (l *WindowLimiter) Reset(ctx context.Context, identifier string) error {
	return l.redis.Del(ctx, l.key(identifier)).Err()
}
