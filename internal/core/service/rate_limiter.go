package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rl1809/seckill/internal/port"
)

const defaultAttemptsPerWindow = 3

// RateLimiter admits at most limit purchase attempts per client identity per
// unix-second window. Fixed window, not sliding: a client can burst up to
// twice the limit across a window boundary. That imprecision is the price of
// a single INCR per attempt and is kept as-is.
type RateLimiter struct {
	cache port.CacheRepository
	limit int64
	now   func() time.Time
}

func NewRateLimiter(cache port.CacheRepository, limit int64) *RateLimiter {
	if limit <= 0 {
		limit = defaultAttemptsPerWindow
	}
	return &RateLimiter{
		cache: cache,
		limit: limit,
		now:   time.Now,
	}
}

// Allow admits or rejects one attempt. Returns ErrRateLimited when the
// window is exhausted. A store failure rejects the attempt as well: failing
// closed is the only safe default in front of a scarce resource.
func (l *RateLimiter) Allow(ctx context.Context, clientID string) error {
	key := fmt.Sprintf("rl:%s:%d", clientID, l.now().Unix())

	count, err := l.cache.IncrementWindow(ctx, key, time.Second)
	if err != nil {
		return fmt.Errorf("rate limit check failed: %w", err)
	}

	if count > l.limit {
		return ErrRateLimited
	}

	return nil
}
