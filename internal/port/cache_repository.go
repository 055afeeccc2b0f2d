package port

import (
	"context"
	"time"
)

// CacheRepository is the fast counter store backing the purchase gate and the
// rate limiter. Every operation is single-key and must be atomic under
// concurrent callers (the store's native primitives, not read-modify-write).
type CacheRepository interface {
	// ReserveStock atomically decrements an item's counter and returns the
	// post-decrement value. A negative result means the caller overdrew the
	// counter and must release.
	ReserveStock(ctx context.Context, itemID int64) (int64, error)

	// ReleaseStock restores one unit, compensating a failed or overdrawn
	// reservation.
	ReleaseStock(ctx context.Context, itemID int64) error

	// SeedStock sets an item's counter only if it is unset, returning whether
	// the set occurred.
	SeedStock(ctx context.Context, itemID int64, stock int64) (bool, error)

	// IncrementWindow increments a rate-limit window counter and returns the
	// post-increment value. The window expires ttl after its first hit.
	IncrementWindow(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
