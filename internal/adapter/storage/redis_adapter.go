package storage

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const stockKeyPrefix = "item_stock:"

// ErrCounterMissing means a reservation hit a counter the synchronizer never
// seeded. This is a deployment bug, not a sold-out condition, and is surfaced
// as a retryable failure.
var ErrCounterMissing = errors.New("stock counter missing")

const counterMissingReply = "stock counter missing"

var reserveStockScript = redis.NewScript(`
local key = KEYS[1]

if redis.call('EXISTS', key) == 0 then
	return redis.error_reply('` + counterMissingReply + `')
end

return redis.call('DECR', key)
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func stockKey(itemID int64) string {
	return stockKeyPrefix + strconv.FormatInt(itemID, 10)
}

// ReserveStock is the single serialization point for an item: the atomic
// decrement imposes a total order over concurrent callers, so no two of them
// observe the same post-decrement value. Reserving against a key the
// synchronizer never seeded returns ErrCounterMissing instead of silently
// materializing the key.
func (r *RedisAdapter) ReserveStock(ctx context.Context, itemID int64) (int64, error) {
	remaining, err := reserveStockScript.Run(ctx, r.client, []string{stockKey(itemID)}).Int64()
	if err != nil {
		if strings.Contains(err.Error(), counterMissingReply) {
			return 0, ErrCounterMissing
		}
		return 0, err
	}
	return remaining, nil
}

func (r *RedisAdapter) ReleaseStock(ctx context.Context, itemID int64) error {
	return r.client.Incr(ctx, stockKey(itemID)).Err()
}

func (r *RedisAdapter) SeedStock(ctx context.Context, itemID int64, stock int64) (bool, error) {
	return r.client.SetNX(ctx, stockKey(itemID), stock, 0).Result()
}

// IncrementWindow bumps a fixed-window counter, arming the expiry on the
// window's first hit only.
func (r *RedisAdapter) IncrementWindow(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, err
		}
	}

	return count, nil
}
