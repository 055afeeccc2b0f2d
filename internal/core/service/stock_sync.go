package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rl1809/seckill/internal/port"
)

// StockSynchronizer seeds each item's counter in the cache from the durable
// stock at process start. The seed is set-if-absent, so a counter another
// instance is already maintaining is never clobbered and running two
// synchronizers concurrently is safe.
type StockSynchronizer struct {
	db    port.DatabaseRepository
	cache port.CacheRepository
}

func NewStockSynchronizer(db port.DatabaseRepository, cache port.CacheRepository) *StockSynchronizer {
	return &StockSynchronizer{
		db:    db,
		cache: cache,
	}
}

// Sync seeds every item. An error means the gate may be unseeded or stale;
// the caller must not start serving purchase traffic on top of it.
func (s *StockSynchronizer) Sync(ctx context.Context) error {
	items, err := s.db.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("load items for stock sync: %w", err)
	}

	for _, item := range items {
		seeded, err := s.cache.SeedStock(ctx, item.ID, item.Stock)
		if err != nil {
			return fmt.Errorf("seed stock for item %d: %w", item.ID, err)
		}

		if seeded {
			log.Info().
				Int64("item_id", item.ID).
				Str("name", item.Name).
				Int64("stock", item.Stock).
				Msg("initialized stock counter")
		} else {
			log.Info().
				Int64("item_id", item.ID).
				Str("name", item.Name).
				Msg("stock counter already initialized, skipping")
		}
	}

	return nil
}
