package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rl1809/seckill/internal/port"
)

var (
	ErrSoldOut     = errors.New("sold out")
	ErrRateLimited = errors.New("too many requests")
)

const releaseTimeout = 5 * time.Second

// PurchaseService coordinates one purchase attempt across the counter gate
// and the durable ledger: reserve, persist, compensate on failure. Attempts
// for the same item are serialized only by the store's atomic decrement, no
// application-level lock.
type PurchaseService struct {
	cache    port.CacheRepository
	db       port.DatabaseRepository
	notifier port.PurchaseNotifier
}

func NewPurchaseService(cache port.CacheRepository, db port.DatabaseRepository, notifier port.PurchaseNotifier) *PurchaseService {
	return &PurchaseService{
		cache:    cache,
		db:       db,
		notifier: notifier,
	}
}

// Purchase reserves one unit of the item and records the sale. The returned
// count is the units remaining after this reservation.
func (s *PurchaseService) Purchase(ctx context.Context, itemID int64) (int64, error) {
	remaining, err := s.cache.ReserveStock(ctx, itemID)
	if err != nil {
		// no reservation happened, nothing to compensate
		return 0, fmt.Errorf("stock reservation failed: %w", err)
	}

	if remaining < 0 {
		s.release(ctx, itemID, "overdraw")
		return 0, ErrSoldOut
	}

	order, err := s.db.RecordSale(ctx, itemID)
	if err != nil {
		s.release(ctx, itemID, "persistence failure")
		return 0, fmt.Errorf("sale persistence failed: %w", err)
	}

	s.notifier.PurchaseRecorded()

	log.Info().
		Int64("order_id", order.ID).
		Int64("item_id", itemID).
		Int64("remaining", remaining).
		Msg("purchase recorded")

	return remaining, nil
}

// release undoes a reservation. A failed release leaves the counter lower
// than the durable stock with no automatic reconciliation, so it is logged at
// a severity that demands operator attention.
//
// The reservation must be undone even when the request itself was canceled or
// timed out (a canceled request is the most common persistence failure), so
// compensation runs detached from the request's lifetime on its own deadline.
func (s *PurchaseService) release(ctx context.Context, itemID int64, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := s.cache.ReleaseStock(ctx, itemID); err != nil {
		log.Error().
			Err(err).
			Int64("item_id", itemID).
			Str("reason", reason).
			Msg("compensating release failed: counter and durable stock have drifted, manual reconciliation required")
	}
}
