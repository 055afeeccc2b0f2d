package port

import (
	"context"

	"github.com/rl1809/seckill/internal/core/domain"
)

// DatabaseRepository is the durable store: authoritative item stock plus the
// append-only order ledger.
type DatabaseRepository interface {
	// ListItems returns the full catalog.
	ListItems(ctx context.Context) ([]domain.Item, error)

	// RecordSale decrements the item's durable stock and appends an order row
	// in a single transaction, returning the created order.
	RecordSale(ctx context.Context, itemID int64) (domain.Order, error)
}
