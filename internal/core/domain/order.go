package domain

import "time"

// Order is one row of the append-only sale ledger. The ID is assigned by the
// durable store on insert; rows are never updated or deleted.
type Order struct {
	ID        int64
	ItemID    int64
	CreatedAt time.Time
}
