package domain

// Item is a catalog entry. Stock is the authoritative remaining count in the
// durable store; the cache counter derived from it is only an admission gate.
type Item struct {
	ID    int64
	Name  string
	Stock int64
}
