package port

import "context"

// CacheRepository is an advisory stock cache in front of the relational
// store. The database stays authoritative; cache failures must never
// fail a committed checkout.
type CacheRepository interface {
	// GetStock returns (stock, true) on a hit and (0, false) on a miss.
	GetStock(ctx context.Context, productID int64) (int, bool, error)

	// SetStock caches an authoritative stock count.
	SetStock(ctx context.Context, productID int64, stock int) error

	// DecrementStock lowers a cached count after a committed checkout.
	// A missing key is a no-op; a stale count is evicted instead of
	// going negative.
	DecrementStock(ctx context.Context, productID int64, quantity int) error

	// InvalidateStock drops a cached count.
	InvalidateStock(ctx context.Context, productID int64) error
}
