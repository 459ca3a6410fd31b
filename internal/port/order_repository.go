package port

import (
	"context"

	"github.com/pcpartshop/storefront/internal/core/domain"
)

type OrderRepository interface {
	// PlaceOrder runs the whole checkout transaction: it locks the
	// inventory rows for the cart lines in ascending product id order,
	// verifies stock, snapshots prices, inserts the order and its lines
	// and decrements inventory - atomically. On any failure nothing is
	// persisted. Returns domain.InvalidProductError, domain.OutOfStockError
	// or domain.ErrBusy as applicable.
	PlaceOrder(ctx context.Context, buyerID int64, lines []domain.CartLine) (*domain.Order, error)

	ListOrders(ctx context.Context) ([]domain.Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]domain.Order, error)
}
