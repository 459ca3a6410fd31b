package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pcpartshop/storefront/internal/core/domain"
	"github.com/pcpartshop/storefront/internal/metrics"
	"github.com/pcpartshop/storefront/internal/port"
)

type CheckoutResult struct {
	OrderID string
	Total   decimal.Decimal
}

// CheckoutService turns a validated cart into a persisted order. The
// atomicity and locking live in the order repository; this layer owns
// cart validation, cache upkeep and observability.
type CheckoutService struct {
	orders  port.OrderRepository
	cache   port.CacheRepository
	metrics *metrics.CheckoutMetrics
	logger  *zap.Logger
}

func NewCheckoutService(orders port.OrderRepository, cache port.CacheRepository, m *metrics.CheckoutMetrics, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		orders:  orders,
		cache:   cache,
		metrics: m,
		logger:  logger,
	}
}

func (s *CheckoutService) Checkout(ctx context.Context, buyerID int64, lines []domain.CartLine) (*CheckoutResult, error) {
	started := time.Now()

	merged, err := mergeLines(lines)
	if err != nil {
		s.metrics.Observe(outcomeFor(err), started)
		return nil, err
	}

	order, err := s.orders.PlaceOrder(ctx, buyerID, merged)
	if err != nil {
		s.metrics.Observe(outcomeFor(err), started)
		s.logger.Info("checkout rejected",
			zap.Int64("buyer_id", buyerID),
			zap.Int("lines", len(merged)),
			zap.Error(err))
		return nil, err
	}

	// The order is durable at this point; cache sync is best effort.
	for _, l := range merged {
		if cacheErr := s.cache.DecrementStock(ctx, l.ProductID, l.Quantity); cacheErr != nil {
			s.logger.Warn("stock cache decrement failed",
				zap.Int64("product_id", l.ProductID),
				zap.Error(cacheErr))
		}
	}

	s.metrics.Observe("ok", started)
	s.logger.Info("checkout completed",
		zap.String("order_id", order.ID),
		zap.Int64("buyer_id", buyerID),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int("lines", len(order.Lines)))

	return &CheckoutResult{OrderID: order.ID, Total: order.Total}, nil
}

// mergeLines validates quantities and collapses duplicate product lines
// so each inventory row is locked exactly once. The result is sorted
// ascending by product id.
func mergeLines(lines []domain.CartLine) ([]domain.CartLine, error) {
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	byProduct := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, fmt.Errorf("product %d: %w", l.ProductID, domain.ErrInvalidQuantity)
		}
		byProduct[l.ProductID] += l.Quantity
	}

	merged := make([]domain.CartLine, 0, len(byProduct))
	for id, qty := range byProduct {
		merged = append(merged, domain.CartLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })

	return merged, nil
}

func outcomeFor(err error) string {
	var invalid *domain.InvalidProductError
	var oos *domain.OutOfStockError
	switch {
	case errors.Is(err, domain.ErrEmptyCart), errors.Is(err, domain.ErrInvalidQuantity):
		return "bad_cart"
	case errors.As(err, &invalid):
		return "invalid_product"
	case errors.As(err, &oos):
		return "out_of_stock"
	case errors.Is(err, domain.ErrBusy):
		return "busy"
	default:
		return "error"
	}
}
