package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pcpartshop/storefront/internal/core/domain"
	"github.com/pcpartshop/storefront/internal/metrics"
)

// Mock OrderRepository with the same transactional semantics as the
// real adapter: all lines are checked before anything is decremented.
type productState struct {
	price decimal.Decimal
	stock int
}

type mockOrderRepo struct {
	mu       sync.Mutex
	products map[int64]*productState
	orders   []*domain.Order
	failWith error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{products: make(map[int64]*productState)}
}

func (m *mockOrderRepo) addProduct(id int64, price string, stock int) {
	m.products[id] = &productState{price: decimal.RequireFromString(price), stock: stock}
}

func (m *mockOrderRepo) PlaceOrder(ctx context.Context, buyerID int64, lines []domain.CartLine) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}

	order := &domain.Order{
		ID:        fmt.Sprintf("order-%d", len(m.orders)+1),
		BuyerID:   buyerID,
		Total:     decimal.Zero,
		CreatedAt: time.Now(),
	}
	for _, l := range lines {
		p, ok := m.products[l.ProductID]
		if !ok {
			return nil, &domain.InvalidProductError{ProductID: l.ProductID}
		}
		if p.stock < l.Quantity {
			return nil, &domain.OutOfStockError{ProductID: l.ProductID, Requested: l.Quantity, Available: p.stock}
		}
		order.Total = order.Total.Add(p.price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		order.Lines = append(order.Lines, domain.OrderLine{
			OrderID:   order.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: p.price,
		})
	}

	for _, l := range lines {
		m.products[l.ProductID].stock -= l.Quantity
	}
	m.orders = append(m.orders, order)
	return order, nil
}

func (m *mockOrderRepo) ListOrders(ctx context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]domain.Order, error) {
	all, _ := m.ListOrders(ctx)
	var out []domain.Order
	for _, o := range all {
		if o.BuyerID == buyerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) stockOf(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].stock
}

func (m *mockOrderRepo) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// Mock CacheRepository
type mockCacheRepo struct {
	mu            sync.Mutex
	stock         map[int64]int
	failDecrement error
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{stock: make(map[int64]int)}
}

func (m *mockCacheRepo) GetStock(ctx context.Context, productID int64) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stock, ok := m.stock[productID]
	return stock, ok, nil
}

func (m *mockCacheRepo) SetStock(ctx context.Context, productID int64, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID] = stock
	return nil
}

func (m *mockCacheRepo) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDecrement != nil {
		return m.failDecrement
	}
	if current, ok := m.stock[productID]; ok {
		if current < quantity {
			delete(m.stock, productID)
		} else {
			m.stock[productID] = current - quantity
		}
	}
	return nil
}

func (m *mockCacheRepo) InvalidateStock(ctx context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stock, productID)
	return nil
}

func newTestCheckout(repo *mockOrderRepo, cache *mockCacheRepo) *CheckoutService {
	m := metrics.NewCheckoutMetrics(prometheus.NewRegistry())
	return NewCheckoutService(repo, cache, m, zap.NewNop())
}

func TestCheckout_Success(t *testing.T) {
	repo := newMockOrderRepo()
	repo.addProduct(1, "10.00", 2)
	cache := newMockCacheRepo()
	cache.SetStock(context.Background(), 1, 2)
	svc := newTestCheckout(repo, cache)

	result, err := svc.Checkout(context.Background(), 42, []domain.CartLine{{ProductID: 1, Quantity: 2}})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if result.Total.StringFixed(2) != "20.00" {
		t.Errorf("expected total 20.00, got %s", result.Total.StringFixed(2))
	}
	if result.OrderID == "" {
		t.Error("expected non-empty order id")
	}
	if repo.stockOf(1) != 0 {
		t.Errorf("expected stock 0, got %d", repo.stockOf(1))
	}
	if stock, ok, _ := cache.GetStock(context.Background(), 1); !ok || stock != 0 {
		t.Errorf("expected cached stock 0, got %d (hit=%v)", stock, ok)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc := newTestCheckout(newMockOrderRepo(), newMockCacheRepo())

	_, err := svc.Checkout(context.Background(), 42, nil)
	if !errors.Is(err, domain.ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got: %v", err)
	}
}

func TestCheckout_InvalidQuantity(t *testing.T) {
	repo := newMockOrderRepo()
	repo.addProduct(1, "10.00", 5)
	svc := newTestCheckout(repo, newMockCacheRepo())

	_, err := svc.Checkout(context.Background(), 42, []domain.CartLine{{ProductID: 1, Quantity: 0}})
	if !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got: %v", err)
	}
	if repo.orderCount() != 0 {
		t.Errorf("expected no orders, got %d", repo.orderCount())
	}
}

func TestCheckout_InvalidProduct(t *testing.T) {
	repo := newMockOrderRepo()
	repo.addProduct(1, "10.00", 5)
	svc := newTestCheckout(repo, newMockCacheRepo())

	_, err := svc.Checkout(context.Background(), 42, []domain.CartLine{{ProductID: 9999, Quantity: 1}})

	var invalid *domain.InvalidProductError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidProductError, got: %v", err)
	}
	if invalid.ProductID != 9999 {
		t.Errorf("expected product 9999, got %d", invalid.ProductID)
	}
	if repo.stockOf(1) != 5 {
		t.Errorf("stock changed on failed checkout: %d", repo.stockOf(1))
	}
}

func TestCheckout_OutOfStock(t *testing.T) {
	repo := newMockOrderRepo()
	repo.addProduct(1, "10.00", 2)
	svc := newTestCheckout(repo, newMockCacheRepo())

	_, err := svc.Checkout(context.Background(), 42, []domain.CartLine{{ProductID: 1, Quantity: 3}})

	var oos *domain.OutOfStockError
	if !errors.As(err, &oos) {
		t.Fatalf("expected OutOfStockError, got: %v", err)
	}
	if oos.ProductID != 1 || oos.Requested != 3 || oos.Available != 2 {
		t.Errorf("unexpected error detail: %+v", oos)
	}
	if repo.stockOf(1) != 2 {
		t.Errorf("expected stock unchanged at 2, got %d", repo.stockOf(1))
	}

	// Failure is idempotent: resubmitting the same unsatisfiable cart
	// never creates an order.
	_, err = svc.Checkout(context.Background(), 42, []domain.CartLine{{ProductID: 1, Quantity: 3}})
	if !errors.As(err, &oos) {
		t.Fatalf("expected OutOfStockError on retry, got: %v", err)
	}
	if repo.orderCount() != 0 {
		t.Errorf("expected no orders, got %d", repo.orderCount())
	}
}

func TestCheckout_PartialFailureLeavesNothing(t *testing.T) {
	repo := newMockOrderRepo()
	repo.addProduct(1, "10.00", 5)
	repo.addProduct(2, "5.00", 1)
	svc := newTestCheckout(repo, newMockCacheRepo())

	_, err := svc.Checkout(context.Background(), 42, []domain.CartLine{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	})

	var oos *domain.OutOfStockError
	if !errors.As(err, &oos) {
		t.Fatalf("expected OutOfStockError, got: %v", err)
	}
	if repo.stockOf(1) != 5 || repo.stockOf(2) != 1 {
		t.Errorf("expected no stock change, got %d and %d", repo.stockOf(1), repo.stockOf(2))
	}
	if repo.orderCount() != 0 {
		t.Errorf("expected no orders, got %d", repo.orderCount())
	}
}

func TestCheckout_MergesDuplicateLines(t *testing.T) {
	repo := newMockOrderRepo()
	repo.addProduct(1, "10.00", 5)
	svc := newTestCheckout(repo, newMockCacheRepo())

	result, err := svc.Checkout(context.Background(), 42, []domain.CartLine{
		{ProductID: 1, Quantity: 1},
		{ProductID: 1, Quantity: 2},
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if result.Total.StringFixed(2) != "30.00" {
		t.Errorf("expected total 30.00, got %s", result.Total.StringFixed(2))
	}
	orders, _ := repo.ListOrders(context.Background())
	if len(orders) != 1 || len(orders[0].Lines) != 1 {
		t.Fatalf("expected one order with one merged line, got %+v", orders)
	}
	if orders[0].Lines[0].Quantity != 3 {
		t.Errorf("expected merged quantity 3, got %d", orders[0].Lines[0].Quantity)
	}
}

func TestCheckout_Concurrent(t *testing.T) {
	repo := newMockOrderRepo()
	repo.addProduct(1, "10.00", 1)
	svc := newTestCheckout(repo, newMockCacheRepo())

	var successCount atomic.Int32
	var outOfStockCount atomic.Int32
	var wg sync.WaitGroup

	// Two checkouts race for the last unit; exactly one may win.
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(buyer int64) {
			defer wg.Done()
			_, err := svc.Checkout(context.Background(), buyer, []domain.CartLine{{ProductID: 1, Quantity: 1}})
			var oos *domain.OutOfStockError
			if err == nil {
				successCount.Add(1)
			} else if errors.As(err, &oos) {
				outOfStockCount.Add(1)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 success, got %d", successCount.Load())
	}
	if outOfStockCount.Load() != 1 {
		t.Errorf("expected exactly 1 out-of-stock, got %d", outOfStockCount.Load())
	}
	if repo.stockOf(1) != 0 {
		t.Errorf("expected final stock 0, got %d", repo.stockOf(1))
	}
}

func TestCheckout_BusyPassthrough(t *testing.T) {
	repo := newMockOrderRepo()
	repo.failWith = domain.ErrBusy
	svc := newTestCheckout(repo, newMockCacheRepo())

	_, err := svc.Checkout(context.Background(), 42, []domain.CartLine{{ProductID: 1, Quantity: 1}})
	if !errors.Is(err, domain.ErrBusy) {
		t.Errorf("expected ErrBusy, got: %v", err)
	}
}

func TestCheckout_CacheFailureDoesNotFailCheckout(t *testing.T) {
	repo := newMockOrderRepo()
	repo.addProduct(1, "10.00", 2)
	cache := newMockCacheRepo()
	cache.failDecrement = errors.New("redis down")
	svc := newTestCheckout(repo, cache)

	result, err := svc.Checkout(context.Background(), 42, []domain.CartLine{{ProductID: 1, Quantity: 1}})
	if err != nil {
		t.Fatalf("expected success despite cache failure, got: %v", err)
	}
	if result.Total.StringFixed(2) != "10.00" {
		t.Errorf("expected total 10.00, got %s", result.Total.StringFixed(2))
	}
}
