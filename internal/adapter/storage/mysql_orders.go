package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pcpartshop/storefront/internal/core/domain"
)

func (m *MySQLAdapter) PlaceOrder(ctx context.Context, buyerID int64, lines []domain.CartLine) (*domain.Order, error) {
	// Lock rows in ascending product id order so two checkouts sharing
	// products cannot deadlock each other.
	sorted := make([]domain.CartLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", mapStoreErr(err))
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	order := &domain.Order{
		ID:        uuid.NewString(),
		BuyerID:   buyerID,
		Total:     decimal.Zero,
		CreatedAt: now,
	}

	for _, line := range sorted {
		var price decimal.Decimal
		var stock int
		err := tx.QueryRowContext(ctx, `
			SELECT p.price, COALESCE(i.stock, 0)
			FROM products p
			LEFT JOIN inventory i ON i.product_id = p.id
			WHERE p.id = ?
			FOR UPDATE`,
			line.ProductID,
		).Scan(&price, &stock)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.InvalidProductError{ProductID: line.ProductID}
		}
		if err != nil {
			return nil, fmt.Errorf("lock product %d: %w", line.ProductID, mapStoreErr(err))
		}
		if stock < line.Quantity {
			return nil, &domain.OutOfStockError{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: stock,
			}
		}

		order.Total = order.Total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		order.Lines = append(order.Lines, domain.OrderLine{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: price,
		})
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, buyer_id, total, created_at)
		VALUES (?, ?, ?, ?)`,
		order.ID, order.BuyerID, order.Total, order.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", mapStoreErr(err))
	}

	for _, l := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES (?, ?, ?, ?)`,
			l.OrderID, l.ProductID, l.Quantity, l.UnitPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("insert order line %d: %w", l.ProductID, mapStoreErr(err))
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE inventory
			SET stock = stock - ?
			WHERE product_id = ?`,
			l.Quantity, l.ProductID,
		)
		if err != nil {
			return nil, fmt.Errorf("decrement stock %d: %w", l.ProductID, mapStoreErr(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", mapStoreErr(err))
	}
	return order, nil
}

func (m *MySQLAdapter) ListOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT o.id, o.buyer_id, COALESCE(u.username, ''), o.total, o.created_at
		FROM orders o
		LEFT JOIN users u ON u.id = o.buyer_id
		ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (m *MySQLAdapter) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT o.id, o.buyer_id, COALESCE(u.username, ''), o.total, o.created_at
		FROM orders o
		LEFT JOIN users u ON u.id = o.buyer_id
		WHERE o.buyer_id = ?
		ORDER BY o.created_at DESC`,
		buyerID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func scanOrders(rows *sql.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.BuyerName, &o.Total, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
