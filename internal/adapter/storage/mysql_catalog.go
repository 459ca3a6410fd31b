package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pcpartshop/storefront/internal/core/domain"
	"github.com/pcpartshop/storefront/internal/port"
)

const productColumns = `
	p.id, p.name, p.category_id, c.name, p.price, p.description,
	COALESCE(p.image_url, ''), COALESCE(p.attributes, '{}'),
	COALESCE(i.stock, 0), p.created_at, p.updated_at`

const productJoins = `
	FROM products p
	JOIN categories c ON c.id = p.category_id
	LEFT JOIN inventory i ON i.product_id = p.id`

// Sort columns are whitelisted here; anything else came through the
// service layer by mistake and falls back to id.
var sortColumns = map[string]string{
	"":      "p.id",
	"id":    "p.id",
	"name":  "p.name",
	"price": "p.price",
}

func (m *MySQLAdapter) ListProducts(ctx context.Context, filter port.ProductFilter) ([]domain.Product, error) {
	query := `SELECT` + productColumns + productJoins
	var args []any
	if filter.CategoryID > 0 {
		query += ` WHERE p.category_id = ?`
		args = append(args, filter.CategoryID)
	}

	col, ok := sortColumns[filter.SortBy]
	if !ok {
		col = "p.id"
	}
	query += ` ORDER BY ` + col
	if filter.Descending {
		query += ` DESC`
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := m.db.QueryRowContext(ctx, `SELECT`+productColumns+productJoins+` WHERE p.id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (m *MySQLAdapter) CreateProduct(ctx context.Context, p *domain.Product, initialStock int) (int64, error) {
	attrs, err := marshalAttributes(p.Attributes)
	if err != nil {
		return 0, err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", mapStoreErr(err))
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO products (name, category_id, price, description, image_url, attributes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.CategoryID, p.Price, p.Description, nullString(p.ImageURL), attrs,
	)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", mapStoreErr(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	// Every product gets an inventory row from day one; absence still
	// reads as stock 0 elsewhere.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventory (product_id, stock) VALUES (?, ?)`,
		id, initialStock,
	)
	if err != nil {
		return 0, fmt.Errorf("insert inventory: %w", mapStoreErr(err))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", mapStoreErr(err))
	}
	return id, nil
}

func (m *MySQLAdapter) UpdateProduct(ctx context.Context, p *domain.Product) error {
	attrs, err := marshalAttributes(p.Attributes)
	if err != nil {
		return err
	}

	res, err := m.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, category_id = ?, price = ?, description = ?, image_url = ?, attributes = ?
		WHERE id = ?`,
		p.Name, p.CategoryID, p.Price, p.Description, nullString(p.ImageURL), attrs, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", mapStoreErr(err))
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		// Either the id is unknown or nothing changed; distinguish them.
		var exists int
		if err := m.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ?`, p.ID).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (m *MySQLAdapter) DeleteProduct(ctx context.Context, id int64) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", mapStoreErr(err))
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (m *MySQLAdapter) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var cats []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (m *MySQLAdapter) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := m.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query category: %w", err)
	}
	return &c, nil
}

func (m *MySQLAdapter) FieldSchemas(ctx context.Context, categoryID int64) ([]domain.FieldSchema, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT field_key, label, kind, COALESCE(options, '[]')
		FROM category_fields
		WHERE category_id = ?
		ORDER BY position, field_key`,
		categoryID)
	if err != nil {
		return nil, fmt.Errorf("query field schemas: %w", err)
	}
	defer rows.Close()

	var schemas []domain.FieldSchema
	for rows.Next() {
		var s domain.FieldSchema
		var options []byte
		if err := rows.Scan(&s.Key, &s.Label, &s.Kind, &options); err != nil {
			return nil, fmt.Errorf("scan field schema: %w", err)
		}
		if err := json.Unmarshal(options, &s.Options); err != nil {
			return nil, fmt.Errorf("decode field options %s: %w", s.Key, err)
		}
		schemas = append(schemas, s)
	}
	return schemas, rows.Err()
}

func (m *MySQLAdapter) GetStock(ctx context.Context, productID int64) (int, error) {
	var stock int
	err := m.db.QueryRowContext(ctx, `
		SELECT COALESCE(i.stock, 0)
		FROM products p
		LEFT JOIN inventory i ON i.product_id = p.id
		WHERE p.id = ?`,
		productID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query stock: %w", err)
	}
	return stock, nil
}

func (m *MySQLAdapter) SetStock(ctx context.Context, productID int64, stock, reorderLevel int) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (product_id, stock, reorder_level)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE stock = VALUES(stock), reorder_level = VALUES(reorder_level)`,
		productID, stock, reorderLevel,
	)
	if err != nil {
		return fmt.Errorf("set stock: %w", mapStoreErr(err))
	}
	return nil
}

func (m *MySQLAdapter) ListInventory(ctx context.Context) ([]domain.Inventory, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, stock, reorder_level, updated_at
		FROM inventory
		ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var records []domain.Inventory
	for rows.Next() {
		var inv domain.Inventory
		if err := rows.Scan(&inv.ProductID, &inv.Stock, &inv.ReorderLevel, &inv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		records = append(records, inv)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var attrs []byte
	err := row.Scan(
		&p.ID, &p.Name, &p.CategoryID, &p.Category, &p.Price, &p.Description,
		&p.ImageURL, &attrs, &p.Stock, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	if err := json.Unmarshal(attrs, &p.Attributes); err != nil {
		return nil, fmt.Errorf("decode attributes for product %d: %w", p.ID, err)
	}
	return &p, nil
}

func marshalAttributes(attrs map[string]string) ([]byte, error) {
	if attrs == nil {
		attrs = map[string]string{}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}
	return data, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
