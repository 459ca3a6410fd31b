package port

import (
	"context"

	"github.com/pcpartshop/storefront/internal/core/domain"
)

// ProductFilter narrows and orders a catalog listing. A zero CategoryID
// means all categories; SortBy must be one of "id", "name", "price".
type ProductFilter struct {
	CategoryID int64
	SortBy     string
	Descending bool
}

type CatalogRepository interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error)

	// GetProduct returns domain.ErrNotFound for an unknown id.
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	// CreateProduct inserts the product and its inventory row together.
	CreateProduct(ctx context.Context, p *domain.Product, initialStock int) (int64, error)

	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)

	// FieldSchemas returns the attribute schema for one category.
	FieldSchemas(ctx context.Context, categoryID int64) ([]domain.FieldSchema, error)

	// GetStock reads the authoritative stock count; a product without an
	// inventory row reads as 0.
	GetStock(ctx context.Context, productID int64) (int, error)

	// SetStock writes an absolute stock count and reorder level.
	SetStock(ctx context.Context, productID int64, stock, reorderLevel int) error

	ListInventory(ctx context.Context) ([]domain.Inventory, error)
}
