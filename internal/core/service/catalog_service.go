package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pcpartshop/storefront/internal/core/domain"
	"github.com/pcpartshop/storefront/internal/port"
)

var sortKeys = map[string]bool{"": true, "id": true, "name": true, "price": true}

type CatalogService struct {
	catalog port.CatalogRepository
	cache   port.CacheRepository
	logger  *zap.Logger
}

func NewCatalogService(catalog port.CatalogRepository, cache port.CacheRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{catalog: catalog, cache: cache, logger: logger}
}

func (s *CatalogService) ListProducts(ctx context.Context, filter port.ProductFilter) ([]domain.Product, error) {
	if !sortKeys[filter.SortBy] {
		return nil, &domain.ValidationError{Field: "sort", Reason: fmt.Sprintf("unknown sort key %q", filter.SortBy)}
	}
	return s.catalog.ListProducts(ctx, filter)
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.catalog.GetProduct(ctx, id)
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.catalog.ListCategories(ctx)
}

func (s *CatalogService) FieldSchemas(ctx context.Context, categoryID int64) ([]domain.FieldSchema, error) {
	if _, err := s.catalog.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.catalog.FieldSchemas(ctx, categoryID)
}

// ProductStock reads through the cache, falling back to the store on a
// miss. The cached value may lag the store by at most the cache TTL.
func (s *CatalogService) ProductStock(ctx context.Context, productID int64) (int, error) {
	stock, ok, err := s.cache.GetStock(ctx, productID)
	if err != nil {
		s.logger.Warn("stock cache read failed", zap.Int64("product_id", productID), zap.Error(err))
	} else if ok {
		return stock, nil
	}

	stock, err = s.catalog.GetStock(ctx, productID)
	if err != nil {
		return 0, err
	}

	if cacheErr := s.cache.SetStock(ctx, productID, stock); cacheErr != nil {
		s.logger.Warn("stock cache write failed", zap.Int64("product_id", productID), zap.Error(cacheErr))
	}
	return stock, nil
}
