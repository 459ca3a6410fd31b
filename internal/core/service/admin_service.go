package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pcpartshop/storefront/internal/core/domain"
	"github.com/pcpartshop/storefront/internal/port"
)

// AdminService covers catalog and inventory administration. Callers are
// assumed to be authorized already; the admin gate lives at the HTTP layer.
type AdminService struct {
	catalog port.CatalogRepository
	orders  port.OrderRepository
	cache   port.CacheRepository
	logger  *zap.Logger
}

func NewAdminService(catalog port.CatalogRepository, orders port.OrderRepository, cache port.CacheRepository, logger *zap.Logger) *AdminService {
	return &AdminService{
		catalog: catalog,
		orders:  orders,
		cache:   cache,
		logger:  logger,
	}
}

func (s *AdminService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.catalog.ListProducts(ctx, port.ProductFilter{})
}

func (s *AdminService) CreateProduct(ctx context.Context, p *domain.Product, initialStock int) (int64, error) {
	if err := s.validateProduct(ctx, p); err != nil {
		return 0, err
	}
	if initialStock < 0 {
		return 0, &domain.ValidationError{Field: "stock", Reason: "must not be negative"}
	}

	id, err := s.catalog.CreateProduct(ctx, p, initialStock)
	if err != nil {
		return 0, err
	}
	s.logger.Info("product created", zap.Int64("product_id", id), zap.String("name", p.Name))
	return id, nil
}

func (s *AdminService) UpdateProduct(ctx context.Context, p *domain.Product) error {
	if err := s.validateProduct(ctx, p); err != nil {
		return err
	}
	if err := s.catalog.UpdateProduct(ctx, p); err != nil {
		return err
	}
	s.logger.Info("product updated", zap.Int64("product_id", p.ID))
	return nil
}

func (s *AdminService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.catalog.DeleteProduct(ctx, id); err != nil {
		return err
	}
	if cacheErr := s.cache.InvalidateStock(ctx, id); cacheErr != nil {
		s.logger.Warn("stock cache invalidation failed", zap.Int64("product_id", id), zap.Error(cacheErr))
	}
	s.logger.Info("product deleted", zap.Int64("product_id", id))
	return nil
}

// SetStock writes an absolute stock count; checkout is the only path
// that decrements relatively.
func (s *AdminService) SetStock(ctx context.Context, productID int64, stock, reorderLevel int) error {
	if stock < 0 {
		return &domain.ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	if reorderLevel < 0 {
		return &domain.ValidationError{Field: "reorder_level", Reason: "must not be negative"}
	}

	if err := s.catalog.SetStock(ctx, productID, stock, reorderLevel); err != nil {
		return err
	}
	if cacheErr := s.cache.SetStock(ctx, productID, stock); cacheErr != nil {
		s.logger.Warn("stock cache write failed", zap.Int64("product_id", productID), zap.Error(cacheErr))
	}
	return nil
}

func (s *AdminService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.orders.ListOrders(ctx)
}

func (s *AdminService) OrdersForBuyer(ctx context.Context, buyerID int64) ([]domain.Order, error) {
	return s.orders.ListOrdersByBuyer(ctx, buyerID)
}

func (s *AdminService) validateProduct(ctx context.Context, p *domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.Price.IsNegative() {
		return &domain.ValidationError{Field: "price", Reason: "must not be negative"}
	}

	if _, err := s.catalog.GetCategory(ctx, p.CategoryID); err != nil {
		return err
	}

	schemas, err := s.catalog.FieldSchemas(ctx, p.CategoryID)
	if err != nil {
		return err
	}
	return validateAttributes(schemas, p.Attributes)
}

// validateAttributes checks the open attribute map against the
// category's field schemas: unknown keys are rejected, number fields
// must parse and select fields must use one of the declared options.
func validateAttributes(schemas []domain.FieldSchema, attrs map[string]string) error {
	byKey := make(map[string]domain.FieldSchema, len(schemas))
	for _, s := range schemas {
		byKey[s.Key] = s
	}

	for key, value := range attrs {
		schema, ok := byKey[key]
		if !ok {
			return &domain.ValidationError{Field: key, Reason: "not defined for this category"}
		}
		switch schema.Kind {
		case domain.FieldKindNumber:
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				return &domain.ValidationError{Field: key, Reason: fmt.Sprintf("%q is not a number", value)}
			}
		case domain.FieldKindSelect:
			if !contains(schema.Options, value) {
				return &domain.ValidationError{Field: key, Reason: fmt.Sprintf("%q is not one of %v", value, schema.Options)}
			}
		}
	}
	return nil
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
