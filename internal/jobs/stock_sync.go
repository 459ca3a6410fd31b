package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pcpartshop/storefront/internal/port"
)

// StockSync periodically re-seeds the stock cache from the database and
// flags inventory rows that have fallen to their reorder level.
type StockSync struct {
	catalog port.CatalogRepository
	cache   port.CacheRepository
	logger  *zap.Logger
}

func NewStockSync(catalog port.CatalogRepository, cache port.CacheRepository, logger *zap.Logger) *StockSync {
	return &StockSync{catalog: catalog, cache: cache, logger: logger}
}

func (s *StockSync) Schedule(c *cron.Cron, spec string) error {
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Run(ctx); err != nil {
			s.logger.Error("stock sync failed", zap.Error(err))
		}
	})
	return err
}

func (s *StockSync) Run(ctx context.Context) error {
	records, err := s.catalog.ListInventory(ctx)
	if err != nil {
		return err
	}

	for _, inv := range records {
		if err := s.cache.SetStock(ctx, inv.ProductID, inv.Stock); err != nil {
			s.logger.Warn("stock cache refresh failed",
				zap.Int64("product_id", inv.ProductID),
				zap.Error(err))
		}
		if inv.Low() {
			s.logger.Warn("stock at reorder level",
				zap.Int64("product_id", inv.ProductID),
				zap.Int("stock", inv.Stock),
				zap.Int("reorder_level", inv.ReorderLevel))
		}
	}

	s.logger.Debug("stock sync completed", zap.Int("records", len(records)))
	return nil
}
