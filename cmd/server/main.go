package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pcpartshop/storefront/internal/adapter/handler"
	"github.com/pcpartshop/storefront/internal/adapter/storage"
	"github.com/pcpartshop/storefront/internal/config"
	"github.com/pcpartshop/storefront/internal/core/service"
	"github.com/pcpartshop/storefront/internal/jobs"
	"github.com/pcpartshop/storefront/internal/metrics"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	if err := storage.RunMigrations(db, cfg.MigrationsDir); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("ping redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Adapters
	store := storage.NewMySQLAdapter(db)
	cache := storage.NewRedisAdapter(rdb, cfg.StockCacheTTL)

	// Services
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)
	checkoutService := service.NewCheckoutService(store, cache, checkoutMetrics, logger)
	catalogService := service.NewCatalogService(store, cache, logger)
	adminService := service.NewAdminService(store, store, cache, logger)
	authService := service.NewAuthService(store, cfg.BcryptCost, logger)

	if err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Fatal("ensure admin user", zap.Error(err))
	}

	// Background jobs
	scheduler := cron.New()
	stockSync := jobs.NewStockSync(store, cache, logger)
	if err := stockSync.Schedule(scheduler, cfg.StockSyncSpec); err != nil {
		logger.Fatal("schedule stock sync", zap.Error(err))
	}
	scheduler.Start()

	// Warm the cache once at boot.
	if err := stockSync.Run(ctx); err != nil {
		logger.Warn("initial stock sync failed", zap.Error(err))
	}

	// HTTP server
	h := handler.New(checkoutService, catalogService, adminService, authService, logger)
	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", zap.Error(err))
	}

	<-scheduler.Stop().Done()
	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}
