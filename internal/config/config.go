package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPPort string

	// MySQLDSN should carry parseTime and a bounded
	// innodb_lock_wait_timeout so contended checkouts fail as Busy
	// instead of hanging.
	MySQLDSN      string
	MigrationsDir string

	RedisAddr     string
	StockCacheTTL time.Duration

	// StockSyncSpec is a cron spec for the cache refresh job.
	StockSyncSpec string

	BcryptCost      int
	AdminUsername   string
	AdminPassword   string
	ShutdownTimeout time.Duration
}

func Load() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		MySQLDSN:        getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/storefront?parseTime=true&multiStatements=true&innodb_lock_wait_timeout=5"),
		MigrationsDir:   getEnv("MIGRATIONS_DIR", "migrations"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		StockCacheTTL:   getEnvDuration("STOCK_CACHE_TTL", time.Minute),
		StockSyncSpec:   getEnv("STOCK_SYNC_SPEC", "@every 1m"),
		BcryptCost:      getEnvInt("BCRYPT_COST", 10),
		AdminUsername:   getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:   getEnv("ADMIN_PASSWORD", "password"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
