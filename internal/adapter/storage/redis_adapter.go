package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const stockKeyPrefix = "stock:"

// A stale cached count is evicted rather than driven negative; the
// next read repopulates it from the database.
var decrementStockScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return 0
end

if tonumber(current) < quantity then
	redis.call('DEL', key)
	return 0
end

redis.call('DECRBY', key, quantity)
return 1
`)

type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	return &RedisAdapter{client: client, ttl: ttl}
}

func (r *RedisAdapter) GetStock(ctx context.Context, productID int64) (int, bool, error) {
	value, err := r.client.Get(ctx, stockKey(productID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	stock, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, err
	}
	return stock, true, nil
}

func (r *RedisAdapter) SetStock(ctx context.Context, productID int64, stock int) error {
	return r.client.Set(ctx, stockKey(productID), stock, r.ttl).Err()
}

func (r *RedisAdapter) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	return decrementStockScript.Run(ctx, r.client, []string{stockKey(productID)}, quantity).Err()
}

func (r *RedisAdapter) InvalidateStock(ctx context.Context, productID int64) error {
	return r.client.Del(ctx, stockKey(productID)).Err()
}

func stockKey(productID int64) string {
	return stockKeyPrefix + strconv.FormatInt(productID, 10)
}
