// Package cache инкапсулирует подключение к Redis. Redis используется
// лимитером регистраций (скользящее окно по адресу клиента); его отсутствие
// не мешает работе сервиса.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lasetdev/laset-account/internal/config"
)

// Cache обёртка над клиентом Redis.
type Cache struct {
	Db *redis.Client
}

// InitServer создаёт клиента Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

// AllowRegistration реализует скользящее окно регистраций для адреса клиента:
// в ZSET с ключом по адресу хранятся метки времени попыток, устаревшие
// отбрасываются, попытка допускается, пока их меньше limit.
func (c *Cache) AllowRegistration(ctx context.Context, addr string, window time.Duration, limit int) (bool, error) {
	const op = "cache.AllowRegistration"
	key := "reg:" + addr
	now := time.Now()
	cutoff := now.Add(-window)

	pipe := c.Db.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", cutoff.UnixNano()))
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if card.Val() >= int64(limit) {
		return false, nil
	}

	pipe = c.Db.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}
