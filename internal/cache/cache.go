// Package cache реализует кеш JSON-значений с временем жизни.
// Поддерживаются два драйвера: redis и память процесса.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/fitcoach/internal/config"
)

const (
	// DriverRedis — общий кеш в redis.
	DriverRedis = "redis"
	// DriverMemory — LRU в памяти процесса.
	DriverMemory = "memory"
)

// Cache описывает методы для кеширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу и декодировать его в result.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// Invalidate удаляет значения по ключам.
	Invalidate(ctx context.Context, keys ...string) error
	// Close освобождает ресурсы драйвера.
	Close() error
}

// New создаёт кеш по настройкам: драйвер из cfg.Cache.Driver.
func New(ctx context.Context, cfg *config.Config) (Cache, error) {
	switch cfg.Cache.Driver {
	case DriverRedis, "":
		return InitServer(ctx, cfg.RedisConnection)
	case DriverMemory:
		return NewMemory(cfg.MemorySize), nil
	default:
		return nil, fmt.Errorf("cache.New: unknown driver %q", cfg.Cache.Driver)
	}
}
