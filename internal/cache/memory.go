package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Memory — кеш в памяти процесса. Значения хранятся в JSON, чтобы Get
// возвращал копию и вёл себя как redis-драйвер.
type Memory struct {
	lru *lru.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemory создаёт LRU на size записей. Общего срока жизни у LRU нет:
// запись живёт столько, сколько передано в Set.
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = 1000
	}
	return &Memory{
		lru: lru.NewLRU[string, memoryEntry](size, nil, 0),
		now: time.Now,
	}
}

// Get читает значение. Просроченная запись считается отсутствующей.
func (c *Memory) Get(_ context.Context, key string, result any) (bool, error) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.lru.Remove(key)
		return false, nil
	}
	if err := json.Unmarshal(entry.data, result); err != nil {
		return false, fmt.Errorf("cache.Memory.Get: %w", err)
	}
	return true, nil
}

// Set сохраняет значение. expiration <= 0 — без собственного срока.
func (c *Memory) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache.Memory.Set: %w", err)
	}
	entry := memoryEntry{data: data}
	if expiration > 0 {
		entry.expiresAt = c.now().Add(expiration)
	}
	c.lru.Add(key, entry)
	return nil
}

// Invalidate удаляет ключи.
func (c *Memory) Invalidate(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.lru.Remove(k)
	}
	return nil
}

// Close очищает кеш.
func (c *Memory) Close() error {
	c.lru.Purge()
	return nil
}
