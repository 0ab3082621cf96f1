package cache

import (
	"context"
	"sync"
	"time"

	"github.com/fly2any/booking-engine/config"
	"github.com/redis/go-redis/v9"
)

// CounterStore is the shared counter used for rate limiting and
// failed-attempt tracking. Increment is atomic per key; the TTL starts when
// the key is first written. Strategies are pluggable: redis for multi-
// instance deployments, the in-process map for a single instance.
type CounterStore interface {
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}

type RedisCounters struct {
	client *redis.Client
}

func NewRedisCounters(cfg config.RedisConfig) *RedisCounters {
	return &RedisCounters{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
	}
}

func (c *RedisCounters) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *RedisCounters) Reset(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// MemoryCounters is the single-instance strategy. Counters expire when the
// window recorded at first increment has passed.
type MemoryCounters struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
	now      func() time.Time
}

type memoryCounter struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{counters: make(map[string]*memoryCounter), now: time.Now}
}

func (c *MemoryCounters) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry, ok := c.counters[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &memoryCounter{expiresAt: now.Add(ttl)}
		c.counters[key] = entry
	}
	entry.count++
	return entry.count, nil
}

func (c *MemoryCounters) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counters, key)
	return nil
}

var (
	_ CounterStore = (*RedisCounters)(nil)
	_ CounterStore = (*MemoryCounters)(nil)
)
