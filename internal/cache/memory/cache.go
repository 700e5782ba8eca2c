package memory

import (
	"context"
	"sync"
	"time"
)

const DefaultCleanupInterval = 5 * time.Minute

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache - in-memory кеш с TTL и фоновой чисткой просроченных записей
type Cache[V any] struct {
	mu       sync.RWMutex
	items    map[string]item[V]
	ttl      time.Duration
	max      int
	stopChan chan struct{}
	stopped  bool
}

func New[V any](ttl time.Duration) *Cache[V] {
	return NewWithContext[V](context.Background(), ttl, DefaultCleanupInterval)
}

func NewWithContext[V any](ctx context.Context, ttl, cleanupInterval time.Duration) *Cache[V] {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	c := &Cache[V]{
		items:    make(map[string]item[V]),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}
	go c.cleanup(ctx, cleanupInterval)
	return c
}

// WithMaxEntries ограничивает размер: при переполнении вытесняется запись,
// которая истекает раньше всех. 0 - без ограничения.
func (c *Cache[V]) WithMaxEntries(n int) *Cache[V] {
	c.mu.Lock()
	c.max = n
	c.mu.Unlock()
	return c
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || time.Now().After(it.expiresAt) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// Set кладет значение с TTL кеша
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.max > 0 && len(c.items) >= c.max {
		c.evict(now)
	}
	c.items[key] = item[V]{value: value, expiresAt: now.Add(ttl)}
}

// evict освобождает место под одну запись, вызывать под c.mu
func (c *Cache[V]) evict(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, k)
			continue
		}
		if !found || it.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, it.expiresAt, true
		}
	}
	if len(c.items) >= c.max && found {
		delete(c.items, oldestKey)
	}
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[V]) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.stopChan)
	}
	c.mu.Unlock()
}

func (c *Cache[V]) cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache[V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, k)
		}
	}
}
