package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores headline lists by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]string, bool)
	Set(ctx context.Context, key string, headlines []string) error
	Close() error
}

// memoryCache stores headlines temporarily in process
type memoryCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
	stop chan struct{}
	once sync.Once
}

type cacheEntry struct {
	headlines []string
	timestamp time.Time
}

// NewMemoryCache creates an in-process TTL cache with a background sweeper
func NewMemoryCache(ttl time.Duration) Cache {
	cache := &memoryCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
		stop: make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// Get retrieves cached headlines if still valid
func (c *memoryCache) Get(_ context.Context, key string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[key]
	if !exists {
		return nil, false
	}

	if time.Since(entry.timestamp) > c.ttl {
		return nil, false
	}

	return append([]string(nil), entry.headlines...), true
}

// Set stores headlines in cache
func (c *memoryCache) Set(_ context.Context, key string, headlines []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &cacheEntry{
		headlines: append([]string(nil), headlines...),
		timestamp: time.Now(),
	}
	return nil
}

func (c *memoryCache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

// cleanupLoop periodically removes expired entries
func (c *memoryCache) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup removes expired entries
func (c *memoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, key)
		}
	}
}

// RedisCache shares headline lists between instances. Entries expire via
// the redis TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: "fx:headlines:"}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]string, bool) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}

	var headlines []string
	if err := json.Unmarshal(data, &headlines); err != nil {
		return nil, false
	}
	return headlines, true
}

func (r *RedisCache) Set(ctx context.Context, key string, headlines []string) error {
	data, err := json.Marshal(headlines)
	if err != nil {
		return fmt.Errorf("failed to marshal headlines: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache headlines: %w", err)
	}
	return nil
}

// Ping checks Redis connection health
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	if err := r.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
