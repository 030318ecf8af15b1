package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"fieldtrack/internal/logging"
)

// Cache is the fast ephemeral store for per-user pipeline state (last
// processed point, live location snapshot). It fronts Redis when a URL
// is configured and reachable, and always keeps an in-process TTL tier
// so the pipeline keeps working when Redis is absent — the same
// graceful degradation the rest of the service applies to optional
// backends.
type Cache struct {
	client *redis.Client
	log    logging.Logger

	mutex   sync.RWMutex
	entries map[string]memoryEntry

	now func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// New connects to Redis if redisURL is non-empty. Connection failures
// disable the Redis tier rather than failing startup.
func New(redisURL string, log logging.Logger) *Cache {
	c := &Cache{
		log:     log,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}

	if redisURL == "" {
		log.Info("redis url not provided, using in-memory cache only")
		return c
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn("failed to parse redis url, using in-memory cache only", "error", err)
		return c
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("failed to connect to redis, using in-memory cache only", "error", err)
		return c
	}

	c.client = client
	log.Info("redis cache initialized")
	return c
}

func (c *Cache) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Set stores a value under key with the given TTL in both tiers.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	c.entries[key] = memoryEntry{data: data, expiresAt: c.now().Add(ttl)}
	c.mutex.Unlock()

	if c.client != nil {
		if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
			c.log.Warn("redis set failed, memory tier still holds the value", "key", key, "error", err)
		}
	}
	return nil
}

// Get loads key into dest. The second return is false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c.client != nil {
		data, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return true, json.Unmarshal(data, dest)
		}
		if err != redis.Nil {
			c.log.Warn("redis get failed, falling back to memory tier", "key", key, "error", err)
		}
	}

	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists || c.now().After(entry.expiresAt) {
		return false, nil
	}
	return true, json.Unmarshal(entry.data, dest)
}

// Delete removes key from both tiers.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	delete(c.entries, key)
	c.mutex.Unlock()

	if c.client != nil {
		return c.client.Del(ctx, key).Err()
	}
	return nil
}

// ClearPrefix removes every key under prefix and returns how many
// memory-tier entries were dropped. Used by the emergency purge.
func (c *Cache) ClearPrefix(ctx context.Context, prefix string) (int, error) {
	c.mutex.Lock()
	cleared := 0
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
			cleared++
		}
	}
	c.mutex.Unlock()

	if c.client != nil {
		iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
				return cleared, err
			}
		}
		if err := iter.Err(); err != nil {
			return cleared, err
		}
	}
	return cleared, nil
}

// EvictExpired drops stale memory-tier entries. Redis expires its own.
func (c *Cache) EvictExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	evicted := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}
