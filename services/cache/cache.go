package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"installhub/utils"

	"github.com/go-redis/redis/v8"
)

// SettingsCache holds read-mostly configuration rows with a bounded lifetime.
// Writers call Invalidate after committing so later readers reload.
type SettingsCache interface {
	// Get decodes the entry into dst and reports whether it was present.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, v interface{}) error
	Invalidate(ctx context.Context, keys ...string) error
}

// RedisSettingsCache shares entries between every process using the same Redis.
type RedisSettingsCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisSettingsCache(client *redis.Client, ttl time.Duration) *RedisSettingsCache {
	return &RedisSettingsCache{Client: client, TTL: ttl}
}

func (c *RedisSettingsCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	err := utils.LoadJSON(ctx, c.Client, utils.SettingsCachePrefix+key, dst)
	if errors.Is(err, utils.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisSettingsCache) Set(ctx context.Context, key string, v interface{}) error {
	return utils.SaveJSON(ctx, c.Client, utils.SettingsCachePrefix+key, v, c.TTL)
}

func (c *RedisSettingsCache) Invalidate(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = utils.SettingsCachePrefix + k
	}
	return utils.DeleteKeys(ctx, c.Client, prefixed...)
}

type localEntry struct {
	data    []byte
	expires time.Time
}

// LocalSettingsCache is the single-process fallback used when Redis is not
// configured. Entries are stored encoded so callers never share memory.
type LocalSettingsCache struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]localEntry
}

func NewLocalSettingsCache(ttl time.Duration) *LocalSettingsCache {
	return &LocalSettingsCache{ttl: ttl, now: time.Now, entries: map[string]localEntry{}}
}

func (c *LocalSettingsCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return false, nil
	}
	if err := json.Unmarshal(e.data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *LocalSettingsCache) Set(_ context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = localEntry{data: data, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *LocalSettingsCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.mu.Unlock()
	return nil
}
