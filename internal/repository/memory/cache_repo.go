package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

type cacheItem struct {
	value     string
	hash      map[string]string
	expiresAt time.Time
}

func (i cacheItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// CacheRepo реализует repository.CacheRepository в памяти с поддержкой TTL
type CacheRepo struct {
	mu    sync.Mutex
	items map[string]cacheItem
	now   func() time.Time
}

// NewCacheRepo создает кеш в памяти
func NewCacheRepo() *CacheRepo {
	return &CacheRepo{items: make(map[string]cacheItem), now: time.Now}
}

// SetClock подменяет источник времени (для тестов TTL)
func (r *CacheRepo) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *CacheRepo) expiry(expiration time.Duration) time.Time {
	if expiration <= 0 {
		return time.Time{}
	}
	return r.now().Add(expiration)
}

// lookup вызывается под r.mu, просроченные ключи удаляются лениво
func (r *CacheRepo) lookup(key string) (cacheItem, bool) {
	item, ok := r.items[key]
	if !ok {
		return cacheItem{}, false
	}
	if item.expired(r.now()) {
		delete(r.items, key)
		return cacheItem{}, false
	}
	return item, true
}

func (r *CacheRepo) set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStoreError("cache.set", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[key] = cacheItem{value: fmt.Sprint(value), expiresAt: r.expiry(expiration)}
	return nil
}

func (r *CacheRepo) get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.NewStoreError("cache.get", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.lookup(key)
	if !ok || item.hash != nil {
		return "", apperrors.ErrNotFound
	}
	return item.value, nil
}

func (r *CacheRepo) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStoreError("cache.delete", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		delete(r.items, key)
	}
	return nil
}

func (r *CacheRepo) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.set(ctx, key, string(data), expiration)
}

func (r *CacheRepo) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *CacheRepo) HSet(ctx context.Context, key, field, value string, expiration time.Duration) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStoreError("cache.hset", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.lookup(key)
	if !ok || item.hash == nil {
		item = cacheItem{hash: make(map[string]string)}
	}
	item.hash[field] = value
	if expiration > 0 {
		item.expiresAt = r.expiry(expiration)
	}
	r.items[key] = item
	return nil
}

func (r *CacheRepo) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStoreError("cache.hgetall", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string)
	item, ok := r.lookup(key)
	if !ok {
		return out, nil
	}
	for k, v := range item.hash {
		out[k] = v
	}
	return out, nil
}

func (r *CacheRepo) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperrors.NewStoreError("cache.incr", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.lookup(key)
	var count int64
	if ok {
		fmt.Sscan(item.value, &count)
	} else {
		item = cacheItem{expiresAt: r.expiry(window)}
	}
	count++
	item.value = fmt.Sprint(count)
	r.items[key] = item
	return count, nil
}
