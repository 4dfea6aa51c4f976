package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// CacheRepo реализует repository.CacheRepository
type CacheRepo struct {
	client redis.UniversalClient
}

// NewCacheRepo создает новый репозиторий кеша и возвращает ошибку при проблемах
func NewCacheRepo(client redis.UniversalClient) (*CacheRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for CacheRepo")
	}
	return &CacheRepo{client: client}, nil
}

// Delete удаляет ключи из кеша
func (r *CacheRepo) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return apperrors.NewStoreError("cache.delete", r.client.Del(ctx, keys...).Err())
}

// Increment увеличивает счетчик на 1. TTL окна ставится, если у ключа его нет:
// счетчик без TTL после сбоя EXPIRE получит его при следующем вызове.
func (r *CacheRepo) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, apperrors.NewStoreError("cache.incr", err)
	}
	count := incr.Val()
	if ttl.Val() < 0 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return count, apperrors.NewStoreError("cache.expire", err)
		}
	}
	return count, nil
}

// SetJSON сохраняет структуру JSON в кеше
func (r *CacheRepo) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return apperrors.NewStoreError("cache.set_json", r.client.Set(ctx, key, data, expiration).Err())
}

// GetJSON получает структуру JSON из кеша
func (r *CacheRepo) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperrors.ErrNotFound
		}
		return apperrors.NewStoreError("cache.get_json", err)
	}
	return json.Unmarshal(data, dest)
}

// HSet записывает поле хеша и обновляет TTL ключа
func (r *CacheRepo) HSet(ctx context.Context, key, field, value string, expiration time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, field, value)
	if expiration > 0 {
		pipe.Expire(ctx, key, expiration)
	}
	_, err := pipe.Exec(ctx)
	return apperrors.NewStoreError("cache.hset", err)
}

// HGetAll возвращает все поля хеша. Отсутствующий ключ даёт пустую карту.
func (r *CacheRepo) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	values, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, apperrors.NewStoreError("cache.hgetall", err)
	}
	return values, nil
}
