package repository

import (
	"context"
	"time"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	Delete(ctx context.Context, keys ...string) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	// HSet записывает поле хеша и продлевает TTL всего ключа
	HSet(ctx context.Context, key, field, value string, expiration time.Duration) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}
