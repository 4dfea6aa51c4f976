package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/cbt-api/internal/config"
)

// Режимы подключения к Redis
const (
	RedisModeSingle   = "single"
	RedisModeSentinel = "sentinel"
	RedisModeCluster  = "cluster"
)

const defaultRedisPingTimeout = 5 * time.Second

// redisOptions собирает опции клиента из конфигурации. Тип клиента go-redis выбирает сам:
// MasterName дает sentinel, несколько адресов дают cluster.
func redisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	addrs := cfg.Addrs
	if len(addrs) == 0 && cfg.Addr != "" {
		addrs = []string{cfg.Addr}
	}
	if len(addrs) == 0 {
		return nil, "", fmt.Errorf("redis: addrs or addr must be set")
	}

	mode := cfg.Mode
	if mode == "" {
		mode = RedisModeSingle
	}

	opts := &redis.UniversalOptions{
		Addrs:      addrs,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.MinRetryBackoff > 0 {
		opts.MinRetryBackoff = time.Duration(cfg.MinRetryBackoff) * time.Millisecond
	}
	if cfg.MaxRetryBackoff > 0 {
		opts.MaxRetryBackoff = time.Duration(cfg.MaxRetryBackoff) * time.Millisecond
	}

	switch mode {
	case RedisModeSingle:
		if len(addrs) > 1 {
			return nil, "", fmt.Errorf("redis: single mode expects one address, got %d", len(addrs))
		}
	case RedisModeSentinel:
		if cfg.MasterName == "" {
			return nil, "", fmt.Errorf("redis: sentinel mode requires master_name")
		}
		opts.MasterName = cfg.MasterName
	case RedisModeCluster:
	default:
		return nil, "", fmt.Errorf("redis: unsupported mode %q", mode)
	}
	return opts, mode, nil
}

// NewUniversalRedisClient подключается к Redis и проверяет соединение PING
// с ограничением pingTimeout. При неудаче клиент закрывается.
func NewUniversalRedisClient(cfg config.RedisConfig, pingTimeout time.Duration) (redis.UniversalClient, error) {
	opts, mode, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewUniversalClient(opts)

	if pingTimeout <= 0 {
		pingTimeout = defaultRedisPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis (mode: %s, addrs: %v): %w", mode, opts.Addrs, err)
	}
	return client, nil
}
