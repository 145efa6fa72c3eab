package cache

import (
	"context"
	"errors"
	"fmt"

	"nutrition-advisor/internal/infrastructure/config"
)

// ErrMiss 快取中沒有此鍵
var ErrMiss = errors.New("cache miss")

// Store 添加物說明的快取介面
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// NewStore 依設定建立快取；backend 為 none 時返回 nil
func NewStore(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "", config.CacheBackendNone:
		return nil, nil
	case config.CacheBackendMemory:
		return NewMemory(cfg), nil
	case config.CacheBackendRedis:
		store, err := NewRedis(cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
