package cache

import (
	"context"
	"sync"
	"time"

	"nutrition-advisor/internal/infrastructure/config"
	"nutrition-advisor/internal/pkg/common"

	"go.uber.org/zap"
)

// Memory 行程內的 TTL 快取，滿了以最少使用優先淘汰
type Memory struct {
	mu      sync.Mutex
	store   map[string]memoryEntry
	maxSize int
	ttl     time.Duration
	stats   memoryStats
	now     func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

type memoryEntry struct {
	value       string
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

type memoryStats struct {
	hits      int64
	misses    int64
	evictions int64
}

// NewMemory 創建記憶體快取並啟動過期清理
func NewMemory(cfg config.CacheConfig) *Memory {
	m := &Memory{
		store:   make(map[string]memoryEntry),
		maxSize: cfg.MaxSize,
		ttl:     cfg.TTL,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if m.maxSize <= 0 {
		m.maxSize = 500
	}
	if m.ttl <= 0 {
		m.ttl = 24 * time.Hour
	}

	if cfg.CleanupInterval > 0 {
		go m.startCleanup(cfg.CleanupInterval)
	}

	common.LogInfo("記憶體快取已初始化",
		zap.Int("最大容量", m.maxSize),
		zap.Duration("存活時間", m.ttl),
	)
	return m
}

// Get 取得快取值，過期視為未命中
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.store[key]
	if !ok {
		m.stats.misses++
		return "", ErrMiss
	}
	now := m.now()
	if now.After(entry.expiresAt) {
		delete(m.store, key)
		m.stats.evictions++
		m.stats.misses++
		return "", ErrMiss
	}

	entry.lastAccess = now
	entry.accessCount++
	m.store[key] = entry
	m.stats.hits++
	return entry.value, nil
}

// Set 寫入快取值
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[key]; !exists && len(m.store) >= m.maxSize {
		if m.cleanup() == 0 {
			m.evictLRU()
		}
	}

	now := m.now()
	m.store[key] = memoryEntry{
		value:      value,
		expiresAt:  now.Add(m.ttl),
		lastAccess: now,
	}
	return nil
}

// Len 目前條目數
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

func (m *Memory) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.cleanup()
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// cleanup 清除過期條目，呼叫者須持有鎖
func (m *Memory) cleanup() int {
	now := m.now()
	count := 0
	for key, entry := range m.store {
		if now.After(entry.expiresAt) {
			delete(m.store, key)
			count++
		}
	}
	m.stats.evictions += int64(count)

	if count > 0 {
		common.LogDebug("Cleaned up expired cache entries",
			zap.Int("count", count),
			zap.Int("remaining_size", len(m.store)),
		)
	}
	return count
}

// evictLRU 淘汰存取次數最少、其次最久未使用的條目
func (m *Memory) evictLRU() {
	var oldestKey string
	var oldestAccess time.Time
	lowestCount := 0

	for key, entry := range m.store {
		if oldestKey == "" ||
			entry.accessCount < lowestCount ||
			(entry.accessCount == lowestCount && entry.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = entry.lastAccess
			lowestCount = entry.accessCount
		}
	}

	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.stats.evictions++
		common.LogDebug("快取已淘汰(LRU)", zap.String("鍵", oldestKey))
	}
}

// Close 停止清理並清空快取
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]memoryEntry)
	common.LogInfo("記憶體快取已關閉",
		zap.Int64("命中次數", m.stats.hits),
		zap.Int64("未命中次數", m.stats.misses),
		zap.Int64("淘汰次數", m.stats.evictions),
	)
	return nil
}
