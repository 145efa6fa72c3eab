package cache

import (
	"context"
	"testing"
	"time"

	"nutrition-advisor/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T, maxSize int) (*Memory, *time.Time) {
	t.Helper()
	m := NewMemory(config.CacheConfig{MaxSize: maxSize, TTL: time.Minute})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	t.Cleanup(func() { _ = m.Close() })
	return m, &now
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, 10)

	_, err := m.Get(ctx, "E150D")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "E150D", "Sulphite ammonia caramel"))
	v, err := m.Get(ctx, "E150D")
	require.NoError(t, err)
	assert.Equal(t, "Sulphite ammonia caramel", v)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m, now := newTestMemory(t, 10)

	require.NoError(t, m.Set(ctx, "E330", "Citric acid"))
	*now = now.Add(2 * time.Minute)

	_, err := m.Get(ctx, "E330")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryEvictsLeastUsed(t *testing.T) {
	ctx := context.Background()
	m, now := newTestMemory(t, 2)

	require.NoError(t, m.Set(ctx, "a", "1"))
	*now = now.Add(time.Second)
	require.NoError(t, m.Set(ctx, "b", "2"))
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "c", "3"))
	assert.Equal(t, 2, m.Len())

	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = m.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(config.CacheConfig{Backend: config.CacheBackendNone})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = NewStore(config.CacheConfig{Backend: config.CacheBackendMemory, MaxSize: 5, TTL: time.Minute})
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, store.Close())

	_, err = NewStore(config.CacheConfig{Backend: "memcached"})
	assert.Error(t, err)
}
