package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "k1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "k1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "second reserve must lose")

	_, found, err := store.Result(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found, "in-flight key has no result")

	require.NoError(t, store.Complete(ctx, "k1", `{"paymentId":7}`, time.Hour))
	result, found, err := store.Result(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"paymentId":7}`, result)

	require.NoError(t, store.Release(ctx, "k1"))
	ok, err = store.Reserve(ctx, "k1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "released key can be reserved again")
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ok, err := store.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = store.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired key can be reserved")

	now = now.Add(2 * time.Minute)
	store.cleanup()
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreCloseTwice(t *testing.T) {
	store := NewMemoryStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
