package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelrelay/modelrelay/internal/core/domain"
)

func TestMemory_SetGetDelete(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	_, ok := c.Get(ctx, "relay")
	assert.False(t, ok)

	info := domain.CachedEntryInfo{EntryID: "e1", CachedAt: time.Now()}
	require.NoError(t, c.Set(ctx, "relay", info))

	got, ok := c.Get(ctx, "relay")
	require.True(t, ok)
	assert.Equal(t, "e1", got.EntryID)

	require.NoError(t, c.Delete(ctx, "relay"))
	_, ok = c.Get(ctx, "relay")
	assert.False(t, ok)
}

func TestMemory_ExpiredEntryIsAMiss(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	stale := domain.CachedEntryInfo{EntryID: "e1", CachedAt: time.Now().Add(-domain.RouteCacheTTL)}
	require.NoError(t, c.Set(ctx, "relay", stale))

	_, ok := c.Get(ctx, "relay")
	assert.False(t, ok, "entry exactly at the TTL boundary is already stale")
}
