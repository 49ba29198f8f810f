package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelrelay/modelrelay/internal/core/domain"
)

func TestConfigHolder_LoadDegradesToEmptyOnStoreError(t *testing.T) {
	store := &fakeStore{fail: errors.New("disk gone")}
	holder := NewConfigHolder(store)

	require.NoError(t, holder.Load(context.Background()))
	assert.Equal(t, domain.FallbackConfig{}, holder.Snapshot())
}

func TestConfigHolder_UpdatePersistsBeforePublishing(t *testing.T) {
	store := &fakeStore{}
	holder := NewConfigHolder(store)

	cfg, ok, err := holder.Update(context.Background(), func(cfg domain.FallbackConfig) (domain.FallbackConfig, bool) {
		return AddVirtualModel(cfg, "relay")
	})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 1, store.saves)
	assert.Len(t, store.cfg.VirtualModels, 1)
	assert.Equal(t, cfg, holder.Snapshot())
}

func TestConfigHolder_FailedSaveDoesNotPublish(t *testing.T) {
	store := &fakeStore{}
	holder := NewConfigHolder(store)

	store.fail = errors.New("readonly fs")
	_, ok, err := holder.Update(context.Background(), func(cfg domain.FallbackConfig) (domain.FallbackConfig, bool) {
		return AddVirtualModel(cfg, "relay")
	})
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Empty(t, holder.Snapshot().VirtualModels)
}

func TestConfigHolder_RejectedMutationChangesNothing(t *testing.T) {
	store := &fakeStore{}
	holder := NewConfigHolder(store)

	_, ok, err := holder.Update(context.Background(), func(cfg domain.FallbackConfig) (domain.FallbackConfig, bool) {
		return cfg, false
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, store.saves)
}
