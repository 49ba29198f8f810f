package fallback

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/modelrelay/modelrelay/internal/core/domain"
	"github.com/modelrelay/modelrelay/internal/core/ports"
	"github.com/modelrelay/modelrelay/internal/platform/logger"
)

// ConfigHolder keeps the live fallback configuration behind an atomic
// pointer. Reads take a snapshot with no locking; mutations are
// serialized through a single writer lock and written through to the
// backing store before the new snapshot is published.
type ConfigHolder struct {
	store   ports.ConfigStore
	current atomic.Pointer[domain.FallbackConfig]
	writeMu sync.Mutex
}

func NewConfigHolder(store ports.ConfigStore) *ConfigHolder {
	h := &ConfigHolder{store: store}
	empty := domain.FallbackConfig{}
	h.current.Store(&empty)
	return h
}

// Load reads the persisted document into the holder. A malformed document
// degrades to an empty, disabled configuration rather than failing boot.
func (h *ConfigHolder) Load(ctx context.Context) error {
	cfg, err := h.store.Load(ctx)
	if err != nil {
		logger.Warn("Falling back to empty configuration", zap.Error(err))
		cfg = domain.FallbackConfig{}
	}
	h.current.Store(&cfg)
	return nil
}

// Snapshot returns the current configuration value. The returned config
// must be treated as immutable; mutations go through Update.
func (h *ConfigHolder) Snapshot() domain.FallbackConfig {
	return *h.current.Load()
}

// Update applies a pure registry mutation and persists the result before
// publishing it. A mutation reporting ok=false changes nothing.
func (h *ConfigHolder) Update(ctx context.Context, mutate func(domain.FallbackConfig) (domain.FallbackConfig, bool)) (domain.FallbackConfig, bool, error) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	next, ok := mutate(*h.current.Load())
	if !ok {
		return next, false, nil
	}

	if err := h.store.Save(ctx, next); err != nil {
		return next, false, err
	}

	h.current.Store(&next)
	return next, true, nil
}
