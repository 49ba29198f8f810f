// Package cache provides route-cache backends for sticky routing.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/modelrelay/modelrelay/internal/core/domain"
	"github.com/modelrelay/modelrelay/internal/core/ports"
)

// Memory is the default in-process route cache. Entries expire by the
// domain TTL; expiry is checked on read so no sweeper goroutine is
// needed for the handful of virtual models a config holds.
type Memory struct {
	mu    sync.RWMutex
	items map[string]domain.CachedEntryInfo
}

func NewMemory() ports.RouteCache {
	return &Memory{items: make(map[string]domain.CachedEntryInfo)}
}

func (c *Memory) Get(ctx context.Context, virtualModel string) (domain.CachedEntryInfo, bool) {
	c.mu.RLock()
	info, ok := c.items[virtualModel]
	c.mu.RUnlock()

	if !ok || !info.Valid(time.Now()) {
		return domain.CachedEntryInfo{}, false
	}
	return info, true
}

func (c *Memory) Set(ctx context.Context, virtualModel string, info domain.CachedEntryInfo) error {
	c.mu.Lock()
	c.items[virtualModel] = info
	c.mu.Unlock()
	return nil
}

func (c *Memory) Delete(ctx context.Context, virtualModel string) error {
	c.mu.Lock()
	delete(c.items, virtualModel)
	c.mu.Unlock()
	return nil
}
