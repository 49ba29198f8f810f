package domain

import "time"

// RouteCacheTTL bounds how long a last-successful entry is remembered
// per virtual model before routing starts from the head of the chain again.
const RouteCacheTTL = 60 * time.Minute

// FallbackEntry is one (provider, model) step in a virtual model's chain.
// Priority is a positive integer; lower tries first. Entries are owned by
// exactly one VirtualModel.
type FallbackEntry struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	ModelID  string `json:"modelId"`
	Priority int    `json:"priority"`
}

// VirtualModel is a user-facing alias resolving to an ordered chain of
// real provider/model pairs.
type VirtualModel struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	FallbackEntries []FallbackEntry `json:"fallbackEntries"`
	IsEnabled       bool            `json:"isEnabled"`
}

// FallbackConfig is the root aggregate, persisted as a single JSON document.
// A disabled config turns off all routing regardless of per-model flags.
type FallbackConfig struct {
	IsEnabled     bool           `json:"isEnabled"`
	VirtualModels []VirtualModel `json:"virtualModels"`
}

// CachedEntryInfo remembers the last-successful entry for a virtual model.
type CachedEntryInfo struct {
	EntryID  string    `json:"entryId"`
	CachedAt time.Time `json:"cachedAt"`
}

// Valid reports whether the cached entry is still within the TTL at now.
// Exactly at the boundary the cache is already stale.
func (c CachedEntryInfo) Valid(now time.Time) bool {
	return now.Sub(c.CachedAt) < RouteCacheTTL
}

// RouteState is a per-dispatch observability snapshot. It is rebuilt on
// every attempt and never mutated in place.
type RouteState struct {
	VirtualModelName  string        `json:"virtualModelName"`
	CurrentEntryIndex int           `json:"currentEntryIndex"`
	CurrentEntry      FallbackEntry `json:"currentEntry"`
	TotalEntries      int           `json:"totalEntries"`
	LastUpdated       time.Time     `json:"lastUpdated"`
}
