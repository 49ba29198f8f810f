package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCachedEntryInfo_ValidBoundary(t *testing.T) {
	now := time.Now()
	info := CachedEntryInfo{EntryID: "e1", CachedAt: now}

	assert.True(t, info.Valid(now))
	assert.True(t, info.Valid(now.Add(RouteCacheTTL-time.Nanosecond)))
	assert.False(t, info.Valid(now.Add(RouteCacheTTL)), "false exactly at the boundary")
	assert.False(t, info.Valid(now.Add(RouteCacheTTL+time.Hour)))
}
