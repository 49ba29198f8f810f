package store

import (
	"context"

	"github.com/modelrelay/modelrelay/internal/store/model"
)

// Repository is the contract for the audit data layer.
type Repository interface {
	Attempts() AttemptRepository
	Close() error
}

type AttemptRepository interface {
	// Log stores one completed backend attempt.
	Log(ctx context.Context, attempt *model.Attempt) error
	// GetRecent returns the last N attempts for a virtual model.
	GetRecent(ctx context.Context, virtualModel string, limit int) ([]model.Attempt, error)
	// GetDailyStats returns aggregated attempt stats grouped by day.
	GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error)
}
