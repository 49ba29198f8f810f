package analytics

import (
	"context"

	"github.com/modelrelay/modelrelay/internal/store"
	"github.com/modelrelay/modelrelay/internal/store/model"
)

type Service interface {
	GetUsageOverview(ctx context.Context, days int) ([]model.DailyStats, error)
	GetRecentAttempts(ctx context.Context, virtualModel string, limit int) ([]model.Attempt, error)
}

type service struct {
	repo store.Repository
}

func NewService(repo store.Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetUsageOverview(ctx context.Context, days int) ([]model.DailyStats, error) {
	if days <= 0 {
		days = 7 // default to last week
	}
	return s.repo.Attempts().GetDailyStats(ctx, days)
}

func (s *service) GetRecentAttempts(ctx context.Context, virtualModel string, limit int) ([]model.Attempt, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.Attempts().GetRecent(ctx, virtualModel, limit)
}
