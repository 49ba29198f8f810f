package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/modelrelay/modelrelay/internal/core/ports"
	"github.com/modelrelay/modelrelay/internal/store"
	"github.com/modelrelay/modelrelay/internal/store/model"
)

type fakeRepo struct {
	mu   sync.Mutex
	rows []model.Attempt
}

func (r *fakeRepo) Attempts() store.AttemptRepository { return r }
func (r *fakeRepo) Close() error                      { return nil }

func (r *fakeRepo) Log(ctx context.Context, attempt *model.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *attempt)
	return nil
}

func (r *fakeRepo) GetRecent(ctx context.Context, virtualModel string, limit int) ([]model.Attempt, error) {
	return nil, nil
}

func (r *fakeRepo) GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	return nil, nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func TestIngestor_FlushesOnStop(t *testing.T) {
	repo := &fakeRepo{}
	ing := NewIngestor(zap.NewNop(), repo)
	ing.Start(context.Background())

	for i := 0; i < 3; i++ {
		ing.Record(&ports.Attempt{ID: "a", RequestID: "r", VirtualModel: "vm"})
	}
	ing.Stop()

	// The worker drains the channel after close.
	assert.Eventually(t, func() bool { return repo.count() == 3 }, time.Second, 10*time.Millisecond)
}

func TestIngestor_DropsWhenBufferFull(t *testing.T) {
	// Never started, so nothing drains the channel.
	repo := &fakeRepo{}
	ing := NewIngestor(zap.NewNop(), repo)

	for i := 0; i < 10001; i++ {
		ing.Record(&ports.Attempt{ID: "a"})
	}
	// No panic and nothing persisted; the overflow record was dropped.
	assert.Equal(t, 0, repo.count())
}
