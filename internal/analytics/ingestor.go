package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/modelrelay/modelrelay/internal/core/ports"
	"github.com/modelrelay/modelrelay/internal/store"
	"github.com/modelrelay/modelrelay/internal/store/model"
)

// Ingestor handles the asynchronous persistence of dispatch attempts so
// the hot path never blocks on the audit database.
type Ingestor interface {
	ports.AttemptSink
	Start(ctx context.Context)
	Stop()
}

type ingestor struct {
	logger    *zap.Logger
	repo      store.Repository
	attempts  chan *ports.Attempt
	batchSize int
	flushTime time.Duration
}

func NewIngestor(logger *zap.Logger, repo store.Repository) Ingestor {
	return &ingestor{
		logger:    logger,
		repo:      repo,
		attempts:  make(chan *ports.Attempt, 10000),
		batchSize: 50,
		flushTime: 5 * time.Second,
	}
}

func (i *ingestor) Record(a *ports.Attempt) {
	select {
	case i.attempts <- a:
	default:
		i.logger.Warn("Attempt buffer full, dropping record", zap.String("request_id", a.RequestID))
	}
}

func (i *ingestor) Start(ctx context.Context) {
	go i.worker(ctx)
}

func (i *ingestor) Stop() {
	close(i.attempts)
}

func (i *ingestor) worker(ctx context.Context) {
	batch := make([]*ports.Attempt, 0, i.batchSize)
	ticker := time.NewTicker(i.flushTime)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		for _, a := range batch {
			if err := i.repo.Attempts().Log(context.Background(), toRow(a)); err != nil {
				i.logger.Error("Failed to persist attempt", zap.String("id", a.ID), zap.Error(err))
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case a, ok := <-i.attempts:
			if !ok {
				flush()
				return
			}
			batch = append(batch, a)
			if len(batch) >= i.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}

func toRow(a *ports.Attempt) *model.Attempt {
	return &model.Attempt{
		ID:                a.ID,
		RequestID:         a.RequestID,
		VirtualModel:      a.VirtualModel,
		EntryID:           a.EntryID,
		Provider:          a.Provider,
		ModelID:           a.ModelID,
		StatusCode:        a.StatusCode,
		TriggeredFallback: a.TriggeredFallback,
		Terminal:          a.Terminal,
		LatencyMS:         a.LatencyMS,
		CreatedAt:         a.CreatedAt,
	}
}
