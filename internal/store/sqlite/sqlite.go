package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/modelrelay/modelrelay/internal/store"
	"github.com/modelrelay/modelrelay/internal/store/model"
)

// DB is satisfied by *sqlx.DB and *sqlx.Tx.
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SqliteRepository implements store.Repository.
type SqliteRepository struct {
	db       *sqlx.DB
	executor DB
}

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{db: db, executor: db}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) Attempts() store.AttemptRepository {
	return &attemptRepo{db: r.executor}
}

type attemptRepo struct {
	db DB
}

func (r *attemptRepo) Log(ctx context.Context, attempt *model.Attempt) error {
	query := `
	INSERT INTO dispatch_attempts (
		id, request_id, virtual_model, entry_id, provider, model_id,
		status_code, triggered_fallback, terminal, latency_ms, created_at
	) VALUES (
		:id, :request_id, :virtual_model, :entry_id, :provider, :model_id,
		:status_code, :triggered_fallback, :terminal, :latency_ms, :created_at
	)`
	_, err := r.db.NamedExecContext(ctx, query, attempt)
	return err
}

func (r *attemptRepo) GetRecent(ctx context.Context, virtualModel string, limit int) ([]model.Attempt, error) {
	var attempts []model.Attempt
	if virtualModel == "" {
		query := `SELECT * FROM dispatch_attempts ORDER BY created_at DESC LIMIT ?`
		err := r.db.SelectContext(ctx, &attempts, query, limit)
		return attempts, err
	}
	query := `SELECT * FROM dispatch_attempts WHERE virtual_model = ? ORDER BY created_at DESC LIMIT ?`
	err := r.db.SelectContext(ctx, &attempts, query, virtualModel, limit)
	return attempts, err
}

func (r *attemptRepo) GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	var stats []model.DailyStats
	query := `
		SELECT
			DATE(created_at) as date,
			COUNT(*) as total_attempts,
			SUM(CASE WHEN triggered_fallback THEN 1 ELSE 0 END) as fallback_count,
			SUM(CASE WHEN terminal = 'succeeded' THEN 1 ELSE 0 END) as succeeded_count,
			AVG(latency_ms) as avg_latency_ms
		FROM dispatch_attempts
		WHERE created_at >= DATE('now', ?)
		GROUP BY date
		ORDER BY date DESC
	`
	// SQLite date offset format is '-7 days'
	err := r.db.SelectContext(ctx, &stats, query, fmt.Sprintf("-%d days", days))
	return stats, err
}
