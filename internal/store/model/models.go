package model

import "time"

// Attempt is one backend try made by the dispatcher, persisted for audit.
type Attempt struct {
	ID                string    `db:"id" json:"id"`
	RequestID         string    `db:"request_id" json:"requestId"`
	VirtualModel      string    `db:"virtual_model" json:"virtualModel"`
	EntryID           string    `db:"entry_id" json:"entryId"`
	Provider          string    `db:"provider" json:"provider"`
	ModelID           string    `db:"model_id" json:"modelId"`
	StatusCode        int       `db:"status_code" json:"statusCode"`
	TriggeredFallback bool      `db:"triggered_fallback" json:"triggeredFallback"`
	Terminal          string    `db:"terminal" json:"terminal"`
	LatencyMS         int64     `db:"latency_ms" json:"latencyMs"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
}

// DailyStats aggregates attempts per day for the usage overview.
type DailyStats struct {
	Date           string  `db:"date" json:"date"`
	TotalAttempts  int64   `db:"total_attempts" json:"totalAttempts"`
	FallbackCount  int64   `db:"fallback_count" json:"fallbackCount"`
	SucceededCount int64   `db:"succeeded_count" json:"succeededCount"`
	AvgLatencyMS   float64 `db:"avg_latency_ms" json:"avgLatencyMs"`
}
