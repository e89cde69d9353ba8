package metrics

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/moscooltech/suggest-ila2/internal/core"
	"github.com/moscooltech/suggest-ila2/internal/logger"
)

// PostgresRecorder persists OperationRecords in the ai_metrics table.
type PostgresRecorder struct {
	db *sql.DB
}

// NewPostgresRecorder creates a recorder writing to db.
func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Record inserts one row. Write failures are logged and swallowed so the
// primary pipeline is never blocked by metrics.
func (p *PostgresRecorder) Record(ctx context.Context, rec core.OperationRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO ai_metrics (id, operation, provider, success, response_time, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, string(rec.Operation), string(rec.Provider), rec.Success,
		rec.ResponseTime.Seconds(), nullable(rec.ErrorMessage), rec.CreatedAt,
	)
	if err != nil {
		logger.Warn("failed to record AI metric", "operation", rec.Operation, "provider", rec.Provider, "error", err.Error())
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// OperationStats aggregates attempts for one operation/provider pair.
type OperationStats struct {
	Operation      core.OperationKind `json:"operation"`
	Provider       core.ProviderID    `json:"provider"`
	Attempts       int                `json:"attempts"`
	Successes      int                `json:"successes"`
	SuccessRate    float64            `json:"success_rate"`
	AvgResponseSec float64            `json:"avg_response_seconds"`
}

// Analytics reads back aggregated stats over the trailing window, grouped by
// operation and provider, for the admin dashboard.
func (p *PostgresRecorder) Analytics(ctx context.Context, window time.Duration) ([]OperationStats, error) {
	since := time.Now().UTC().Add(-window)
	rows, err := p.db.QueryContext(ctx, `
		SELECT operation, provider,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE success),
		       COALESCE(AVG(response_time), 0)
		FROM ai_metrics
		WHERE created_at >= $1
		GROUP BY operation, provider
		ORDER BY operation, provider`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []OperationStats
	for rows.Next() {
		var s OperationStats
		var op, provider string
		if err := rows.Scan(&op, &provider, &s.Attempts, &s.Successes, &s.AvgResponseSec); err != nil {
			return nil, err
		}
		s.Operation = core.OperationKind(op)
		s.Provider = core.ProviderID(provider)
		if s.Attempts > 0 {
			s.SuccessRate = float64(s.Successes) / float64(s.Attempts)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
