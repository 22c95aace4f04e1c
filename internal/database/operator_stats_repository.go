package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jetlink/charter-booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// OperatorStatsRepository handles the operator_stats table: per-operator
// counters, currently the paid-booking cancellation count.
type OperatorStatsRepository struct {
	db DB
}

// NewOperatorStatsRepository creates a new OperatorStatsRepository
func NewOperatorStatsRepository(db DB) *OperatorStatsRepository {
	return &OperatorStatsRepository{db: db}
}

// consumeAllowance atomically increments the operator's paid-booking
// cancellation counter inside the caller's transaction, refusing when the
// counter has already reached limit. A single upsert does the
// read-modify-write inside the database, so two simultaneous cancellations
// by the same operator never lose an increment. Returns the new count, or
// ErrLimitReached with no mutation.
func consumeAllowance(tx *sqlx.Tx, operatorID uuid.UUID, limit int) (int, error) {
	query := `
		INSERT INTO operator_stats (operator_id, cancellation_count, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (operator_id) DO UPDATE
		SET cancellation_count = operator_stats.cancellation_count + 1,
			updated_at = NOW()
		WHERE operator_stats.cancellation_count < $2
		RETURNING cancellation_count
	`

	var count int
	err := tx.QueryRow(query, operatorID, limit).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, ErrLimitReached
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment cancellation counter: %w", err)
	}

	return count, nil
}

// GetCancellationCount returns the operator's current paid-booking
// cancellation count. An operator with no stats row has cancelled nothing.
func (r *OperatorStatsRepository) GetCancellationCount(operatorID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT cancellation_count FROM operator_stats WHERE operator_id = $1`,
		operatorID,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Get returns the operator's stats row, zero-valued when absent
func (r *OperatorStatsRepository) Get(operatorID uuid.UUID) (*models.OperatorStats, error) {
	stats := &models.OperatorStats{OperatorID: operatorID}
	var updatedAt sql.NullTime

	err := r.db.QueryRow(
		`SELECT cancellation_count, updated_at FROM operator_stats WHERE operator_id = $1`,
		operatorID,
	).Scan(&stats.CancellationCount, &updatedAt)
	if err == sql.ErrNoRows {
		return stats, nil
	}
	if err != nil {
		return nil, err
	}

	if updatedAt.Valid {
		stats.UpdatedAt = updatedAt.Time
	}

	return stats, nil
}
