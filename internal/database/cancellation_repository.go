package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jetlink/charter-booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// CancellationRepository handles the cancellation_records table. Records are
// insert-only: one per booking, never mutated.
type CancellationRepository struct {
	db DB
}

// NewCancellationRepository creates a new CancellationRepository
func NewCancellationRepository(db DB) *CancellationRepository {
	return &CancellationRepository{db: db}
}

// insertCancellationRecord inserts the cancellation record inside the
// caller's transaction. The unique constraint on request_id enforces
// exactly-once creation.
func insertCancellationRecord(tx *sqlx.Tx, record *models.CancellationRecord) error {
	query := `
		INSERT INTO cancellation_records (
			id, request_id, initiator, reason,
			penalty_percentage, refund_percentage,
			penalty_amount, refund_amount, original_amount,
			hours_before_departure, cancellation_date
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := tx.Exec(
		query,
		record.ID, record.RequestID, record.Initiator, record.Reason,
		record.PenaltyPercentage, record.RefundPercentage,
		record.PenaltyAmount, record.RefundAmount, record.OriginalAmount,
		record.HoursBeforeDeparture, record.CancellationDate,
	)
	if err != nil {
		return fmt.Errorf("failed to create cancellation record: %w", err)
	}

	return nil
}

// GetByRequestID retrieves the cancellation record for a booking
func (r *CancellationRepository) GetByRequestID(requestID uuid.UUID) (*models.CancellationRecord, error) {
	query := `
		SELECT id, request_id, initiator, reason,
			   penalty_percentage, refund_percentage,
			   penalty_amount, refund_amount, original_amount,
			   hours_before_departure, cancellation_date
		FROM cancellation_records
		WHERE request_id = $1
	`

	record := &models.CancellationRecord{}
	var reason sql.NullString

	err := r.db.QueryRow(query, requestID).Scan(
		&record.ID, &record.RequestID, &record.Initiator, &reason,
		&record.PenaltyPercentage, &record.RefundPercentage,
		&record.PenaltyAmount, &record.RefundAmount, &record.OriginalAmount,
		&record.HoursBeforeDeparture, &record.CancellationDate,
	)
	if err != nil {
		return nil, err
	}

	if reason.Valid {
		record.Reason = &reason.String
	}

	return record, nil
}
