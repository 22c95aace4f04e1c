package database

import (
	"fmt"

	"github.com/google/uuid"
)

// RejectionRepository handles the request_rejections table: the per-booking,
// append-only set of operators that have opted out of a request. Rows are
// never deleted.
type RejectionRepository struct {
	db DB
}

// NewRejectionRepository creates a new RejectionRepository
func NewRejectionRepository(db DB) *RejectionRepository {
	return &RejectionRepository{db: db}
}

// Add records that an operator has rejected a request. Idempotent: adding
// the same operator twice is a no-op, and the request's status is never
// touched.
func (r *RejectionRepository) Add(requestID, operatorID uuid.UUID) error {
	query := `
		INSERT INTO request_rejections (request_id, operator_id)
		VALUES ($1, $2)
		ON CONFLICT (request_id, operator_id) DO NOTHING
	`

	_, err := r.db.Exec(query, requestID, operatorID)
	if err != nil {
		return fmt.Errorf("failed to add rejection: %w", err)
	}

	return nil
}

// IsRejected reports whether the operator has rejected the request
func (r *RejectionRepository) IsRejected(requestID, operatorID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM request_rejections
			WHERE request_id = $1 AND operator_id = $2
		)
	`

	var rejected bool
	err := r.db.QueryRow(query, requestID, operatorID).Scan(&rejected)
	return rejected, err
}

// ListOperators returns every operator that has rejected the request, in
// rejection order
func (r *RejectionRepository) ListOperators(requestID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT operator_id FROM request_rejections
		WHERE request_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	operators := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		operators = append(operators, id)
	}

	return operators, rows.Err()
}
