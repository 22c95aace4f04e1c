package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jetlink/charter-booking-backend/internal/models"
)

// BookingAuditRepository handles the append-only booking_audit_log table
type BookingAuditRepository struct {
	db DB
}

// NewBookingAuditRepository creates a new BookingAuditRepository
func NewBookingAuditRepository(db DB) *BookingAuditRepository {
	return &BookingAuditRepository{db: db}
}

// Create appends an audit entry. Entries are never updated or deleted.
func (r *BookingAuditRepository) Create(entry *models.BookingAudit) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	query := `
		INSERT INTO booking_audit_log (
			id, request_id, actor_id, event_type,
			ip_address, user_agent, details
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := r.db.Exec(
		query,
		entry.ID, entry.RequestID, entry.ActorID, entry.EventType,
		entry.IPAddress, entry.UserAgent, entry.Details,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

// GetByRequestID retrieves the audit trail for a booking in event order
func (r *BookingAuditRepository) GetByRequestID(requestID uuid.UUID) ([]models.BookingAudit, error) {
	query := `
		SELECT id, request_id, actor_id, event_type,
			   ip_address, user_agent, details, created_at
		FROM booking_audit_log
		WHERE request_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.BookingAudit{}
	for rows.Next() {
		var entry models.BookingAudit
		var actorID sql.NullString
		err := rows.Scan(
			&entry.ID, &entry.RequestID, &actorID, &entry.EventType,
			&entry.IPAddress, &entry.UserAgent, &entry.Details, &entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if actorID.Valid {
			id, err := uuid.Parse(actorID.String)
			if err != nil {
				return nil, fmt.Errorf("invalid actor_id: %w", err)
			}
			entry.ActorID = &id
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
