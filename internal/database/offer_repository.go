package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jetlink/charter-booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// OfferRepository handles database operations for the offers table
type OfferRepository struct {
	db *sqlx.DB
}

// NewOfferRepository creates a new OfferRepository
func NewOfferRepository(db *sqlx.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

// Create inserts an operator's offer and, for the first offer against a
// request, flips the request to offers_received, both in one transaction.
// The INSERT is guarded so an offer can never land on a request that has
// left the offer-taking states or whose rejection set contains this
// operator; a failed guard returns ErrStaleState.
func (r *OfferRepository) Create(offer *models.Offer) error {
	if offer.ID == uuid.Nil {
		offer.ID = uuid.New()
	}
	offer.Status = models.OfferStatusSent

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO offers (
			id, request_id, operator_id, operator_name, aircraft,
			base_price, discount_percentage, discount_amount, final_price,
			message, status, offer_date, expires_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		WHERE EXISTS (
			SELECT 1 FROM flight_requests fr
			WHERE fr.id = $2 AND fr.status IN ('pending', 'offers_received')
		)
		AND NOT EXISTS (
			SELECT 1 FROM request_rejections rr
			WHERE rr.request_id = $2 AND rr.operator_id = $3
		)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRow(
		query,
		offer.ID, offer.RequestID, offer.OperatorID, offer.OperatorName, offer.Aircraft,
		offer.BasePrice, offer.DiscountPct, offer.DiscountAmt, offer.FinalPrice,
		offer.Message, offer.Status, offer.OfferDate, offer.ExpiresAt,
	).Scan(&offer.CreatedAt, &offer.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrStaleState
	}
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE flight_requests
		SET status = 'offers_received', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, offer.RequestID)
	if err != nil {
		return fmt.Errorf("failed to transition request to offers_received: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit offer: %w", err)
	}

	return nil
}

// GetByID retrieves an offer by ID
func (r *OfferRepository) GetByID(offerID uuid.UUID) (*models.Offer, error) {
	query := `
		SELECT id, request_id, operator_id, operator_name, aircraft,
			   base_price, discount_percentage, discount_amount, final_price,
			   message, status, offer_date, expires_at, created_at, updated_at
		FROM offers
		WHERE id = $1
	`

	return r.scanOffer(r.db.QueryRow(query, offerID))
}

// GetByRequestID retrieves all offers for a request in arrival order
func (r *OfferRepository) GetByRequestID(requestID uuid.UUID) ([]models.Offer, error) {
	query := `
		SELECT id, request_id, operator_id, operator_name, aircraft,
			   base_price, discount_percentage, discount_amount, final_price,
			   message, status, offer_date, expires_at, created_at, updated_at
		FROM offers
		WHERE request_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	offers := []models.Offer{}
	for rows.Next() {
		offer, err := r.scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *offer)
	}

	return offers, rows.Err()
}

// scanOffer scans a single offer
func (r *OfferRepository) scanOffer(row scanner) (*models.Offer, error) {
	offer := &models.Offer{}
	var message sql.NullString

	err := row.Scan(
		&offer.ID, &offer.RequestID, &offer.OperatorID, &offer.OperatorName, &offer.Aircraft,
		&offer.BasePrice, &offer.DiscountPct, &offer.DiscountAmt, &offer.FinalPrice,
		&message, &offer.Status, &offer.OfferDate, &offer.ExpiresAt,
		&offer.CreatedAt, &offer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if message.Valid {
		offer.Message = &message.String
	}

	return offer, nil
}
