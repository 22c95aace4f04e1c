package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jetlink/charter-booking-backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// FlightRequestRepository handles database operations for the
// flight_requests table. All status transitions go through guarded UPDATEs
// so concurrent writers serialize per row.
type FlightRequestRepository struct {
	db *sqlx.DB
}

// NewFlightRequestRepository creates a new FlightRequestRepository
func NewFlightRequestRepository(db *sqlx.DB) *FlightRequestRepository {
	return &FlightRequestRepository{db: db}
}

const flightRequestColumns = `
	id, booking_number, customer_id, customer_contact,
	origin, destination, trip_type, departure_at, return_at,
	passenger_count, discount_request, membership_tier, status,
	accepted_offer_id, payment_deadline,
	paid_at, payment_method, transaction_id, cancelled_at,
	created_at, updated_at`

// Create inserts a new flight request with status pending
func (r *FlightRequestRepository) Create(fr *models.FlightRequest) error {
	if fr.ID == uuid.Nil {
		fr.ID = uuid.New()
	}
	if fr.BookingNumber == "" {
		fr.BookingNumber = generateBookingNumber(fr.ID)
	}
	fr.Status = models.RequestStatusPending

	query := `
		INSERT INTO flight_requests (
			id, booking_number, customer_id, customer_contact,
			origin, destination, trip_type, departure_at, return_at,
			passenger_count, discount_request, membership_tier, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		fr.ID, fr.BookingNumber, fr.CustomerID, fr.CustomerContact,
		fr.Origin, fr.Destination, fr.TripType, fr.DepartureAt, fr.ReturnAt,
		fr.PassengerCount, fr.DiscountRequest, fr.MembershipTier, fr.Status,
	).Scan(&fr.CreatedAt, &fr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create flight request: %w", err)
	}

	return nil
}

// GetByID retrieves a flight request by ID
func (r *FlightRequestRepository) GetByID(requestID uuid.UUID) (*models.FlightRequest, error) {
	query := `SELECT ` + flightRequestColumns + `
		FROM flight_requests
		WHERE id = $1
	`

	return r.scanRequest(r.db.QueryRow(query, requestID))
}

// GetByBookingNumber retrieves a flight request by its booking reference
func (r *FlightRequestRepository) GetByBookingNumber(bookingNumber string) (*models.FlightRequest, error) {
	query := `SELECT ` + flightRequestColumns + `
		FROM flight_requests
		WHERE booking_number = $1
	`

	return r.scanRequest(r.db.QueryRow(query, bookingNumber))
}

// GetByCustomerID retrieves all flight requests for a customer
func (r *FlightRequestRepository) GetByCustomerID(customerID uuid.UUID) ([]models.FlightRequest, error) {
	query := `SELECT ` + flightRequestColumns + `
		FROM flight_requests
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRequests(rows)
}

// GetVisibleToOperator retrieves all flight requests the given operator may
// see and act on: every request whose rejection set does not contain the
// operator. Rejections by other operators have no effect here.
func (r *FlightRequestRepository) GetVisibleToOperator(operatorID uuid.UUID) ([]models.FlightRequest, error) {
	query := `SELECT ` + flightRequestColumns + `
		FROM flight_requests fr
		WHERE NOT EXISTS (
			SELECT 1 FROM request_rejections rr
			WHERE rr.request_id = fr.id AND rr.operator_id = $1
		)
		ORDER BY fr.created_at DESC
	`

	rows, err := r.db.Query(query, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRequests(rows)
}

// AcceptOffer marks exactly one offer as accepted and opens the payment
// window, all in a single transaction:
//   - the request moves offers_received -> offer_accepted
//   - the winning offer moves sent -> accepted
//   - every other sent offer on the request moves to rejected
//
// Returns ErrStaleState if the request or offer is no longer in a state
// that permits acceptance (e.g. a concurrent acceptance won the race).
func (r *FlightRequestRepository) AcceptOffer(requestID, offerID uuid.UUID, paymentDeadline time.Time) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE flight_requests
		SET status = 'offer_accepted',
			accepted_offer_id = $2,
			payment_deadline = $3,
			updated_at = NOW()
		WHERE id = $1 AND status = 'offers_received'
	`, requestID, offerID, paymentDeadline)
	if err != nil {
		return fmt.Errorf("failed to accept offer on request: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrStaleState
	}

	result, err = tx.Exec(`
		UPDATE offers
		SET status = 'accepted', updated_at = NOW()
		WHERE id = $2 AND request_id = $1 AND status = 'sent'
	`, requestID, offerID)
	if err != nil {
		return fmt.Errorf("failed to mark offer accepted: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrStaleState
	}

	_, err = tx.Exec(`
		UPDATE offers
		SET status = 'rejected', updated_at = NOW()
		WHERE request_id = $1 AND id != $2 AND status = 'sent'
	`, requestID, offerID)
	if err != nil {
		return fmt.Errorf("failed to reject losing offers: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit offer acceptance: %w", err)
	}

	return nil
}

// RecordPayment records payment facts and confirms the booking. The guard
// enforces that an offer is accepted, the booking is unpaid, and the
// deadline has not passed; the deadline column is cleared because payment
// has completed.
func (r *FlightRequestRepository) RecordPayment(requestID uuid.UUID, method, transactionID string) error {
	query := `
		UPDATE flight_requests
		SET status = 'confirmed',
			paid_at = NOW(),
			payment_method = $2,
			transaction_id = $3,
			payment_deadline = NULL,
			updated_at = NOW()
		WHERE id = $1
		  AND status = 'offer_accepted'
		  AND paid_at IS NULL
		  AND payment_deadline >= NOW()
	`

	result, err := r.db.Exec(query, requestID, method, transactionID)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrStaleState
	}

	return nil
}

// OperatorAllowance names the operator whose cancellation allowance is
// consumed inside Cancel, and the limit that closes it.
type OperatorAllowance struct {
	OperatorID uuid.UUID
	Limit      int
}

// Cancel moves a booking to cancelled and writes its cancellation record,
// all in a single transaction. When allowance is non-nil the operator's
// paid-booking cancellation counter is consumed in the same transaction, so
// an exhausted allowance, a lost transition race, or a failed record insert
// leaves counter, booking, and record all untouched.
//
// The status guard admits only the states the cancellation rules allow; an
// already-cancelled booking is not matched, so the transition happens at
// most once. Returns ErrLimitReached when the allowance is exhausted and
// ErrStaleState when the booking is no longer in a cancellable state.
func (r *FlightRequestRepository) Cancel(requestID uuid.UUID, record *models.CancellationRecord, allowance *OperatorAllowance) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if allowance != nil {
		if _, err := consumeAllowance(tx, allowance.OperatorID, allowance.Limit); err != nil {
			return err
		}
	}

	result, err := tx.Exec(`
		UPDATE flight_requests
		SET status = 'cancelled',
			cancelled_at = NOW(),
			payment_deadline = NULL,
			updated_at = NOW()
		WHERE id = $1 AND status IN ('offer_accepted', 'confirmed')
	`, requestID)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrStaleState
	}

	if err := insertCancellationRecord(tx, record); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	return nil
}

// ExpireOverduePayments transitions every accepted-but-unpaid booking whose
// payment deadline has passed to payment_expired. Set-based and idempotent:
// a second sweep matches nothing, and confirmed bookings are never touched.
// Returns the ids of the bookings expired.
func (r *FlightRequestRepository) ExpireOverduePayments() ([]uuid.UUID, error) {
	query := `
		UPDATE flight_requests
		SET status = 'payment_expired',
			payment_deadline = NULL,
			updated_at = NOW()
		WHERE status = 'offer_accepted'
		  AND paid_at IS NULL
		  AND payment_deadline < NOW()
		RETURNING id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to expire overdue payments: %w", err)
	}

	return collectIDs(rows)
}

// CompleteDepartedRequests marks confirmed bookings whose trip has fully
// departed (return leg included for round trips) as completed. Returns the
// ids of the bookings completed.
func (r *FlightRequestRepository) CompleteDepartedRequests() ([]uuid.UUID, error) {
	query := `
		UPDATE flight_requests
		SET status = 'completed', updated_at = NOW()
		WHERE status = 'confirmed'
		  AND COALESCE(return_at, departure_at) < NOW()
		RETURNING id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to complete departed requests: %w", err)
	}

	return collectIDs(rows)
}

// collectIDs drains an id-only result set
func collectIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// MarkFullyRejectedRequests surfaces the rejected-by-all terminal state:
// a pending request with no offers where every operator known to the
// platform has rejected it. Returns the number of requests transitioned.
func (r *FlightRequestRepository) MarkFullyRejectedRequests() (int64, error) {
	query := `
		UPDATE flight_requests fr
		SET status = 'rejected_by_all', updated_at = NOW()
		WHERE fr.status = 'pending'
		  AND (SELECT COUNT(*) FROM request_rejections rr WHERE rr.request_id = fr.id) > 0
		  AND (SELECT COUNT(*) FROM request_rejections rr WHERE rr.request_id = fr.id) >= (
			SELECT COUNT(DISTINCT operator_id) FROM (
				SELECT operator_id FROM offers
				UNION
				SELECT operator_id FROM request_rejections
			) ops
		  )
	`

	result, err := r.db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("failed to mark fully rejected requests: %w", err)
	}

	return result.RowsAffected()
}

// generateBookingNumber derives the human-readable booking reference from
// the request id
func generateBookingNumber(id uuid.UUID) string {
	short := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))[:8]
	return "JET-" + short
}

// scanRequest scans a single flight request
func (r *FlightRequestRepository) scanRequest(row scanner) (*models.FlightRequest, error) {
	fr := &models.FlightRequest{}
	var returnAt sql.NullTime
	var acceptedOfferID sql.NullString
	var paymentDeadline sql.NullTime
	var paidAt sql.NullTime
	var paymentMethod sql.NullString
	var transactionID sql.NullString
	var cancelledAt sql.NullTime

	err := row.Scan(
		&fr.ID, &fr.BookingNumber, &fr.CustomerID, &fr.CustomerContact,
		&fr.Origin, &fr.Destination, &fr.TripType, &fr.DepartureAt, &returnAt,
		&fr.PassengerCount, &fr.DiscountRequest, &fr.MembershipTier, &fr.Status,
		&acceptedOfferID, &paymentDeadline,
		&paidAt, &paymentMethod, &transactionID, &cancelledAt,
		&fr.CreatedAt, &fr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if returnAt.Valid {
		fr.ReturnAt = &returnAt.Time
	}
	if acceptedOfferID.Valid {
		id, err := uuid.Parse(acceptedOfferID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid accepted_offer_id: %w", err)
		}
		fr.AcceptedOfferID = &id
	}
	if paymentDeadline.Valid {
		fr.PaymentDeadline = &paymentDeadline.Time
	}
	if paidAt.Valid {
		fr.PaidAt = &paidAt.Time
	}
	if paymentMethod.Valid {
		fr.PaymentMethod = &paymentMethod.String
	}
	if transactionID.Valid {
		fr.TransactionID = &transactionID.String
	}
	if cancelledAt.Valid {
		fr.CancelledAt = &cancelledAt.Time
	}

	return fr, nil
}

// scanRequests scans multiple flight requests from rows
func (r *FlightRequestRepository) scanRequests(rows *sql.Rows) ([]models.FlightRequest, error) {
	requests := []models.FlightRequest{}

	for rows.Next() {
		fr, err := r.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *fr)
	}

	return requests, rows.Err()
}
