package models

import (
	"time"

	"github.com/google/uuid"
)

// CancellationInitiator identifies which party cancelled a booking
type CancellationInitiator string

const (
	InitiatorCustomer CancellationInitiator = "customer"
	InitiatorOperator CancellationInitiator = "operator"
)

// CancellationRecord is the immutable record produced when a booking is
// cancelled. Written exactly once per booking; hours_before_departure is
// captured at cancellation time and never recomputed.
type CancellationRecord struct {
	ID                   uuid.UUID             `json:"id" db:"id"`
	RequestID            uuid.UUID             `json:"request_id" db:"request_id"`
	Initiator            CancellationInitiator `json:"initiator" db:"initiator"`
	Reason               *string               `json:"reason,omitempty" db:"reason"`
	PenaltyPercentage    float64               `json:"penalty_percentage" db:"penalty_percentage"`
	RefundPercentage     float64               `json:"refund_percentage" db:"refund_percentage"`
	PenaltyAmount        float64               `json:"penalty_amount" db:"penalty_amount"`
	RefundAmount         float64               `json:"refund_amount" db:"refund_amount"`
	OriginalAmount       float64               `json:"original_amount" db:"original_amount"`
	HoursBeforeDeparture float64               `json:"hours_before_departure" db:"hours_before_departure"`
	CancellationDate     time.Time             `json:"cancellation_date" db:"cancellation_date"`
}

// CancelBookingInput represents a cancellation request
type CancelBookingInput struct {
	Reason *string `json:"reason,omitempty"`
}

// OperatorStats tracks per-operator counters. CancellationCount increments
// only on successful cancellation of a paid booking initiated by the operator.
type OperatorStats struct {
	OperatorID        uuid.UUID `json:"operator_id" db:"operator_id"`
	CancellationCount int       `json:"cancellation_count" db:"cancellation_count"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// PenaltyPercentages returns the penalty and refund percentages for
// cancelling a paid booking at the given time before departure.
//
// Penalty policy:
//   - More than 72 hours before departure: 25% penalty, 75% refund
//   - 48 to 72 hours before: 35% penalty, 65% refund
//   - 24 to 48 hours before: 50% penalty, 50% refund
//   - Less than 24 hours before: 100% penalty, no refund
//
// Pure function of (now, departure); brackets include their upper bound,
// so exactly 72h before departure falls in the 48-72h tier.
func PenaltyPercentages(now, departure time.Time) (penaltyPct, refundPct float64) {
	hoursBefore := departure.Sub(now).Hours()

	switch {
	case hoursBefore > 72:
		return 25, 75
	case hoursBefore > 48:
		return 35, 65
	case hoursBefore > 24:
		return 50, 50
	default:
		return 100, 0
	}
}

// NewCancellationRecord builds the cancellation record for a paid booking.
// originalAmount is the accepted offer's final (discounted) price.
func NewCancellationRecord(
	requestID uuid.UUID,
	initiator CancellationInitiator,
	reason *string,
	originalAmount float64,
	now, departure time.Time,
) *CancellationRecord {
	penaltyPct, refundPct := PenaltyPercentages(now, departure)

	return &CancellationRecord{
		RequestID:            requestID,
		Initiator:            initiator,
		Reason:               reason,
		PenaltyPercentage:    penaltyPct,
		RefundPercentage:     refundPct,
		PenaltyAmount:        originalAmount * penaltyPct / 100,
		RefundAmount:         originalAmount * refundPct / 100,
		OriginalAmount:       originalAmount,
		HoursBeforeDeparture: departure.Sub(now).Hours(),
		CancellationDate:     now,
	}
}

// NewUnpaidCancellationRecord builds the cancellation record for an unpaid
// booking. The penalty table does not apply: both penalty and refund are
// zero and no cancellation-rights counter is consumed.
func NewUnpaidCancellationRecord(
	requestID uuid.UUID,
	initiator CancellationInitiator,
	reason *string,
	now, departure time.Time,
) *CancellationRecord {
	return &CancellationRecord{
		RequestID:            requestID,
		Initiator:            initiator,
		Reason:               reason,
		HoursBeforeDeparture: departure.Sub(now).Hours(),
		CancellationDate:     now,
	}
}
