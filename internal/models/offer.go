package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// OfferStatus represents the status of an operator's offer.
// Stored explicitly rather than derived from the parent booking's
// accepted offer, so a rejected offer stays rejected on its own row.
type OfferStatus string

const (
	OfferStatusSent     OfferStatus = "sent"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusRejected OfferStatus = "rejected"
)

// OfferValidity is how long a submitted offer remains acceptable
const OfferValidity = 24 * time.Hour

// Offer represents an operator's priced proposal against a flight request
type Offer struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	RequestID    uuid.UUID   `json:"request_id" db:"request_id"`
	OperatorID   uuid.UUID   `json:"operator_id" db:"operator_id"`
	OperatorName string      `json:"operator_name" db:"operator_name"`
	Aircraft     string      `json:"aircraft" db:"aircraft"`
	BasePrice    float64     `json:"base_price" db:"base_price"`
	DiscountPct  float64     `json:"discount_percentage" db:"discount_percentage"`
	DiscountAmt  float64     `json:"discount_amount" db:"discount_amount"`
	FinalPrice   float64     `json:"final_price" db:"final_price"`
	Message      *string     `json:"message,omitempty" db:"message"`
	Status       OfferStatus `json:"status" db:"status"`
	OfferDate    time.Time   `json:"offer_date" db:"offer_date"`
	ExpiresAt    time.Time   `json:"expires_at" db:"expires_at"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// SubmitOfferInput represents an operator's offer submission
type SubmitOfferInput struct {
	Aircraft  string  `json:"aircraft" binding:"required"`
	BasePrice float64 `json:"base_price" binding:"required"`
	Message   *string `json:"message,omitempty"`
}

// Validate validates the offer submission input
func (r *SubmitOfferInput) Validate() error {
	if r.Aircraft == "" {
		return errors.New("aircraft is required")
	}
	if r.BasePrice <= 0 {
		return errors.New("base_price must be positive")
	}
	return nil
}

// ApplyDiscount fills in the discount math for the offer. The operator's
// entered price is always the pre-discount base price; the discount comes
// from the parent booking's membership tier.
func (o *Offer) ApplyDiscount(pct float64) {
	o.DiscountPct = pct
	o.DiscountAmt = o.BasePrice * pct / 100
	o.FinalPrice = o.BasePrice - o.DiscountAmt
}

// IsExpired reports whether the offer's validity window has lapsed
func (o *Offer) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
