package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestStatus represents the lifecycle status of a flight request
type RequestStatus string

const (
	RequestStatusPending        RequestStatus = "pending"
	RequestStatusOffersReceived RequestStatus = "offers_received"
	RequestStatusOfferAccepted  RequestStatus = "offer_accepted"
	RequestStatusConfirmed      RequestStatus = "confirmed"
	RequestStatusPaymentExpired RequestStatus = "payment_expired"
	RequestStatusCompleted      RequestStatus = "completed"
	RequestStatusCancelled      RequestStatus = "cancelled"
	RequestStatusRejectedByAll  RequestStatus = "rejected_by_all"
)

// TripType represents the trip type of a flight request
type TripType string

const (
	TripTypeOneWay    TripType = "one_way"
	TripTypeRoundTrip TripType = "round_trip"
)

// MembershipTier represents the customer's membership level, used for
// offer discounts
type MembershipTier string

const (
	TierNone     MembershipTier = "none"
	TierStandard MembershipTier = "standard"
	TierPremium  MembershipTier = "premium"
)

// DiscountPercentage returns the discount applied to offers on a
// discount-requested booking for this tier
func (t MembershipTier) DiscountPercentage() float64 {
	switch t {
	case TierStandard:
		return 5
	case TierPremium:
		return 10
	default:
		return 0
	}
}

// FlightRequest represents a customer's charter request and its negotiation state
type FlightRequest struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	BookingNumber   string         `json:"booking_number" db:"booking_number"`
	CustomerID      uuid.UUID      `json:"customer_id" db:"customer_id"`
	CustomerContact string         `json:"customer_contact" db:"customer_contact"`
	Origin          string         `json:"origin" db:"origin"`
	Destination     string         `json:"destination" db:"destination"`
	TripType        TripType       `json:"trip_type" db:"trip_type"`
	DepartureAt     time.Time      `json:"departure_at" db:"departure_at"`
	ReturnAt        *time.Time     `json:"return_at,omitempty" db:"return_at"`
	PassengerCount  int            `json:"passenger_count" db:"passenger_count"`
	DiscountRequest bool           `json:"discount_request" db:"discount_request"`
	MembershipTier  MembershipTier `json:"membership_tier" db:"membership_tier"`
	Status          RequestStatus  `json:"status" db:"status"`

	AcceptedOfferID *uuid.UUID `json:"accepted_offer_id,omitempty" db:"accepted_offer_id"`
	PaymentDeadline *time.Time `json:"payment_deadline,omitempty" db:"payment_deadline"`

	PaidAt        *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	PaymentMethod *string    `json:"payment_method,omitempty" db:"payment_method"`
	TransactionID *string    `json:"transaction_id,omitempty" db:"transaction_id"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`

	// Populated by the repository, not stored on the requests row itself.
	Offers              []Offer     `json:"offers,omitempty" db:"-"`
	RejectedByOperators []uuid.UUID `json:"rejected_by_operators,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateFlightRequestInput represents the request to create a flight request
type CreateFlightRequestInput struct {
	Origin          string     `json:"origin" binding:"required"`
	Destination     string     `json:"destination" binding:"required"`
	TripType        TripType   `json:"trip_type" binding:"required"`
	DepartureAt     time.Time  `json:"departure_at" binding:"required"`
	ReturnAt        *time.Time `json:"return_at,omitempty"`
	PassengerCount  int        `json:"passenger_count" binding:"required"`
	CustomerContact string     `json:"customer_contact" binding:"required"`
	DiscountRequest bool       `json:"discount_request"`
}

// AcceptOfferInput represents the request to accept an offer
type AcceptOfferInput struct {
	OfferID uuid.UUID `json:"offer_id" binding:"required"`
}

// RecordPaymentInput represents the request to record payment for a booking
type RecordPaymentInput struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
}

// Validate validates the create flight request input
func (r *CreateFlightRequestInput) Validate(now time.Time) error {
	if r.PassengerCount <= 0 {
		return errors.New("passenger_count must be at least 1")
	}

	if !r.DepartureAt.After(now) {
		return errors.New("departure_at must be in the future")
	}

	switch r.TripType {
	case TripTypeOneWay:
		if r.ReturnAt != nil {
			return errors.New("return_at is not allowed for one-way trips")
		}
	case TripTypeRoundTrip:
		if r.ReturnAt == nil {
			return errors.New("return_at is required for round trips")
		}
		if !r.ReturnAt.After(r.DepartureAt) {
			return errors.New("return_at must be after departure_at")
		}
	default:
		return fmt.Errorf("invalid trip_type: %s", r.TripType)
	}

	if r.Origin == "" || r.Destination == "" {
		return errors.New("origin and destination are required")
	}

	return nil
}

// IsPaid reports whether payment has been recorded for the booking.
// Payment facts are immutable once set; status is the source of truth.
func (fr *FlightRequest) IsPaid() bool {
	return fr.PaidAt != nil
}

// IsCancelled reports whether the booking has been cancelled
func (fr *FlightRequest) IsCancelled() bool {
	return fr.Status == RequestStatusCancelled
}

// AcceptsOffers reports whether operators may still submit offers
func (fr *FlightRequest) AcceptsOffers() bool {
	return fr.Status == RequestStatusPending || fr.Status == RequestStatusOffersReceived
}

// CanBeCancelled reports whether the booking may still be cancelled.
// Cancellation is allowed any time before departure while an offer is
// accepted or the booking is confirmed.
func (fr *FlightRequest) CanBeCancelled(now time.Time) bool {
	if !now.Before(fr.DepartureAt) {
		return false
	}
	return fr.Status == RequestStatusOfferAccepted || fr.Status == RequestStatusConfirmed
}

// AcceptedOffer returns the accepted offer from the loaded offer list, or nil
func (fr *FlightRequest) AcceptedOffer() *Offer {
	if fr.AcceptedOfferID == nil {
		return nil
	}
	for i := range fr.Offers {
		if fr.Offers[i].ID == *fr.AcceptedOfferID {
			return &fr.Offers[i]
		}
	}
	return nil
}
