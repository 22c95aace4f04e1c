package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BookingEventType represents the type of booking lifecycle event
type BookingEventType string

const (
	BookingEventRequestCreated  BookingEventType = "request_created"
	BookingEventOfferSubmitted  BookingEventType = "offer_submitted"
	BookingEventRequestRejected BookingEventType = "request_rejected"
	BookingEventOfferAccepted   BookingEventType = "offer_accepted"
	BookingEventPaymentRecorded BookingEventType = "payment_recorded"
	BookingEventPaymentExpired  BookingEventType = "payment_expired"
	BookingEventCancelled       BookingEventType = "booking_cancelled"
	BookingEventCompleted       BookingEventType = "booking_completed"
)

// JSONB is a helper type for Postgres jsonb columns
type JSONB map[string]interface{}

// Value implements driver.Valuer
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type for JSONB: %T", value)
	}
	return json.Unmarshal(b, j)
}

// BookingAudit represents an immutable audit log entry for a booking
// lifecycle event
type BookingAudit struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	RequestID uuid.UUID        `json:"request_id" db:"request_id"`
	ActorID   *uuid.UUID       `json:"actor_id,omitempty" db:"actor_id"`
	EventType BookingEventType `json:"event_type" db:"event_type"`
	IPAddress string           `json:"ip_address" db:"ip_address"`
	UserAgent string           `json:"user_agent" db:"user_agent"`
	Details   JSONB            `json:"details,omitempty" db:"details"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
