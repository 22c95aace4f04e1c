package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the booking services. Handlers map each one
// to its own HTTP status, so callers can always tell the failure modes
// apart.
var (
	// ErrNotFound is returned when the referenced booking, offer, or
	// record does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized is returned when the actor is not permitted to
	// perform the operation on this booking.
	ErrUnauthorized = errors.New("not authorized for this booking")

	// ErrInvalidState is returned when the booking or offer is not in a
	// state that permits the operation.
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrDeadlinePassed is returned when a time window has lapsed: the
	// payment deadline, an offer's validity, or the departure time.
	ErrDeadlinePassed = errors.New("deadline has passed")

	// ErrCancellationLimitExceeded is returned when an operator has used
	// up their paid-booking cancellation allowance.
	ErrCancellationLimitExceeded = errors.New("operator cancellation limit exceeded")

	// ErrValidation marks input validation failures.
	ErrValidation = errors.New("validation failed")
)

// validationError wraps a field-level validation failure so handlers can
// match it with errors.Is(err, ErrValidation) while keeping the message.
func validationError(err error) error {
	return fmt.Errorf("%w: %s", ErrValidation, err.Error())
}
