package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jetlink/charter-booking-backend/internal/database"
	"github.com/jetlink/charter-booking-backend/internal/metrics"
	"github.com/jetlink/charter-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// CancellableRequestStore is the flight request persistence the
// cancellation service depends on. Cancel transitions the booking, writes
// its cancellation record, and consumes an optional operator allowance in
// one transaction.
type CancellableRequestStore interface {
	GetByID(requestID uuid.UUID) (*models.FlightRequest, error)
	Cancel(requestID uuid.UUID, record *models.CancellationRecord, allowance *database.OperatorAllowance) error
}

// CancellationStore reads the immutable per-booking cancellation record.
type CancellationStore interface {
	GetByRequestID(requestID uuid.UUID) (*models.CancellationRecord, error)
}

// OperatorStatsStore reads per-operator cancellation counters.
type OperatorStatsStore interface {
	Get(operatorID uuid.UUID) (*models.OperatorStats, error)
}

// OfferLookup resolves the accepted offer when computing penalty amounts.
type OfferLookup interface {
	GetByID(offerID uuid.UUID) (*models.Offer, error)
}

// OperatorStatsView is an operator's cancellation standing: the raw
// counter plus the two independent thresholds derived from it. The
// booking-flow limit blocks further paid-booking cancellations; the
// higher invoice-access limit gates invoice and fleet-management access.
type OperatorStatsView struct {
	OperatorID            uuid.UUID `json:"operator_id"`
	CancellationCount     int       `json:"cancellation_count"`
	CancellationLimit     int       `json:"cancellation_limit"`
	CanCancelPaidBookings bool      `json:"can_cancel_paid_bookings"`
	InvoiceAccessLimit    int       `json:"invoice_access_limit"`
	HasInvoiceAccess      bool      `json:"has_invoice_access"`
}

// CancellationService handles booking cancellation: penalty computation
// for paid bookings, zero-penalty records for unpaid ones, and the
// operator cancellation allowance.
type CancellationService struct {
	requests      CancellableRequestStore
	offers        OfferLookup
	cancellations CancellationStore
	stats         OperatorStatsStore

	cancellationLimit  int
	invoiceAccessLimit int
	logger             *logrus.Logger

	now func() time.Time
}

// NewCancellationService creates a new CancellationService
func NewCancellationService(
	requests CancellableRequestStore,
	offers OfferLookup,
	cancellations CancellationStore,
	stats OperatorStatsStore,
	cancellationLimit int,
	invoiceAccessLimit int,
	logger *logrus.Logger,
) *CancellationService {
	return &CancellationService{
		requests:           requests,
		offers:             offers,
		cancellations:      cancellations,
		stats:              stats,
		cancellationLimit:  cancellationLimit,
		invoiceAccessLimit: invoiceAccessLimit,
		logger:             logger,
		now:                time.Now,
	}
}

// CancelBooking cancels a booking before departure and writes the
// cancellation record.
//
// Unpaid bookings cancel with zero penalty and zero refund; the penalty
// table applies only once payment has been made, computed over the
// accepted offer's final (discounted) price. An operator cancelling a
// paid booking consumes one unit of their cancellation allowance in the
// same transaction; when the allowance is exhausted the booking is left
// untouched.
func (s *CancellationService) CancelBooking(
	ctx context.Context,
	requestID, actorID uuid.UUID,
	initiator models.CancellationInitiator,
	reason *string,
) (*models.CancellationRecord, error) {
	fr, err := s.requests.GetByID(requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.authorize(fr, actorID, initiator); err != nil {
		return nil, err
	}

	now := s.now()
	if !fr.CanBeCancelled(now) {
		if !now.Before(fr.DepartureAt) {
			return nil, ErrDeadlinePassed
		}
		return nil, ErrInvalidState
	}

	paid := fr.IsPaid()

	var originalAmount float64
	if paid {
		if fr.AcceptedOfferID == nil {
			return nil, ErrInvalidState
		}
		offer, err := s.offers.GetByID(*fr.AcceptedOfferID)
		if err != nil {
			return nil, err
		}
		originalAmount = offer.FinalPrice
	}

	var record *models.CancellationRecord
	if paid {
		record = models.NewCancellationRecord(requestID, initiator, reason, originalAmount, now, fr.DepartureAt)
	} else {
		record = models.NewUnpaidCancellationRecord(requestID, initiator, reason, now, fr.DepartureAt)
	}

	// An operator cancelling a paid booking consumes allowance in the same
	// transaction as the transition and the record, so an over-limit
	// operator cannot cancel at all and a lost race leaves the counter
	// untouched.
	var allowance *database.OperatorAllowance
	if paid && initiator == models.InitiatorOperator {
		allowance = &database.OperatorAllowance{OperatorID: actorID, Limit: s.cancellationLimit}
	}

	if err := s.requests.Cancel(requestID, record, allowance); err != nil {
		if errors.Is(err, database.ErrLimitReached) {
			return nil, ErrCancellationLimitExceeded
		}
		if errors.Is(err, database.ErrStaleState) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	metrics.BookingsCancelled.WithLabelValues(string(initiator)).Inc()

	s.logger.WithFields(logrus.Fields{
		"request_id":     requestID,
		"initiator":      initiator,
		"paid":           paid,
		"penalty_amount": record.PenaltyAmount,
		"refund_amount":  record.RefundAmount,
	}).Info("Booking cancelled")

	return record, nil
}

// GetCancellationRecord returns the cancellation record for a booking the
// actor is a party to.
func (s *CancellationService) GetCancellationRecord(ctx context.Context, requestID, actorID uuid.UUID) (*models.CancellationRecord, error) {
	fr, err := s.requests.GetByID(requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if fr.CustomerID != actorID && !s.isAcceptedOperator(fr, actorID) {
		return nil, ErrUnauthorized
	}

	record, err := s.cancellations.GetByRequestID(requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return record, nil
}

// GetOperatorStats returns the operator's cancellation standing against
// both thresholds.
func (s *CancellationService) GetOperatorStats(ctx context.Context, operatorID uuid.UUID) (*OperatorStatsView, error) {
	stats, err := s.stats.Get(operatorID)
	if err != nil {
		return nil, err
	}

	return &OperatorStatsView{
		OperatorID:            operatorID,
		CancellationCount:     stats.CancellationCount,
		CancellationLimit:     s.cancellationLimit,
		CanCancelPaidBookings: stats.CancellationCount < s.cancellationLimit,
		InvoiceAccessLimit:    s.invoiceAccessLimit,
		HasInvoiceAccess:      stats.CancellationCount < s.invoiceAccessLimit,
	}, nil
}

// authorize checks that the actor is a party to the booking on the side
// they claim: the customer who owns it, or the operator whose offer was
// accepted.
func (s *CancellationService) authorize(fr *models.FlightRequest, actorID uuid.UUID, initiator models.CancellationInitiator) error {
	switch initiator {
	case models.InitiatorCustomer:
		if fr.CustomerID != actorID {
			return ErrUnauthorized
		}
	case models.InitiatorOperator:
		if !s.isAcceptedOperator(fr, actorID) {
			return ErrUnauthorized
		}
	default:
		return validationError(errors.New("invalid cancellation initiator"))
	}
	return nil
}

// isAcceptedOperator reports whether the actor is the operator behind the
// booking's accepted offer.
func (s *CancellationService) isAcceptedOperator(fr *models.FlightRequest, actorID uuid.UUID) bool {
	if fr.AcceptedOfferID == nil {
		return false
	}
	offer, err := s.offers.GetByID(*fr.AcceptedOfferID)
	if err != nil {
		return false
	}
	return offer.OperatorID == actorID
}
