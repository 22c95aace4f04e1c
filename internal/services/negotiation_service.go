package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jetlink/charter-booking-backend/internal/database"
	"github.com/jetlink/charter-booking-backend/internal/metrics"
	"github.com/jetlink/charter-booking-backend/internal/models"
	"github.com/jetlink/charter-booking-backend/pkg/validator"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	visibleRequestsGenKey = "flight_requests:gen"
	visibleRequestsTTL    = 5 * time.Minute
)

// FlightRequestStore is the flight request persistence the negotiation
// service depends on.
type FlightRequestStore interface {
	Create(fr *models.FlightRequest) error
	GetByID(requestID uuid.UUID) (*models.FlightRequest, error)
	GetByCustomerID(customerID uuid.UUID) ([]models.FlightRequest, error)
	GetVisibleToOperator(operatorID uuid.UUID) ([]models.FlightRequest, error)
	AcceptOffer(requestID, offerID uuid.UUID, paymentDeadline time.Time) error
	RecordPayment(requestID uuid.UUID, method, transactionID string) error
}

// OfferStore is the offer persistence the negotiation service depends on.
type OfferStore interface {
	Create(offer *models.Offer) error
	GetByID(offerID uuid.UUID) (*models.Offer, error)
	GetByRequestID(requestID uuid.UUID) ([]models.Offer, error)
}

// RejectionStore is the per-request rejection set persistence.
type RejectionStore interface {
	Add(requestID, operatorID uuid.UUID) error
	IsRejected(requestID, operatorID uuid.UUID) (bool, error)
	ListOperators(requestID uuid.UUID) ([]uuid.UUID, error)
}

// NegotiationService drives the request/offer negotiation: customers post
// flight requests, operators answer with offers or rejections, and the
// customer accepts exactly one offer and pays within the payment window.
type NegotiationService struct {
	requests   FlightRequestStore
	offers     OfferStore
	rejections RejectionStore

	cache          *redis.Client
	paymentWindow  time.Duration
	phoneValidator *validator.PhoneValidator
	logger         *logrus.Logger

	now func() time.Time
}

// NewNegotiationService creates a new NegotiationService
func NewNegotiationService(
	requests FlightRequestStore,
	offers OfferStore,
	rejections RejectionStore,
	cache *redis.Client,
	paymentWindow time.Duration,
	logger *logrus.Logger,
) *NegotiationService {
	return &NegotiationService{
		requests:       requests,
		offers:         offers,
		rejections:     rejections,
		cache:          cache,
		paymentWindow:  paymentWindow,
		phoneValidator: validator.NewPhoneValidator(),
		logger:         logger,
		now:            time.Now,
	}
}

// CreateRequest creates a flight request on behalf of a customer. The
// customer's membership tier is captured on the booking at creation time,
// so later tier changes never affect discounts already promised.
func (s *NegotiationService) CreateRequest(
	ctx context.Context,
	customerID uuid.UUID,
	tier models.MembershipTier,
	input models.CreateFlightRequestInput,
) (*models.FlightRequest, error) {
	if err := input.Validate(s.now()); err != nil {
		return nil, validationError(err)
	}

	contact, err := s.phoneValidator.Validate(input.CustomerContact)
	if err != nil {
		return nil, validationError(err)
	}
	input.CustomerContact = contact

	if tier == "" {
		tier = models.TierNone
	}

	fr := &models.FlightRequest{
		CustomerID:      customerID,
		CustomerContact: input.CustomerContact,
		Origin:          input.Origin,
		Destination:     input.Destination,
		TripType:        input.TripType,
		DepartureAt:     input.DepartureAt,
		ReturnAt:        input.ReturnAt,
		PassengerCount:  input.PassengerCount,
		DiscountRequest: input.DiscountRequest,
		MembershipTier:  tier,
	}

	if err := s.requests.Create(fr); err != nil {
		return nil, err
	}

	s.invalidateVisibleCache(ctx)
	metrics.RequestsCreated.Inc()

	s.logger.WithFields(logrus.Fields{
		"request_id":     fr.ID,
		"booking_number": fr.BookingNumber,
		"customer_id":    customerID,
		"trip_type":      fr.TripType,
	}).Info("Flight request created")

	return fr, nil
}

// GetRequestForCustomer returns a customer's booking with its offers and
// rejection set loaded.
func (s *NegotiationService) GetRequestForCustomer(ctx context.Context, requestID, customerID uuid.UUID) (*models.FlightRequest, error) {
	fr, err := s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}
	if fr.CustomerID != customerID {
		return nil, ErrUnauthorized
	}

	return s.hydrate(fr)
}

// GetCustomerRequests returns all of a customer's bookings, newest first.
func (s *NegotiationService) GetCustomerRequests(ctx context.Context, customerID uuid.UUID) ([]models.FlightRequest, error) {
	return s.requests.GetByCustomerID(customerID)
}

// GetVisibleRequests returns the flight requests an operator may see:
// every request whose rejection set does not contain them. Results are
// cached per operator; any negotiation write invalidates the cache by
// bumping a generation counter.
func (s *NegotiationService) GetVisibleRequests(ctx context.Context, operatorID uuid.UUID) ([]models.FlightRequest, error) {
	key := s.visibleCacheKey(ctx, operatorID)

	if key != "" {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			var requests []models.FlightRequest
			if jsonErr := unmarshalJSON(cached, &requests); jsonErr == nil {
				return requests, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.WithError(err).Warn("Visible request cache read failed")
		}
	}

	requests, err := s.requests.GetVisibleToOperator(operatorID)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if payload, err := marshalJSON(requests); err == nil {
			if err := s.cache.Set(ctx, key, payload, visibleRequestsTTL).Err(); err != nil {
				s.logger.WithError(err).Warn("Visible request cache write failed")
			}
		}
	}

	return requests, nil
}

// SubmitOffer records an operator's priced offer against a request. The
// first offer moves the request from pending to offers_received. When the
// booking asked for a discount, the customer's tier discount is applied to
// the operator's base price before the offer is stored.
func (s *NegotiationService) SubmitOffer(
	ctx context.Context,
	requestID, operatorID uuid.UUID,
	operatorName string,
	input models.SubmitOfferInput,
) (*models.Offer, error) {
	if err := input.Validate(); err != nil {
		return nil, validationError(err)
	}

	fr, err := s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}

	rejected, err := s.rejections.IsRejected(requestID, operatorID)
	if err != nil {
		return nil, err
	}
	if rejected {
		return nil, ErrUnauthorized
	}

	if !fr.AcceptsOffers() {
		return nil, ErrInvalidState
	}

	now := s.now()
	offer := &models.Offer{
		RequestID:    requestID,
		OperatorID:   operatorID,
		OperatorName: operatorName,
		Aircraft:     input.Aircraft,
		BasePrice:    input.BasePrice,
		FinalPrice:   input.BasePrice,
		Message:      input.Message,
		OfferDate:    now,
		ExpiresAt:    now.Add(models.OfferValidity),
	}

	if fr.DiscountRequest {
		offer.ApplyDiscount(fr.MembershipTier.DiscountPercentage())
	}

	if err := s.offers.Create(offer); err != nil {
		if errors.Is(err, database.ErrStaleState) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	s.invalidateVisibleCache(ctx)
	metrics.OffersSubmitted.Inc()

	s.logger.WithFields(logrus.Fields{
		"request_id":  requestID,
		"offer_id":    offer.ID,
		"operator_id": operatorID,
		"final_price": offer.FinalPrice,
	}).Info("Offer submitted")

	return offer, nil
}

// RejectRequest adds the operator to the request's rejection set. The set
// is append-only and per-operator: this operator stops seeing the request
// and can no longer offer against it or have an earlier offer accepted,
// while every other operator is unaffected. Rejecting never alters the
// request's status, works in any status, and rejecting twice is a no-op.
func (s *NegotiationService) RejectRequest(ctx context.Context, requestID, operatorID uuid.UUID) error {
	if _, err := s.loadRequest(requestID); err != nil {
		return err
	}

	if err := s.rejections.Add(requestID, operatorID); err != nil {
		return err
	}

	s.invalidateVisibleCache(ctx)

	s.logger.WithFields(logrus.Fields{
		"request_id":  requestID,
		"operator_id": operatorID,
	}).Info("Request rejected by operator")

	return nil
}

// AcceptOffer accepts exactly one offer on behalf of the customer and opens
// the payment window. The accepted offer must come from an operator not in
// the rejection set and must still be within its validity period; every
// competing offer is rejected in the same transaction.
func (s *NegotiationService) AcceptOffer(ctx context.Context, requestID, offerID, customerID uuid.UUID) (*models.FlightRequest, error) {
	fr, err := s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}
	if fr.CustomerID != customerID {
		return nil, ErrUnauthorized
	}
	if fr.Status != models.RequestStatusOffersReceived {
		return nil, ErrInvalidState
	}

	offer, err := s.offers.GetByID(offerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if offer.RequestID != requestID {
		return nil, ErrNotFound
	}
	if offer.Status != models.OfferStatusSent {
		return nil, ErrInvalidState
	}

	// An offer left behind by an operator who has since rejected the
	// request can no longer win.
	rejected, err := s.rejections.IsRejected(requestID, offer.OperatorID)
	if err != nil {
		return nil, err
	}
	if rejected {
		return nil, ErrInvalidState
	}

	now := s.now()
	if offer.IsExpired(now) {
		return nil, ErrDeadlinePassed
	}

	deadline := now.Add(s.paymentWindow)
	if err := s.requests.AcceptOffer(requestID, offerID, deadline); err != nil {
		if errors.Is(err, database.ErrStaleState) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	s.invalidateVisibleCache(ctx)
	metrics.OffersAccepted.Inc()

	s.logger.WithFields(logrus.Fields{
		"request_id":       requestID,
		"offer_id":         offerID,
		"payment_deadline": deadline,
	}).Info("Offer accepted, payment window open")

	fr, err = s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(fr)
}

// RecordPayment records a payment made within the payment window and
// confirms the booking. Payments after the deadline are refused even if
// the expiry sweep has not run yet.
func (s *NegotiationService) RecordPayment(ctx context.Context, requestID, customerID uuid.UUID, input models.RecordPaymentInput) (*models.FlightRequest, error) {
	if input.PaymentMethod == "" || input.TransactionID == "" {
		return nil, validationError(errors.New("payment_method and transaction_id are required"))
	}

	fr, err := s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}
	if fr.CustomerID != customerID {
		return nil, ErrUnauthorized
	}

	now := s.now()
	if fr.Status == models.RequestStatusPaymentExpired {
		return nil, ErrDeadlinePassed
	}
	if fr.Status != models.RequestStatusOfferAccepted {
		return nil, ErrInvalidState
	}
	if fr.PaymentDeadline == nil || now.After(*fr.PaymentDeadline) {
		return nil, ErrDeadlinePassed
	}

	if err := s.requests.RecordPayment(requestID, input.PaymentMethod, input.TransactionID); err != nil {
		if errors.Is(err, database.ErrStaleState) {
			// Lost a race with the expiry sweep or a concurrent payment.
			return nil, ErrDeadlinePassed
		}
		return nil, err
	}

	metrics.PaymentsRecorded.Inc()

	s.logger.WithFields(logrus.Fields{
		"request_id":     requestID,
		"payment_method": input.PaymentMethod,
	}).Info("Payment recorded, booking confirmed")

	fr, err = s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(fr)
}

// GetOffersForRequest returns the offers on a customer's booking in
// arrival order.
func (s *NegotiationService) GetOffersForRequest(ctx context.Context, requestID, customerID uuid.UUID) ([]models.Offer, error) {
	fr, err := s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}
	if fr.CustomerID != customerID {
		return nil, ErrUnauthorized
	}

	return s.offers.GetByRequestID(requestID)
}

// loadRequest fetches a request, translating the not-found case
func (s *NegotiationService) loadRequest(requestID uuid.UUID) (*models.FlightRequest, error) {
	fr, err := s.requests.GetByID(requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fr, nil
}

// hydrate loads the request's offers and rejection set
func (s *NegotiationService) hydrate(fr *models.FlightRequest) (*models.FlightRequest, error) {
	offers, err := s.offers.GetByRequestID(fr.ID)
	if err != nil {
		return nil, err
	}
	fr.Offers = offers

	rejectedBy, err := s.rejections.ListOperators(fr.ID)
	if err != nil {
		return nil, err
	}
	fr.RejectedByOperators = rejectedBy

	return fr, nil
}

// visibleCacheKey builds the per-operator cache key for the current cache
// generation. Returns "" when the generation cannot be read; callers then
// skip the cache for this call.
func (s *NegotiationService) visibleCacheKey(ctx context.Context, operatorID uuid.UUID) string {
	if s.cache == nil {
		return ""
	}

	gen, err := s.cache.Get(ctx, visibleRequestsGenKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			gen = "0"
		} else {
			s.logger.WithError(err).Warn("Cache generation read failed")
			return ""
		}
	}

	return fmt.Sprintf("flight_requests:visible:%s:g%s", operatorID, gen)
}

// invalidateVisibleCache bumps the cache generation so every operator's
// visible-request list is rebuilt on next read. Cache failures are logged
// and ignored; the database stays the source of truth.
func (s *NegotiationService) invalidateVisibleCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, visibleRequestsGenKey).Err(); err != nil {
		s.logger.WithError(err).Warn("Visible request cache invalidation failed")
	}
}
