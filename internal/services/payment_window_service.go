package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jetlink/charter-booking-backend/internal/metrics"
	"github.com/jetlink/charter-booking-backend/internal/models"
)

const sweepLockKey = "payment_sweep:lock"

// PaymentExpiryStore is the persistence the payment window sweep depends on.
type PaymentExpiryStore interface {
	ExpireOverduePayments() ([]uuid.UUID, error)
}

// PaymentWindowService handles background expiration of accepted bookings
// whose payment deadline has passed. The sweep is set-based and idempotent,
// so overlapping runs are harmless; a short redis lock still keeps multiple
// instances from sweeping at the same moment.
type PaymentWindowService struct {
	requests PaymentExpiryStore
	audit    *AuditService
	cache    *redis.Client
	logger   *logrus.Logger
	stopCh   chan struct{}
	interval time.Duration
}

// NewPaymentWindowService creates a new payment window service
func NewPaymentWindowService(
	requests PaymentExpiryStore,
	audit *AuditService,
	cache *redis.Client,
	interval time.Duration,
	logger *logrus.Logger,
) *PaymentWindowService {
	return &PaymentWindowService{
		requests: requests,
		audit:    audit,
		cache:    cache,
		logger:   logger,
		stopCh:   make(chan struct{}),
		interval: interval,
	}
}

// Start begins the background payment window sweep
func (s *PaymentWindowService) Start() {
	s.logger.WithField("interval", s.interval).Info("Starting payment window sweep")
	go s.run()
}

// Stop stops the background sweep
func (s *PaymentWindowService) Stop() {
	s.logger.Info("Stopping payment window sweep")
	close(s.stopCh)
}

func (s *PaymentWindowService) run() {
	// Run immediately on start
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			s.logger.Info("Payment window sweep stopped")
			return
		}
	}
}

// sweep runs a single expiration pass. A failed pass is logged and
// retried on the next tick; the guarded UPDATE means a booking is only
// ever expired once regardless of how many passes see it.
func (s *PaymentWindowService) sweep() {
	if !s.acquireLock() {
		return
	}

	expired, err := s.requests.ExpireOverduePayments()
	if err != nil {
		metrics.SweepErrors.Inc()
		s.logger.WithError(err).Error("Payment window sweep failed")
		return
	}

	if len(expired) > 0 {
		metrics.PaymentsExpired.Add(float64(len(expired)))
		for _, id := range expired {
			s.audit.Record(id, nil, models.BookingEventPaymentExpired, "", "", nil)
		}
		s.logger.WithField("count", len(expired)).Info("Expired overdue payment windows")
	}
}

// acquireLock takes the cross-instance sweep lock. The lock expires on its
// own after the sweep interval, so a crashed holder never wedges the sweep.
// Without redis the sweep runs unlocked; idempotence makes that safe.
func (s *PaymentWindowService) acquireLock() bool {
	if s.cache == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := s.cache.SetNX(ctx, sweepLockKey, time.Now().UnixNano(), s.interval).Result()
	if err != nil {
		s.logger.WithError(err).Warn("Sweep lock unavailable, proceeding unlocked")
		return true
	}

	return ok
}

// RunOnce runs a single sweep cycle (useful for testing or manual trigger)
func (s *PaymentWindowService) RunOnce() {
	s.sweep()
}
