package services

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jetlink/charter-booking-backend/internal/models"
	"github.com/jetlink/charter-booking-backend/internal/utils"
)

// BookingAuditStore persists the append-only booking audit trail.
type BookingAuditStore interface {
	Create(entry *models.BookingAudit) error
	GetByRequestID(requestID uuid.UUID) ([]models.BookingAudit, error)
}

// AuditService records booking lifecycle events. Audit writes are
// best-effort: a failed write is logged but never fails the operation
// that produced it.
type AuditService struct {
	store  BookingAuditStore
	logger *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(store BookingAuditStore, logger *logrus.Logger) *AuditService {
	return &AuditService{store: store, logger: logger}
}

// Record appends a lifecycle event for a booking. actorID is nil for
// system-initiated events like payment expiry.
func (s *AuditService) Record(
	requestID uuid.UUID,
	actorID *uuid.UUID,
	event models.BookingEventType,
	ipAddress, userAgent string,
	details models.JSONB,
) {
	if details == nil {
		details = models.JSONB{}
	}
	if userAgent != "" {
		details["device_info"] = utils.ParseUserAgent(userAgent)
	}

	entry := &models.BookingAudit{
		RequestID: requestID,
		ActorID:   actorID,
		EventType: event,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Details:   details,
	}

	if err := s.store.Create(entry); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": requestID,
			"event_type": event,
		}).Error("Failed to write audit entry")
	}
}

// GetTrail returns the booking's audit trail in event order
func (s *AuditService) GetTrail(requestID uuid.UUID) ([]models.BookingAudit, error) {
	return s.store.GetByRequestID(requestID)
}
