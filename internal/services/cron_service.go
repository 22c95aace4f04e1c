package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/jetlink/charter-booking-backend/internal/models"
)

// MaintenanceStore is the persistence the scheduled maintenance jobs
// depend on.
type MaintenanceStore interface {
	CompleteDepartedRequests() ([]uuid.UUID, error)
	MarkFullyRejectedRequests() (int64, error)
}

// CronService manages scheduled background jobs: completing departed
// bookings and surfacing requests every operator has rejected.
type CronService struct {
	cron     *cron.Cron
	requests MaintenanceStore
	audit    *AuditService
	logger   *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(requests MaintenanceStore, audit *AuditService, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:     cron.New(),
		requests: requests,
		audit:    audit,
		logger:   logger,
	}
}

// Start schedules and starts all cron jobs
func (s *CronService) Start() error {
	// Complete departed bookings daily at 2 AM.
	if _, err := s.cron.AddFunc("0 2 * * *", s.completeDepartedJob); err != nil {
		return fmt.Errorf("failed to schedule completion job: %w", err)
	}

	// Surface fully rejected requests hourly.
	if _, err := s.cron.AddFunc("@hourly", s.markFullyRejectedJob); err != nil {
		return fmt.Errorf("failed to schedule rejection sweep job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Cron service started")

	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) completeDepartedJob() {
	start := time.Now()

	completed, err := s.requests.CompleteDepartedRequests()
	if err != nil {
		s.logger.WithError(err).Error("Failed to complete departed bookings")
		return
	}

	if len(completed) > 0 {
		for _, id := range completed {
			s.audit.Record(id, nil, models.BookingEventCompleted, "", "", nil)
		}
		s.logger.WithFields(logrus.Fields{
			"count":    len(completed),
			"duration": time.Since(start),
		}).Info("Completed departed bookings")
	}
}

func (s *CronService) markFullyRejectedJob() {
	marked, err := s.requests.MarkFullyRejectedRequests()
	if err != nil {
		s.logger.WithError(err).Error("Failed to mark fully rejected requests")
		return
	}

	if marked > 0 {
		s.logger.WithField("count", marked).Info("Marked fully rejected requests")
	}
}

// RunCompletionNow runs the completion job immediately (manual trigger)
func (s *CronService) RunCompletionNow() {
	s.completeDepartedJob()
}

// RunRejectionSweepNow runs the rejection sweep immediately (manual trigger)
func (s *CronService) RunRejectionSweepNow() {
	s.markFullyRejectedJob()
}
