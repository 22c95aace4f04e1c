package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jetlink/charter-booking-backend/internal/middleware"
	"github.com/jetlink/charter-booking-backend/internal/models"
	"github.com/jetlink/charter-booking-backend/internal/services"
	"github.com/jetlink/charter-booking-backend/internal/utils"
)

// CancellationHandler handles booking cancellation
type CancellationHandler struct {
	cancellation *services.CancellationService
	audit        *services.AuditService
}

// NewCancellationHandler creates a new CancellationHandler
func NewCancellationHandler(cancellation *services.CancellationService, audit *services.AuditService) *CancellationHandler {
	return &CancellationHandler{
		cancellation: cancellation,
		audit:        audit,
	}
}

// CancelBooking cancels a booking before departure
// @Summary Cancel a booking
// @Description Cancel before departure. Paid bookings incur the time-based penalty; unpaid bookings cancel free.
// @Tags Cancellations
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body models.CancelBookingInput false "Cancellation reason"
// @Success 200 {object} models.CancellationRecord "Cancellation record"
// @Failure 409 {object} map[string]interface{} "Not cancellable in current state"
// @Failure 410 {object} map[string]interface{} "Departure has passed"
// @Failure 429 {object} map[string]interface{} "Operator cancellation limit reached"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/cancel [post]
func (h *CancellationHandler) CancelBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requestID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var input models.CancelBookingInput
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	initiator := models.InitiatorCustomer
	if userCtx.HasRole(middleware.RoleOperator) {
		initiator = models.InitiatorOperator
	}

	record, err := h.cancellation.CancelBooking(c.Request.Context(), requestID, userCtx.UserID, initiator, input.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Record(requestID, &userCtx.UserID, models.BookingEventCancelled,
		utils.GetRealIP(c), utils.GetUserAgent(c), models.JSONB{
			"initiator":      initiator,
			"penalty_amount": record.PenaltyAmount,
			"refund_amount":  record.RefundAmount,
		})

	c.JSON(http.StatusOK, record)
}

// GetCancellationRecord returns the cancellation record for a booking
// @Summary Get a booking's cancellation record
// @Tags Cancellations
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.CancellationRecord
// @Failure 404 {object} map[string]interface{} "No cancellation record"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/cancellation [get]
func (h *CancellationHandler) GetCancellationRecord(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requestID, ok := parseIDParam(c)
	if !ok {
		return
	}

	record, err := h.cancellation.GetCancellationRecord(c.Request.Context(), requestID, userCtx.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}
