package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jetlink/charter-booking-backend/internal/middleware"
	"github.com/jetlink/charter-booking-backend/internal/models"
	"github.com/jetlink/charter-booking-backend/internal/services"
	"github.com/jetlink/charter-booking-backend/internal/utils"
)

// OperatorHandler handles operator-side negotiation operations
type OperatorHandler struct {
	negotiation  *services.NegotiationService
	cancellation *services.CancellationService
	audit        *services.AuditService
}

// NewOperatorHandler creates a new OperatorHandler
func NewOperatorHandler(
	negotiation *services.NegotiationService,
	cancellation *services.CancellationService,
	audit *services.AuditService,
) *OperatorHandler {
	return &OperatorHandler{
		negotiation:  negotiation,
		cancellation: cancellation,
		audit:        audit,
	}
}

// GetOpenRequests lists the flight requests visible to this operator
// @Summary List open flight requests
// @Description Every request this operator has not rejected, regardless of status
// @Tags Operators
// @Produce json
// @Success 200 {array} models.FlightRequest
// @Security BearerAuth
// @Router /api/v1/bookings [get]
func (h *OperatorHandler) GetOpenRequests(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requests, err := h.negotiation.GetVisibleRequests(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": requests, "count": len(requests)})
}

// SubmitOffer submits a priced offer against a flight request
// @Summary Submit an offer
// @Description Submit a priced offer; tier discounts are applied when the booking requested one
// @Tags Operators
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body models.SubmitOfferInput true "Offer details"
// @Success 201 {object} models.Offer "Offer submitted"
// @Failure 403 {object} map[string]interface{} "Operator has rejected this request"
// @Failure 409 {object} map[string]interface{} "Request no longer taking offers"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/offers [post]
func (h *OperatorHandler) SubmitOffer(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requestID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var input models.SubmitOfferInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	offer, err := h.negotiation.SubmitOffer(c.Request.Context(), requestID, userCtx.UserID, userCtx.Name, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Record(requestID, &userCtx.UserID, models.BookingEventOfferSubmitted,
		utils.GetRealIP(c), utils.GetUserAgent(c), models.JSONB{
			"offer_id":    offer.ID,
			"final_price": offer.FinalPrice,
		})

	c.JSON(http.StatusCreated, offer)
}

// RejectRequest removes a flight request from this operator's view
// @Summary Reject a flight request
// @Description Adds this operator to the request's rejection set; other operators are unaffected
// @Tags Operators
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} map[string]interface{} "Request rejected"
// @Failure 409 {object} map[string]interface{} "Request no longer open"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/reject [post]
func (h *OperatorHandler) RejectRequest(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requestID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.negotiation.RejectRequest(c.Request.Context(), requestID, userCtx.UserID); err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Record(requestID, &userCtx.UserID, models.BookingEventRequestRejected,
		utils.GetRealIP(c), utils.GetUserAgent(c), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Request rejected"})
}

// GetStats returns this operator's cancellation standing
// @Summary Get operator cancellation stats
// @Description Cancellation count plus standing against the booking and invoice-access limits
// @Tags Operators
// @Produce json
// @Success 200 {object} services.OperatorStatsView
// @Security BearerAuth
// @Router /api/v1/operators/me/stats [get]
func (h *OperatorHandler) GetStats(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	stats, err := h.cancellation.GetOperatorStats(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
