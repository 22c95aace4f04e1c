package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jetlink/charter-booking-backend/internal/middleware"
	"github.com/jetlink/charter-booking-backend/internal/models"
	"github.com/jetlink/charter-booking-backend/internal/services"
	"github.com/jetlink/charter-booking-backend/internal/utils"
)

// BookingHandler handles customer-side booking operations
type BookingHandler struct {
	negotiation *services.NegotiationService
	audit       *services.AuditService
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(negotiation *services.NegotiationService, audit *services.AuditService) *BookingHandler {
	return &BookingHandler{
		negotiation: negotiation,
		audit:       audit,
	}
}

// CreateFlightRequest creates a new flight request
// @Summary Create a flight request
// @Description Create a charter flight request that operators can offer against
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateFlightRequestInput true "Flight request"
// @Success 201 {object} models.FlightRequest "Flight request created"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Security BearerAuth
// @Router /api/v1/bookings [post]
func (h *BookingHandler) CreateFlightRequest(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var input models.CreateFlightRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	fr, err := h.negotiation.CreateRequest(c.Request.Context(), userCtx.UserID, userCtx.MembershipTier, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Record(fr.ID, &userCtx.UserID, models.BookingEventRequestCreated,
		utils.GetRealIP(c), utils.GetUserAgent(c), models.JSONB{
			"booking_number": fr.BookingNumber,
			"trip_type":      fr.TripType,
		})

	c.JSON(http.StatusCreated, fr)
}

// GetMyRequests lists the customer's flight requests
// @Summary List my flight requests
// @Tags Bookings
// @Produce json
// @Success 200 {array} models.FlightRequest
// @Security BearerAuth
// @Router /api/v1/bookings/my [get]
func (h *BookingHandler) GetMyRequests(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requests, err := h.negotiation.GetCustomerRequests(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": requests, "count": len(requests)})
}

// GetRequest returns one of the customer's bookings with offers and
// rejection set
// @Summary Get a flight request
// @Tags Bookings
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.FlightRequest
// @Failure 404 {object} map[string]interface{} "Not found"
// @Security BearerAuth
// @Router /api/v1/bookings/{id} [get]
func (h *BookingHandler) GetRequest(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requestID, ok := parseIDParam(c)
	if !ok {
		return
	}

	fr, err := h.negotiation.GetRequestForCustomer(c.Request.Context(), requestID, userCtx.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, fr)
}

// GetOffers lists the offers on a customer's booking
// @Summary List offers on a flight request
// @Tags Bookings
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {array} models.Offer
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/offers [get]
func (h *BookingHandler) GetOffers(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requestID, ok := parseIDParam(c)
	if !ok {
		return
	}

	offers, err := h.negotiation.GetOffersForRequest(c.Request.Context(), requestID, userCtx.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"offers": offers, "count": len(offers)})
}

// AcceptOffer accepts one offer and opens the payment window
// @Summary Accept an offer
// @Description Accept exactly one offer; all competing offers are rejected and a payment deadline is set
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body models.AcceptOfferInput true "Offer to accept"
// @Success 200 {object} models.FlightRequest "Offer accepted"
// @Failure 409 {object} map[string]interface{} "Not in an acceptable state"
// @Failure 410 {object} map[string]interface{} "Offer validity lapsed"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/accept [post]
func (h *BookingHandler) AcceptOffer(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requestID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var input models.AcceptOfferInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	fr, err := h.negotiation.AcceptOffer(c.Request.Context(), requestID, input.OfferID, userCtx.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Record(requestID, &userCtx.UserID, models.BookingEventOfferAccepted,
		utils.GetRealIP(c), utils.GetUserAgent(c), models.JSONB{
			"offer_id":         input.OfferID,
			"payment_deadline": fr.PaymentDeadline,
		})

	c.JSON(http.StatusOK, fr)
}

// RecordPayment records payment for an accepted booking
// @Summary Record payment
// @Description Record payment within the payment window; confirms the booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body models.RecordPaymentInput true "Payment details"
// @Success 200 {object} models.FlightRequest "Booking confirmed"
// @Failure 410 {object} map[string]interface{} "Payment deadline passed"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/payment [post]
func (h *BookingHandler) RecordPayment(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requestID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var input models.RecordPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	fr, err := h.negotiation.RecordPayment(c.Request.Context(), requestID, userCtx.UserID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Record(requestID, &userCtx.UserID, models.BookingEventPaymentRecorded,
		utils.GetRealIP(c), utils.GetUserAgent(c), models.JSONB{
			"payment_method": input.PaymentMethod,
			"transaction_id": input.TransactionID,
		})

	c.JSON(http.StatusOK, fr)
}

// GetAuditTrail returns the lifecycle audit trail for a booking
// @Summary Get a booking's audit trail
// @Tags Bookings
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {array} models.BookingAudit
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/audit [get]
func (h *BookingHandler) GetAuditTrail(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requestID, ok := parseIDParam(c)
	if !ok {
		return
	}

	// Ownership check rides on the same lookup customers use elsewhere.
	if _, err := h.negotiation.GetRequestForCustomer(c.Request.Context(), requestID, userCtx.UserID); err != nil {
		respondServiceError(c, err)
		return
	}

	trail, err := h.audit.GetTrail(requestID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": trail, "count": len(trail)})
}

// parseIDParam parses the :id path parameter as a UUID
func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return uuid.Nil, false
	}
	return id, true
}
