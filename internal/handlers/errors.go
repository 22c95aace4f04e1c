package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jetlink/charter-booking-backend/internal/services"
)

// respondServiceError maps service-layer errors to HTTP responses. Every
// sentinel gets its own status and code so API clients can distinguish
// failure modes without parsing messages.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
			"code":    "VALIDATION_ERROR",
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "The requested resource was not found",
			"code":    "NOT_FOUND",
		})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "You are not a party to this booking",
			"code":    "NOT_BOOKING_PARTY",
		})
	case errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_state",
			"message": "The booking is not in a state that allows this operation",
			"code":    "INVALID_STATE",
		})
	case errors.Is(err, services.ErrDeadlinePassed):
		c.JSON(http.StatusGone, gin.H{
			"error":   "deadline_passed",
			"message": "The deadline for this operation has passed",
			"code":    "DEADLINE_PASSED",
		})
	case errors.Is(err, services.ErrCancellationLimitExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "cancellation_limit_exceeded",
			"message": "Operator cancellation limit has been reached",
			"code":    "CANCELLATION_LIMIT_EXCEEDED",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
			"code":    "INTERNAL_ERROR",
		})
	}
}
