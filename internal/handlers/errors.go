package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/railbook/train-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// respondError maps a service error onto an HTTP status and a stable error
// code. Anything outside the known taxonomy is a 500 with a generic body so
// internals never leak to clients.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var (
		notFound       *models.NotFoundError
		seatsTaken     *models.SeatsNotAvailableError
		invalidRequest *models.InvalidBookingRequestError
		badMetadata    *models.InvalidPaymentMetadataError
		notPaid        *models.PaymentNotCompletedError
		duplicate      *models.DuplicatePaymentConfirmationError
		lockTimeout    *models.LockWaitTimeoutError
		accessDenied   *models.BookingAccessDeniedError
		persistence    *models.BookingPersistenceError
		gateway        *models.GatewayError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   notFound.Error(),
			"code":    "NOT_FOUND",
			"subject": string(notFound.Kind),
		})
	case errors.As(err, &seatsTaken):
		c.JSON(http.StatusConflict, gin.H{
			"error":       seatsTaken.Error(),
			"code":        "SEATS_NOT_AVAILABLE",
			"seat_ids":    seatsTaken.SeatIDs,
			"travel_date": seatsTaken.TravelDate,
		})
	case errors.As(err, &invalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": invalidRequest.Error(),
			"code":  "INVALID_BOOKING_REQUEST",
		})
	case errors.As(err, &badMetadata):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": badMetadata.Error(),
			"code":  "INVALID_PAYMENT_METADATA",
			"field": badMetadata.Field,
		})
	case errors.As(err, &notPaid):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":  notPaid.Error(),
			"code":   "PAYMENT_NOT_COMPLETED",
			"status": notPaid.Status,
		})
	case errors.As(err, &duplicate):
		c.JSON(http.StatusConflict, gin.H{
			"error":      duplicate.Error(),
			"code":       "PAYMENT_ALREADY_CONFIRMED",
			"session_id": duplicate.SessionID,
		})
	case errors.As(err, &lockTimeout):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":    lockTimeout.Error(),
			"code":     "LOCK_WAIT_TIMEOUT",
			"seat_ids": lockTimeout.SeatIDs,
		})
	case errors.As(err, &accessDenied):
		c.JSON(http.StatusForbidden, gin.H{
			"error": accessDenied.Error(),
			"code":  "BOOKING_ACCESS_DENIED",
		})
	case errors.As(err, &persistence):
		logger.WithError(err).Error("Booking persistence failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to persist booking, no seats were taken",
			"code":  "BOOKING_PERSISTENCE_FAILED",
		})
	case errors.As(err, &gateway):
		logger.WithError(err).Error("Payment gateway failure")
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "payment gateway is unavailable, please retry",
			"code":  "PAYMENT_GATEWAY_ERROR",
		})
	default:
		logger.WithError(err).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
			"code":  "INTERNAL_ERROR",
		})
	}
}
