package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/railbook/train-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "Not Found",
			err:        models.NewTrainNotFound("train not found with id: 7"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "Seats Not Available",
			err:        &models.SeatsNotAvailableError{SeatIDs: []int64{12}, TravelDate: "2026-10-15"},
			wantStatus: http.StatusConflict,
			wantCode:   "SEATS_NOT_AVAILABLE",
		},
		{
			name:       "Invalid Booking Request",
			err:        &models.InvalidBookingRequestError{Message: "at least one seat is required"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_BOOKING_REQUEST",
		},
		{
			name:       "Invalid Payment Metadata",
			err:        &models.InvalidPaymentMetadataError{Field: "seatIds"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PAYMENT_METADATA",
		},
		{
			name:       "Payment Not Completed",
			err:        &models.PaymentNotCompletedError{SessionID: "cs_1", Status: "unpaid"},
			wantStatus: http.StatusPaymentRequired,
			wantCode:   "PAYMENT_NOT_COMPLETED",
		},
		{
			name:       "Duplicate Confirmation",
			err:        &models.DuplicatePaymentConfirmationError{SessionID: "cs_1"},
			wantStatus: http.StatusConflict,
			wantCode:   "PAYMENT_ALREADY_CONFIRMED",
		},
		{
			name:       "Lock Wait Timeout",
			err:        &models.LockWaitTimeoutError{SeatIDs: []int64{12, 31}},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "LOCK_WAIT_TIMEOUT",
		},
		{
			name:       "Booking Access Denied",
			err:        &models.BookingAccessDeniedError{PNR: "PNR-A1B2C3D4"},
			wantStatus: http.StatusForbidden,
			wantCode:   "BOOKING_ACCESS_DENIED",
		},
		{
			name:       "Persistence Failure",
			err:        &models.BookingPersistenceError{Attempts: 5, Err: errors.New("collision")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "BOOKING_PERSISTENCE_FAILED",
		},
		{
			name:       "Gateway Failure",
			err:        &models.GatewayError{Op: "retrieve session", Err: errors.New("timeout")},
			wantStatus: http.StatusBadGateway,
			wantCode:   "PAYMENT_GATEWAY_ERROR",
		},
		{
			name:       "Unknown Error",
			err:        errors.New("something unexpected"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, logger, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}
