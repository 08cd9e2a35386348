package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/railbook/train-booking-backend/internal/middleware"
	"github.com/railbook/train-booking-backend/internal/models"
	"github.com/railbook/train-booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// PaymentHandler handles checkout session creation and payment confirmation
type PaymentHandler struct {
	paymentService *services.PaymentService
	logger         *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *services.PaymentService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// CreateCheckoutSession opens a gateway checkout session for a booking
// request. Seats are not reserved here; the booking is created only when the
// payment is confirmed.
// POST /api/v1/payments/checkout
func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.BookSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
			"code":  "INVALID_REQUEST",
		})
		return
	}

	session, err := h.paymentService.CreateCheckoutSession(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id":   session.ID,
		"checkout_url": session.URL,
	})
}

// ConfirmPayment verifies a paid checkout session and creates the booking.
// Confirming the same session twice returns 409 and never books twice.
// POST /api/v1/payments/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
			"code":  "INVALID_REQUEST",
		})
		return
	}

	booking, err := h.paymentService.ConfirmFromGatewaySession(c.Request.Context(), req.SessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}
