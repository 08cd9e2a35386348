package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/railbook/train-booking-backend/internal/middleware"
	"github.com/railbook/train-booking-backend/internal/models"
	"github.com/railbook/train-booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// BookingHandler handles booking, hold and cancellation endpoints
type BookingHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// BookSeats books seats directly for the authenticated user
// POST /api/v1/bookings
func (h *BookingHandler) BookSeats(c *gin.Context) {
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

	booking, err := h.bookingService.BookSeats(userCtx.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// HoldSeats places a temporary hold on seats for the authenticated user
// POST /api/v1/bookings/holds
func (h *BookingHandler) HoldSeats(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.HoldSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
			"code":  "INVALID_REQUEST",
		})
		return
	}

	expiresAt, err := h.bookingService.HoldSeats(userCtx.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"seat_ids":    req.SeatIDs,
		"travel_date": req.TravelDate,
		"expires_at":  expiresAt,
	})
}

// GetBookingByPNR looks up a booking by its PNR
// GET /api/v1/bookings/pnr/:pnr
func (h *BookingHandler) GetBookingByPNR(c *gin.Context) {
	pnr := strings.ToUpper(strings.TrimSpace(c.Param("pnr")))
	if pnr == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "pnr parameter is required",
			"code":  "INVALID_REQUEST",
		})
		return
	}

	details, err := h.bookingService.GetBookingByPNR(pnr)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// GetMyBookings lists the authenticated user's bookings
// GET /api/v1/bookings
func (h *BookingHandler) GetMyBookings(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookings, err := h.bookingService.GetUserBookings(userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// CancelBooking cancels a booking and releases its seats. Cancelling an
// already-cancelled booking succeeds without changing anything. Only the
// booking's owner or an admin may cancel.
// POST /api/v1/bookings/pnr/:pnr/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	pnr := strings.ToUpper(strings.TrimSpace(c.Param("pnr")))
	if pnr == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "pnr parameter is required",
			"code":  "INVALID_REQUEST",
		})
		return
	}

	if err := h.bookingService.CancelBooking(userCtx.UserID, userCtx.Role, pnr); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pnr":     pnr,
		"status":  string(models.BookingStatusCancelled),
		"message": "booking cancelled, seats released",
	})
}
