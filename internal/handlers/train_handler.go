package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/railbook/train-booking-backend/internal/database"
	"github.com/railbook/train-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// TrainHandler handles the train catalog and seat inventory endpoints
type TrainHandler struct {
	trainRepo *database.TrainRepository
	seatRepo  *database.SeatRepository
	logger    *logrus.Logger
}

// NewTrainHandler creates a new TrainHandler
func NewTrainHandler(trainRepo *database.TrainRepository, seatRepo *database.SeatRepository, logger *logrus.Logger) *TrainHandler {
	return &TrainHandler{
		trainRepo: trainRepo,
		seatRepo:  seatRepo,
		logger:    logger,
	}
}

// CreateTrain registers a new train
// POST /api/v1/trains
func (h *TrainHandler) CreateTrain(c *gin.Context) {
	var req models.CreateTrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
			"code":  "INVALID_REQUEST",
		})
		return
	}

	train, err := h.trainRepo.Create(&req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"train_id": train.ID,
		"number":   train.Number,
	}).Info("Train created")

	c.JSON(http.StatusCreated, train)
}

// GetTrain retrieves a train by id
// GET /api/v1/trains/:id
func (h *TrainHandler) GetTrain(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	train, err := h.trainRepo.GetByID(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if train == nil {
		respondError(c, h.logger, models.NewTrainNotFound("train not found with id: %d", id))
		return
	}

	c.JSON(http.StatusOK, train)
}

// ListTrains lists trains, optionally filtered by route
// GET /api/v1/trains?from=X&to=Y
func (h *TrainHandler) ListTrains(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")

	if from != "" && to != "" {
		trains, err := h.trainRepo.Search(from, to)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, trains)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	trains, err := h.trainRepo.List(limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, trains)
}

// DeleteTrain removes a train from the catalog
// DELETE /api/v1/trains/:id
func (h *TrainHandler) DeleteTrain(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.trainRepo.Delete(id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "train deleted"})
}

// CreateCoach provisions a coach and its seats for a train
// POST /api/v1/trains/:id/coaches
func (h *TrainHandler) CreateCoach(c *gin.Context) {
	trainID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.CreateCoachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
			"code":  "INVALID_REQUEST",
		})
		return
	}

	train, err := h.trainRepo.GetByID(trainID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if train == nil {
		respondError(c, h.logger, models.NewTrainNotFound("train not found with id: %d", trainID))
		return
	}

	coach, err := h.seatRepo.CreateCoach(trainID, req.CoachNumber, req.Fare, req.SeatCount)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"train_id": trainID,
		"coach_id": coach.ID,
		"seats":    req.SeatCount,
	}).Info("Coach provisioned")

	c.JSON(http.StatusCreated, coach)
}

// GetCoaches lists the coaches of a train
// GET /api/v1/trains/:id/coaches
func (h *TrainHandler) GetCoaches(c *gin.Context) {
	trainID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	coaches, err := h.seatRepo.GetCoachesByTrain(trainID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, coaches)
}

// GetCoachSeats lists the seats of a coach
// GET /api/v1/coaches/:id/seats
func (h *TrainHandler) GetCoachSeats(c *gin.Context) {
	coachID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	seats, err := h.seatRepo.GetSeatsByCoach(coachID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, seats)
}

// GetSeatLayout returns every seat of a train with its availability for a
// travel date. The view is advisory; availability is re-checked under lock
// when a booking commits.
// GET /api/v1/trains/:id/seats?travel_date=YYYY-MM-DD
func (h *TrainHandler) GetSeatLayout(c *gin.Context) {
	trainID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	travelDate, err := time.Parse(models.TravelDateLayout, c.Query("travel_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "travel_date query parameter is required in YYYY-MM-DD format",
			"code":  "INVALID_REQUEST",
		})
		return
	}

	train, err := h.trainRepo.GetByID(trainID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if train == nil {
		respondError(c, h.logger, models.NewTrainNotFound("train not found with id: %d", trainID))
		return
	}

	layout, err := h.seatRepo.GetSeatLayoutByTrain(trainID, travelDate)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"train_id":    trainID,
		"travel_date": travelDate.Format(models.TravelDateLayout),
		"seats":       layout,
	})
}

// parseIDParam parses a numeric path parameter, responding 400 on failure
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid " + name + " parameter",
			"code":  "INVALID_REQUEST",
		})
		return 0, false
	}
	return id, true
}
