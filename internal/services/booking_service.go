package services

import (
	"time"

	"github.com/railbook/train-booking-backend/internal/database"
	"github.com/railbook/train-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

const defaultSeatClass = "Seating"

// BookingService handles the booking workflow: validate the request, lock
// the target seats, transition their occupancy and persist the booking with
// its passengers in one transaction. Caller identity is always passed in
// explicitly by the API layer.
type BookingService struct {
	userRepo    *database.UserRepository
	trainRepo   *database.TrainRepository
	seatRepo    *database.SeatRepository
	bookingRepo *database.BookingRepository
	pnrGen      database.PNRSource
	holdTTL     time.Duration
	logger      *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	userRepo *database.UserRepository,
	trainRepo *database.TrainRepository,
	seatRepo *database.SeatRepository,
	bookingRepo *database.BookingRepository,
	pnrGen database.PNRSource,
	holdTTL time.Duration,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		userRepo:    userRepo,
		trainRepo:   trainRepo,
		seatRepo:    seatRepo,
		bookingRepo: bookingRepo,
		pnrGen:      pnrGen,
		holdTTL:     holdTTL,
		logger:      logger,
	}
}

// BookSeats books the requested seats for the caller on the given train and
// travel date. The whole operation is all-or-nothing: on any failure no seat
// changes state and no booking row is created.
func (s *BookingService) BookSeats(callerUserID int64, req *models.BookSeatsRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(callerUserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUserNotFound("user not found with id: %d", callerUserID)
	}

	train, err := s.trainRepo.GetByID(req.TrainID)
	if err != nil {
		return nil, err
	}
	if train == nil {
		return nil, models.NewTrainNotFound("train not found with id: %d", req.TrainID)
	}

	params := database.CommitParams{
		UserID:      user.ID,
		UserEmail:   user.Email,
		TrainID:     train.ID,
		TravelDate:  req.ParsedTravelDate(),
		SeatIDs:     req.SeatIDs,
		FromStation: stringOr(req.FromStation, train.FromStation),
		ToStation:   stringOr(req.ToStation, train.ToStation),
		SeatClass:   stringOr(req.SeatClass, defaultSeatClass),
		Passengers:  req.Passengers,
	}

	booking, err := s.bookingRepo.CommitBooking(params, s.seatRepo, s.pnrGen)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"pnr":         booking.PNR,
		"user_id":     user.ID,
		"train_id":    train.ID,
		"travel_date": req.TravelDate,
		"seats":       len(booking.SeatIDs),
	}).Info("Booking confirmed")

	return booking, nil
}

// HoldSeats places a TTL hold on the requested seats for the caller. Held
// seats block other bookings until the hold expires or the holder books
// them; expired holds are swept back to free in the background.
func (s *BookingService) HoldSeats(callerUserID int64, req *models.HoldSeatsRequest) (time.Time, error) {
	if len(req.SeatIDs) == 0 {
		return time.Time{}, &models.InvalidBookingRequestError{Message: "at least one seat is required"}
	}
	travelDate, err := time.Parse(models.TravelDateLayout, req.TravelDate)
	if err != nil {
		return time.Time{}, &models.InvalidBookingRequestError{Message: "invalid travel_date, expected YYYY-MM-DD"}
	}

	user, err := s.userRepo.GetByID(callerUserID)
	if err != nil {
		return time.Time{}, err
	}
	if user == nil {
		return time.Time{}, models.NewUserNotFound("user not found with id: %d", callerUserID)
	}

	train, err := s.trainRepo.GetByID(req.TrainID)
	if err != nil {
		return time.Time{}, err
	}
	if train == nil {
		return time.Time{}, models.NewTrainNotFound("train not found with id: %d", req.TrainID)
	}

	expiresAt := time.Now().Add(s.holdTTL)
	if err := s.bookingRepo.HoldSeats(req.SeatIDs, travelDate, expiresAt, user.ID, s.seatRepo); err != nil {
		return time.Time{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"train_id":    train.ID,
		"travel_date": req.TravelDate,
		"seats":       len(req.SeatIDs),
		"expires_at":  expiresAt,
	}).Info("Seats held")

	return expiresAt, nil
}

// GetBookingByPNR retrieves a booking with its passengers and train details
func (s *BookingService) GetBookingByPNR(pnr string) (*models.PNRDetailsResponse, error) {
	booking, err := s.bookingRepo.GetByPNR(pnr)
	if err != nil {
		return nil, err
	}

	trainName := ""
	if train, err := s.trainRepo.GetByID(booking.TrainID); err == nil && train != nil {
		trainName = train.Name
	}

	return &models.PNRDetailsResponse{
		PNR:         booking.PNR,
		BookingTime: booking.BookingTime,
		TravelDate:  booking.TravelDate.Format(models.TravelDateLayout),
		Status:      string(booking.Status),
		SeatClass:   booking.SeatClass,
		UserEmail:   booking.UserEmail,
		FromStation: booking.FromStation,
		ToStation:   booking.ToStation,
		TrainID:     booking.TrainID,
		TrainName:   trainName,
		SeatIDs:     booking.SeatIDs,
		Passengers:  booking.Passengers,
	}, nil
}

// GetUserBookings retrieves all bookings of the caller, newest first
func (s *BookingService) GetUserBookings(callerUserID int64) ([]models.Booking, error) {
	return s.bookingRepo.GetByUserID(callerUserID)
}

// CancelBooking releases a booking's seats and marks it cancelled.
// Cancelling an already-cancelled booking is a no-op. Only the booking's
// owner may cancel it; admins may cancel any booking.
func (s *BookingService) CancelBooking(callerUserID int64, callerRole string, pnr string) error {
	enforceOwner := callerRole != "admin"
	if err := s.bookingRepo.CancelBooking(pnr, callerUserID, enforceOwner, s.seatRepo); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"pnr":     pnr,
		"user_id": callerUserID,
	}).Info("Booking cancelled")
	return nil
}

func stringOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
