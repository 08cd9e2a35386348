package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/railbook/train-booking-backend/internal/config"
	"github.com/railbook/train-booking-backend/internal/database"
	"github.com/railbook/train-booking-backend/internal/models"
	"github.com/railbook/train-booking-backend/pkg/payment"
	"github.com/sirupsen/logrus"
)

// PaymentService creates checkout sessions and reconciles completed payments
// into bookings. Booking parameters are stamped onto the session as metadata
// when the session is created and read back when the payment is confirmed,
// so this service is the only component that trusts the gateway's copy of
// the request.
type PaymentService struct {
	gateway     payment.Gateway
	userRepo    *database.UserRepository
	trainRepo   *database.TrainRepository
	seatRepo    *database.SeatRepository
	bookingRepo *database.BookingRepository
	pnrGen      database.PNRSource
	cfg         config.StripeConfig
	logger      *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	gateway payment.Gateway,
	userRepo *database.UserRepository,
	trainRepo *database.TrainRepository,
	seatRepo *database.SeatRepository,
	bookingRepo *database.BookingRepository,
	pnrGen database.PNRSource,
	cfg config.StripeConfig,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		gateway:     gateway,
		userRepo:    userRepo,
		trainRepo:   trainRepo,
		seatRepo:    seatRepo,
		bookingRepo: bookingRepo,
		pnrGen:      pnrGen,
		cfg:         cfg,
		logger:      logger,
	}
}

// CreateCheckoutSession validates the booking request, prices the requested
// seats and opens a gateway checkout session carrying the full request as
// metadata. No seat changes state here; seats are only transitioned when the
// payment is confirmed.
func (s *PaymentService) CreateCheckoutSession(ctx context.Context, callerUserID int64, req *models.BookSeatsRequest) (*payment.CheckoutSession, error) {
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

	seats, err := s.seatRepo.GetSeatsByIDs(req.SeatIDs)
	if err != nil {
		return nil, err
	}
	if len(seats) != len(req.SeatIDs) {
		return nil, models.NewResourceNotFound("one or more requested seats do not exist")
	}

	var total float64
	for _, seat := range seats {
		total += seat.Fare
	}

	metadata, err := buildSessionMetadata(user.ID, train, req)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, &payment.CreateSessionParams{
		Amount:      int64(math.Round(total * 100)),
		Currency:    s.cfg.Currency,
		Description: fmt.Sprintf("%s: %s to %s on %s", train.Name, train.FromStation, train.ToStation, req.TravelDate),
		SuccessURL:  s.cfg.SuccessURL,
		CancelURL:   s.cfg.CancelURL,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, &models.GatewayError{Op: "create checkout session", Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"user_id":    user.ID,
		"train_id":   train.ID,
		"seats":      len(req.SeatIDs),
	}).Info("Checkout session created")

	return session, nil
}

// ConfirmFromGatewaySession turns a paid checkout session into a confirmed
// booking. The operation is idempotent: confirming the same session twice
// yields DuplicatePaymentConfirmationError and never a second booking. The
// duplicate check runs before the gateway is contacted, and the unique
// constraint on the session id closes the race between concurrent confirms.
func (s *PaymentService) ConfirmFromGatewaySession(ctx context.Context, sessionID string) (*models.Booking, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, &models.InvalidBookingRequestError{Message: "session id is required"}
	}

	exists, err := s.bookingRepo.ExistsByStripeSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &models.DuplicatePaymentConfirmationError{SessionID: sessionID}
	}

	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, &models.GatewayError{Op: "retrieve session", Err: err}
	}

	if session.PaymentStatus != "paid" {
		return nil, &models.PaymentNotCompletedError{SessionID: sessionID, Status: session.PaymentStatus}
	}

	req, userID, err := parseSessionMetadata(session.Metadata)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUserNotFound("user not found with id: %d", userID)
	}

	train, err := s.trainRepo.GetByID(req.TrainID)
	if err != nil {
		return nil, err
	}
	if train == nil {
		return nil, models.NewTrainNotFound("train not found with id: %d", req.TrainID)
	}

	params := database.CommitParams{
		UserID:          user.ID,
		UserEmail:       user.Email,
		TrainID:         train.ID,
		TravelDate:      req.ParsedTravelDate(),
		SeatIDs:         req.SeatIDs,
		FromStation:     stringOr(req.FromStation, train.FromStation),
		ToStation:       stringOr(req.ToStation, train.ToStation),
		SeatClass:       stringOr(req.SeatClass, defaultSeatClass),
		Passengers:      req.Passengers,
		StripeSessionID: &session.ID,
	}

	booking, err := s.bookingRepo.CommitBooking(params, s.seatRepo, s.pnrGen)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"pnr":        booking.PNR,
		"session_id": session.ID,
		"user_id":    user.ID,
		"train_id":   train.ID,
	}).Info("Payment confirmed, booking created")

	return booking, nil
}

// buildSessionMetadata flattens the booking request into the string map the
// gateway stores with the session.
func buildSessionMetadata(userID int64, train *models.Train, req *models.BookSeatsRequest) (map[string]string, error) {
	seatIDs, err := json.Marshal(req.SeatIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode seat ids: %w", err)
	}
	passengers, err := json.Marshal(req.Passengers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode passengers: %w", err)
	}

	return map[string]string{
		"userId":      strconv.FormatInt(userID, 10),
		"trainId":     strconv.FormatInt(req.TrainID, 10),
		"travelDate":  req.TravelDate,
		"seatIds":     string(seatIDs),
		"passengers":  string(passengers),
		"fromStation": stringOr(req.FromStation, train.FromStation),
		"toStation":   stringOr(req.ToStation, train.ToStation),
		"seatClass":   stringOr(req.SeatClass, defaultSeatClass),
	}, nil
}

// parseSessionMetadata rebuilds a booking request from session metadata.
// Every field reports its own key on failure so a bad session is diagnosable
// from the error alone.
func parseSessionMetadata(metadata map[string]string) (*models.BookSeatsRequest, int64, error) {
	userID, err := requiredInt64(metadata, "userId")
	if err != nil {
		return nil, 0, err
	}
	trainID, err := requiredInt64(metadata, "trainId")
	if err != nil {
		return nil, 0, err
	}

	travelDate := metadata["travelDate"]
	if travelDate == "" {
		return nil, 0, &models.InvalidPaymentMetadataError{Field: "travelDate", Message: "missing"}
	}
	if _, err := time.Parse(models.TravelDateLayout, travelDate); err != nil {
		return nil, 0, &models.InvalidPaymentMetadataError{Field: "travelDate", Message: "expected YYYY-MM-DD"}
	}

	seatIDs, err := parseSeatIDs(metadata["seatIds"])
	if err != nil {
		return nil, 0, err
	}

	rawPassengers := metadata["passengers"]
	if rawPassengers == "" {
		return nil, 0, &models.InvalidPaymentMetadataError{Field: "passengers", Message: "missing"}
	}
	var passengers []models.PassengerRequest
	if err := json.Unmarshal([]byte(rawPassengers), &passengers); err != nil {
		return nil, 0, &models.InvalidPaymentMetadataError{Field: "passengers", Message: "not a valid JSON array"}
	}

	req := &models.BookSeatsRequest{
		TrainID:    trainID,
		TravelDate: travelDate,
		SeatIDs:    seatIDs,
		Passengers: passengers,
	}
	if v := metadata["fromStation"]; v != "" {
		req.FromStation = &v
	}
	if v := metadata["toStation"]; v != "" {
		req.ToStation = &v
	}
	if v := metadata["seatClass"]; v != "" {
		req.SeatClass = &v
	}
	return req, userID, nil
}

// parseSeatIDs accepts either a JSON array of ids or a single bare id.
// Sessions created by older clients stored a lone seat as a scalar.
func parseSeatIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &models.InvalidPaymentMetadataError{Field: "seatIds", Message: "missing"}
	}

	if strings.HasPrefix(raw, "[") {
		var ids []int64
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, &models.InvalidPaymentMetadataError{Field: "seatIds", Message: "not a valid JSON array of ids"}
		}
		if len(ids) == 0 {
			return nil, &models.InvalidPaymentMetadataError{Field: "seatIds", Message: "empty"}
		}
		return ids, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &models.InvalidPaymentMetadataError{Field: "seatIds", Message: "not a valid seat id"}
	}
	return []int64{id}, nil
}

func requiredInt64(metadata map[string]string, field string) (int64, error) {
	raw := metadata[field]
	if raw == "" {
		return 0, &models.InvalidPaymentMetadataError{Field: field, Message: "missing"}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &models.InvalidPaymentMetadataError{Field: field, Message: "not a valid integer"}
	}
	return v, nil
}
