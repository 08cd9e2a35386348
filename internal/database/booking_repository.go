package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/railbook/train-booking-backend/internal/models"
)

// PNRSource produces booking reference strings for the commit path
type PNRSource interface {
	Generate() (string, error)
}

// BookingRepository handles booking and passenger database operations.
// CommitBooking and CancelBooking are the only write paths to seat
// occupancy, bookings and passengers.
type BookingRepository struct {
	db             *sqlx.DB
	lockTimeout    time.Duration
	pnrMaxAttempts int
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB, lockTimeout time.Duration, pnrMaxAttempts int) *BookingRepository {
	return &BookingRepository{
		db:             db,
		lockTimeout:    lockTimeout,
		pnrMaxAttempts: pnrMaxAttempts,
	}
}

// CommitParams carries everything the commit path needs to persist a booking
type CommitParams struct {
	UserID          int64
	UserEmail       string
	TrainID         int64
	TravelDate      time.Time
	SeatIDs         []int64
	FromStation     string
	ToStation       string
	SeatClass       string
	Passengers      []models.PassengerRequest
	StripeSessionID *string
}

// CommitBooking runs the shared commit path: lock the seats in ascending id
// order, validate they are free for the travel date, transition them to
// booked and persist the booking with its passengers, all in one
// transaction. Any failure rolls the whole transaction back, so either the
// booking and every seat transition are applied, or none are.
func (r *BookingRepository) CommitBooking(params CommitParams, seatRepo *SeatRepository, pnrGen PNRSource) (*models.Booking, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Bound lock waits so a stuck transaction surfaces an error instead of
	// blocking the worker indefinitely.
	if r.lockTimeout > 0 {
		if _, err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
			return nil, fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	seats, err := seatRepo.LockSeats(tx, params.SeatIDs)
	if err != nil {
		return nil, err
	}

	if err := r.checkSeatsFree(tx, seatRepo, params.SeatIDs, params.TravelDate, params.UserID); err != nil {
		return nil, err
	}

	if err := seatRepo.MarkBooked(tx, params.SeatIDs, params.TravelDate); err != nil {
		return nil, err
	}

	booking, err := r.insertBookingWithPNRRetry(tx, params, pnrGen)
	if err != nil {
		return nil, err
	}

	for _, seat := range seats {
		_, err = tx.Exec(`
			INSERT INTO booking_seats (booking_id, seat_id)
			VALUES ($1, $2)`,
			booking.ID, seat.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to associate seat %d with booking: %w", seat.ID, err)
		}
		booking.SeatIDs = append(booking.SeatIDs, seat.ID)
	}

	for _, p := range params.Passengers {
		passenger := models.Passenger{
			BookingID: booking.ID,
			SeatID:    p.SeatID,
			Name:      p.Name,
			Age:       p.Age,
			Gender:    p.Gender,
			Phone:     p.Phone,
			IDNumber:  p.IDNumber,
		}
		err = tx.QueryRowx(`
			INSERT INTO passengers (booking_id, seat_id, name, age, gender, phone, id_number)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at`,
			passenger.BookingID, passenger.SeatID, passenger.Name, passenger.Age,
			passenger.Gender, passenger.Phone, passenger.IDNumber,
		).Scan(&passenger.ID, &passenger.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create passenger %q: %w", p.Name, err)
		}
		booking.Passengers = append(booking.Passengers, passenger)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return booking, nil
}

// checkSeatsFree validates, with the seat locks held, that no seat is held
// or booked for the travel date and that no confirmed booking already
// references any of the seats for that date. A live hold owned by forUserID
// does not block: the holder booking their own held seats is the point of a
// hold, and MarkBooked overwrites the hold row.
func (r *BookingRepository) checkSeatsFree(tx *sqlx.Tx, seatRepo *SeatRepository, seatIDs []int64, travelDate time.Time, forUserID int64) error {
	occupied, err := seatRepo.ActiveOccupancies(tx, seatIDs, travelDate)
	if err != nil {
		return err
	}
	taken := make([]int64, 0, len(occupied))
	for _, o := range occupied {
		if o.Status == models.SeatStatusHeld && o.HeldByUserID != nil && *o.HeldByUserID == forUserID {
			continue
		}
		taken = append(taken, o.SeatID)
	}
	if len(taken) > 0 {
		return &models.SeatsNotAvailableError{
			SeatIDs:    taken,
			TravelDate: travelDate.Format(models.TravelDateLayout),
		}
	}

	var conflicting []int64
	err = tx.Select(&conflicting, `
		SELECT bs.seat_id
		FROM booking_seats bs
		JOIN bookings b ON b.id = bs.booking_id
		WHERE bs.seat_id = ANY($1)
		  AND b.travel_date = $2
		  AND b.status = 'confirmed'`,
		pq.Array(seatIDs), travelDate.Format(models.TravelDateLayout))
	if err != nil {
		return fmt.Errorf("failed to check confirmed bookings: %w", err)
	}
	if len(conflicting) > 0 {
		return &models.SeatsNotAvailableError{
			SeatIDs:    conflicting,
			TravelDate: travelDate.Format(models.TravelDateLayout),
		}
	}

	return nil
}

// insertBookingWithPNRRetry inserts the booking row, regenerating the PNR on
// a uniqueness collision. Each attempt runs under a savepoint so a failed
// insert does not poison the surrounding transaction.
func (r *BookingRepository) insertBookingWithPNRRetry(tx *sqlx.Tx, params CommitParams, pnrGen PNRSource) (*models.Booking, error) {
	var lastErr error

	for attempt := 1; attempt <= r.pnrMaxAttempts; attempt++ {
		pnr, err := pnrGen.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate PNR: %w", err)
		}

		if _, err := tx.Exec("SAVEPOINT insert_booking"); err != nil {
			return nil, fmt.Errorf("failed to create savepoint: %w", err)
		}

		booking := &models.Booking{
			PNR:             pnr,
			UserID:          params.UserID,
			UserEmail:       params.UserEmail,
			TrainID:         params.TrainID,
			TravelDate:      params.TravelDate,
			Status:          models.BookingStatusConfirmed,
			SeatClass:       params.SeatClass,
			FromStation:     params.FromStation,
			ToStation:       params.ToStation,
			StripeSessionID: params.StripeSessionID,
		}

		err = tx.QueryRowx(`
			INSERT INTO bookings (
				pnr, user_id, user_email, train_id, travel_date,
				status, seat_class, from_station, to_station, stripe_session_id
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, booking_time, created_at, updated_at`,
			booking.PNR, booking.UserID, booking.UserEmail, booking.TrainID,
			booking.TravelDate.Format(models.TravelDateLayout),
			booking.Status, booking.SeatClass, booking.FromStation, booking.ToStation,
			booking.StripeSessionID,
		).Scan(&booking.ID, &booking.BookingTime, &booking.CreatedAt, &booking.UpdatedAt)
		if err == nil {
			return booking, nil
		}

		if isUniqueViolation(err, "bookings_stripe_session_id_key") {
			return nil, &models.DuplicatePaymentConfirmationError{SessionID: derefString(params.StripeSessionID)}
		}

		if !isUniqueViolation(err, "bookings_pnr_key") {
			return nil, fmt.Errorf("failed to create booking: %w", err)
		}

		lastErr = err
		if _, rbErr := tx.Exec("ROLLBACK TO SAVEPOINT insert_booking"); rbErr != nil {
			return nil, fmt.Errorf("failed to roll back to savepoint: %w", rbErr)
		}
	}

	return nil, &models.BookingPersistenceError{Attempts: r.pnrMaxAttempts, Err: lastErr}
}

// HoldSeats places TTL holds on seats through the same lock-then-validate
// path as the commit step. Held seats block other users' bookings until the
// hold expires or the holder books them; the holder may re-hold their own
// seats to extend the hold.
func (r *BookingRepository) HoldSeats(seatIDs []int64, travelDate time.Time, expiresAt time.Time, userID int64, seatRepo *SeatRepository) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := seatRepo.LockSeats(tx, seatIDs); err != nil {
		return err
	}

	if err := r.checkSeatsFree(tx, seatRepo, seatIDs, travelDate, userID); err != nil {
		return err
	}

	if err := seatRepo.MarkHeld(tx, seatIDs, travelDate, expiresAt, userID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CancelBooking releases a confirmed booking's seats and marks it
// cancelled. Cancelling an already-cancelled booking is a no-op. When
// enforceOwner is set, callers other than the booking's owner are rejected.
func (r *BookingRepository) CancelBooking(pnr string, callerUserID int64, enforceOwner bool, seatRepo *SeatRepository) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var booking models.Booking
	err = tx.Get(&booking, `
		SELECT id, pnr, user_id, travel_date, status
		FROM bookings
		WHERE pnr = $1
		FOR UPDATE`,
		pnr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NewResourceNotFound("booking not found with PNR: %s", pnr)
		}
		return fmt.Errorf("failed to get booking: %w", err)
	}

	if enforceOwner && booking.UserID != callerUserID {
		return &models.BookingAccessDeniedError{PNR: pnr}
	}

	if booking.IsCancelled() {
		return nil
	}

	var seatIDs []int64
	err = tx.Select(&seatIDs, `
		SELECT seat_id FROM booking_seats WHERE booking_id = $1 ORDER BY seat_id`,
		booking.ID)
	if err != nil {
		return fmt.Errorf("failed to get booking seats: %w", err)
	}

	if len(seatIDs) > 0 {
		if _, err := seatRepo.LockSeats(tx, seatIDs); err != nil {
			return err
		}
		if err := seatRepo.Release(tx, seatIDs, booking.TravelDate); err != nil {
			return err
		}
	}

	_, err = tx.Exec(`
		UPDATE bookings
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1`,
		booking.ID)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByPNR retrieves a booking by PNR with its seats and passengers
func (r *BookingRepository) GetByPNR(pnr string) (*models.Booking, error) {
	booking := &models.Booking{}
	err := r.db.Get(booking, `
		SELECT id, pnr, user_id, user_email, train_id, travel_date,
		       status, seat_class, from_station, to_station, stripe_session_id,
		       booking_time, created_at, updated_at
		FROM bookings
		WHERE pnr = $1`,
		pnr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewResourceNotFound("booking not found with PNR: %s", pnr)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if err := r.loadRelations(booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// GetByUserID retrieves all bookings of a user, newest first
func (r *BookingRepository) GetByUserID(userID int64) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.Select(&bookings, `
		SELECT id, pnr, user_id, user_email, train_id, travel_date,
		       status, seat_class, from_station, to_station, stripe_session_id,
		       booking_time, created_at, updated_at
		FROM bookings
		WHERE user_id = $1
		ORDER BY booking_time DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user bookings: %w", err)
	}

	for i := range bookings {
		if err := r.loadRelations(&bookings[i]); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

// ExistsByStripeSessionID reports whether a booking was already created for
// the gateway session
func (r *BookingRepository) ExistsByStripeSessionID(sessionID string) (bool, error) {
	var count int
	err := r.db.Get(&count, `
		SELECT COUNT(*) FROM bookings WHERE stripe_session_id = $1`,
		sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to check session id: %w", err)
	}
	return count > 0, nil
}

// loadRelations populates the booking's seat ids and passengers
func (r *BookingRepository) loadRelations(booking *models.Booking) error {
	err := r.db.Select(&booking.SeatIDs, `
		SELECT seat_id FROM booking_seats WHERE booking_id = $1 ORDER BY seat_id`,
		booking.ID)
	if err != nil {
		return fmt.Errorf("failed to get booking seats: %w", err)
	}

	err = r.db.Select(&booking.Passengers, `
		SELECT id, booking_id, seat_id, name, age, gender, phone, id_number, created_at
		FROM passengers
		WHERE booking_id = $1
		ORDER BY id`,
		booking.ID)
	if err != nil {
		return fmt.Errorf("failed to get passengers: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally on a specific constraint
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// isLockNotAvailable reports whether err is a Postgres lock_not_available
// error, raised when a lock_timeout fires while waiting for row locks
func isLockNotAvailable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "55P03"
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
