package database

import (
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/railbook/train-booking-backend/internal/models"
)

// SeatRepository handles seat, coach and seat-occupancy database operations.
// Seat occupancy is keyed on (seat_id, travel_date); a missing row means the
// seat is free for that date.
type SeatRepository struct {
	db *sqlx.DB
}

// NewSeatRepository creates a new SeatRepository
func NewSeatRepository(db *sqlx.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

// LockSeats acquires exclusive row locks on the given seats inside tx and
// returns them. Ids are locked in ascending order regardless of the order
// supplied by the caller, so two transactions requesting overlapping seat
// sets always contend in the same order and cannot deadlock.
func (r *SeatRepository) LockSeats(tx *sqlx.Tx, seatIDs []int64) ([]models.Seat, error) {
	ids := make([]int64, len(seatIDs))
	copy(ids, seatIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	query := `
		SELECT id, coach_id, seat_number, fare
		FROM seats
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`

	var seats []models.Seat
	if err := tx.Select(&seats, query, pq.Array(ids)); err != nil {
		if isLockNotAvailable(err) {
			return nil, &models.LockWaitTimeoutError{SeatIDs: ids}
		}
		return nil, fmt.Errorf("failed to lock seats: %w", err)
	}

	if len(seats) != len(ids) {
		found := make(map[int64]bool, len(seats))
		for _, s := range seats {
			found[s.ID] = true
		}
		var missing []int64
		for _, id := range ids {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		return nil, models.NewResourceNotFound("seats %v do not exist", missing)
	}

	return seats, nil
}

// ActiveOccupancies returns the occupancy rows that block a booking of the
// given seats on the given travel date: booked rows, and held rows whose
// hold has not yet expired. Must be called with the seat locks held.
func (r *SeatRepository) ActiveOccupancies(tx *sqlx.Tx, seatIDs []int64, travelDate time.Time) ([]models.SeatOccupancy, error) {
	query := `
		SELECT id, seat_id, travel_date, status, hold_expires_at, held_by_user_id, created_at, updated_at
		FROM seat_occupancy
		WHERE seat_id = ANY($1)
		  AND travel_date = $2
		  AND (status = 'booked' OR (status = 'held' AND hold_expires_at > NOW()))`

	var rows []models.SeatOccupancy
	err := tx.Select(&rows, query, pq.Array(seatIDs), travelDate.Format(models.TravelDateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to check seat occupancy: %w", err)
	}
	return rows, nil
}

// MarkBooked transitions the occupancy of every seat to booked for the
// travel date, creating occupancy rows where none exist. Must be called with
// the seat locks held, after availability has been validated.
func (r *SeatRepository) MarkBooked(tx *sqlx.Tx, seatIDs []int64, travelDate time.Time) error {
	query := `
		INSERT INTO seat_occupancy (seat_id, travel_date, status)
		SELECT unnest($1::bigint[]), $2, 'booked'
		ON CONFLICT (seat_id, travel_date)
		DO UPDATE SET status = 'booked', hold_expires_at = NULL, held_by_user_id = NULL, updated_at = NOW()`

	if _, err := tx.Exec(query, pq.Array(seatIDs), travelDate.Format(models.TravelDateLayout)); err != nil {
		return fmt.Errorf("failed to mark seats booked: %w", err)
	}
	return nil
}

// MarkHeld places a TTL hold on every seat for the travel date, recording
// the holder so their own booking can pass through. Must be called with the
// seat locks held, after availability has been validated.
func (r *SeatRepository) MarkHeld(tx *sqlx.Tx, seatIDs []int64, travelDate time.Time, expiresAt time.Time, heldByUserID int64) error {
	query := `
		INSERT INTO seat_occupancy (seat_id, travel_date, status, hold_expires_at, held_by_user_id)
		SELECT unnest($1::bigint[]), $2, 'held', $3, $4
		ON CONFLICT (seat_id, travel_date)
		DO UPDATE SET status = 'held', hold_expires_at = $3, held_by_user_id = $4, updated_at = NOW()`

	_, err := tx.Exec(query, pq.Array(seatIDs), travelDate.Format(models.TravelDateLayout), expiresAt, heldByUserID)
	if err != nil {
		return fmt.Errorf("failed to hold seats: %w", err)
	}
	return nil
}

// Release transitions the occupancy of every seat back to free for the
// travel date. Used by the cancellation path.
func (r *SeatRepository) Release(tx *sqlx.Tx, seatIDs []int64, travelDate time.Time) error {
	query := `
		UPDATE seat_occupancy
		SET status = 'free', hold_expires_at = NULL, held_by_user_id = NULL, updated_at = NOW()
		WHERE seat_id = ANY($1) AND travel_date = $2`

	if _, err := tx.Exec(query, pq.Array(seatIDs), travelDate.Format(models.TravelDateLayout)); err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}
	return nil
}

// ReleaseExpiredHolds frees every held occupancy row whose hold has expired
// and returns the number of rows released. Run periodically by the sweeper.
func (r *SeatRepository) ReleaseExpiredHolds() (int64, error) {
	query := `
		UPDATE seat_occupancy
		SET status = 'free', hold_expires_at = NULL, held_by_user_id = NULL, updated_at = NOW()
		WHERE status = 'held' AND hold_expires_at <= NOW()`

	result, err := r.db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("failed to release expired holds: %w", err)
	}
	released, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count released holds: %w", err)
	}
	return released, nil
}

// CreateCoach provisions a coach with seatCount seats at the given fare.
// Seats are created without occupancy rows, i.e. free for every date.
func (r *SeatRepository) CreateCoach(trainID int64, coachNumber string, fare float64, seatCount int) (*models.Coach, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	coach := &models.Coach{
		TrainID:     trainID,
		CoachNumber: coachNumber,
		Fare:        fare,
	}

	err = tx.QueryRowx(`
		INSERT INTO coaches (train_id, coach_number, fare)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		trainID, coachNumber, fare,
	).Scan(&coach.ID, &coach.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create coach: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO seats (coach_id, seat_number, fare)
		SELECT $1, generate_series(1, $2), $3`,
		coach.ID, seatCount, fare)
	if err != nil {
		return nil, fmt.Errorf("failed to create seats: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return coach, nil
}

// GetSeatsByCoach retrieves all seats of a coach
func (r *SeatRepository) GetSeatsByCoach(coachID int64) ([]models.Seat, error) {
	query := `
		SELECT id, coach_id, seat_number, fare
		FROM seats
		WHERE coach_id = $1
		ORDER BY seat_number`

	var seats []models.Seat
	err := r.db.Select(&seats, query, coachID)
	return seats, err
}

// GetSeatsByIDs retrieves seats by id without locking them. Used for fare
// calculation before checkout; availability is re-validated at commit time.
func (r *SeatRepository) GetSeatsByIDs(seatIDs []int64) ([]models.Seat, error) {
	query := `
		SELECT id, coach_id, seat_number, fare
		FROM seats
		WHERE id = ANY($1)
		ORDER BY id`

	var seats []models.Seat
	if err := r.db.Select(&seats, query, pq.Array(seatIDs)); err != nil {
		return nil, fmt.Errorf("failed to get seats: %w", err)
	}
	return seats, nil
}

// GetCoachesByTrain retrieves all coaches of a train
func (r *SeatRepository) GetCoachesByTrain(trainID int64) ([]models.Coach, error) {
	query := `
		SELECT id, train_id, coach_number, fare, created_at
		FROM coaches
		WHERE train_id = $1
		ORDER BY coach_number`

	var coaches []models.Coach
	err := r.db.Select(&coaches, query, trainID)
	return coaches, err
}

// GetSeatLayoutByTrain retrieves every seat of a train with its occupancy
// status for the given travel date. Reads without locks; availability shown
// here is advisory and re-validated at commit time.
func (r *SeatRepository) GetSeatLayoutByTrain(trainID int64, travelDate time.Time) ([]models.SeatLayoutEntry, error) {
	query := `
		SELECT s.id AS seat_id, s.coach_id, s.seat_number, s.fare,
		       COALESCE(
		           CASE
		               WHEN o.status = 'held' AND o.hold_expires_at <= NOW() THEN 'free'
		               ELSE o.status
		           END, 'free') AS status
		FROM seats s
		JOIN coaches c ON c.id = s.coach_id
		LEFT JOIN seat_occupancy o ON o.seat_id = s.id AND o.travel_date = $2
		WHERE c.train_id = $1
		ORDER BY s.coach_id, s.seat_number`

	var layout []models.SeatLayoutEntry
	err := r.db.Select(&layout, query, trainID, travelDate.Format(models.TravelDateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get seat layout: %w", err)
	}
	return layout, nil
}
