package models

import (
	"time"
)

// SeatStatus represents the occupancy state of a seat for a travel date.
// A seat with no occupancy row for a date is free.
type SeatStatus string

const (
	SeatStatusFree   SeatStatus = "free"
	SeatStatusHeld   SeatStatus = "held"
	SeatStatusBooked SeatStatus = "booked"
)

// Seat represents a physical seat in a coach
type Seat struct {
	ID         int64   `json:"id" db:"id"`
	CoachID    int64   `json:"coach_id" db:"coach_id"`
	SeatNumber int     `json:"seat_number" db:"seat_number"`
	Fare       float64 `json:"fare" db:"fare"`
}

// SeatOccupancy represents the per-date occupancy record for a seat
type SeatOccupancy struct {
	ID            int64      `json:"id" db:"id"`
	SeatID        int64      `json:"seat_id" db:"seat_id"`
	TravelDate    time.Time  `json:"travel_date" db:"travel_date"`
	Status        SeatStatus `json:"status" db:"status"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty" db:"hold_expires_at"`
	HeldByUserID  *int64     `json:"held_by_user_id,omitempty" db:"held_by_user_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Active reports whether the occupancy record still blocks a booking.
// Booked rows always block; held rows block until their hold expires.
func (o *SeatOccupancy) Active(now time.Time) bool {
	switch o.Status {
	case SeatStatusBooked:
		return true
	case SeatStatusHeld:
		return o.HoldExpiresAt != nil && o.HoldExpiresAt.After(now)
	default:
		return false
	}
}

// Coach represents a coach of a train
type Coach struct {
	ID          int64     `json:"id" db:"id"`
	TrainID     int64     `json:"train_id" db:"train_id"`
	CoachNumber string    `json:"coach_number" db:"coach_number"`
	Fare        float64   `json:"fare" db:"fare"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// SeatLayoutEntry is a single seat in a train's seat layout with its
// occupancy status for a requested travel date
type SeatLayoutEntry struct {
	SeatID     int64      `json:"seat_id" db:"seat_id"`
	CoachID    int64      `json:"coach_id" db:"coach_id"`
	SeatNumber int        `json:"seat_number" db:"seat_number"`
	Fare       float64    `json:"fare" db:"fare"`
	Status     SeatStatus `json:"status" db:"status"`
}

// CreateCoachRequest represents the request to provision a coach with seats
type CreateCoachRequest struct {
	CoachNumber string  `json:"coach_number" binding:"required"`
	Fare        float64 `json:"fare" binding:"required,gt=0"`
	SeatCount   int     `json:"seat_count" binding:"required,min=1,max=120"`
}
