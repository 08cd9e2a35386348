package models

import (
	"fmt"
	"time"
)

// TravelDateLayout is the wire format for travel dates
const TravelDateLayout = "2006-01-02"

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking represents a confirmed seat reservation with its passengers
type Booking struct {
	ID              int64         `json:"id" db:"id"`
	PNR             string        `json:"pnr" db:"pnr"`
	UserID          int64         `json:"user_id" db:"user_id"`
	UserEmail       string        `json:"user_email" db:"user_email"`
	TrainID         int64         `json:"train_id" db:"train_id"`
	TravelDate      time.Time     `json:"travel_date" db:"travel_date"`
	Status          BookingStatus `json:"status" db:"status"`
	SeatClass       string        `json:"seat_class" db:"seat_class"`
	FromStation     string        `json:"from_station" db:"from_station"`
	ToStation       string        `json:"to_station" db:"to_station"`
	StripeSessionID *string       `json:"stripe_session_id,omitempty" db:"stripe_session_id"`
	BookingTime     time.Time     `json:"booking_time" db:"booking_time"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`

	SeatIDs    []int64     `json:"seat_ids" db:"-"`
	Passengers []Passenger `json:"passengers" db:"-"`
}

// IsCancelled reports whether the booking has been cancelled
func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

// Passenger represents a passenger travelling on a booking
type Passenger struct {
	ID        int64     `json:"id" db:"id"`
	BookingID int64     `json:"booking_id" db:"booking_id"`
	SeatID    int64     `json:"seat_id" db:"seat_id"`
	Name      string    `json:"name" db:"name"`
	Age       int       `json:"age" db:"age"`
	Gender    string    `json:"gender" db:"gender"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	IDNumber  *string   `json:"id_number,omitempty" db:"id_number"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PassengerRequest is a passenger entry in a booking request
type PassengerRequest struct {
	Name     string  `json:"name" binding:"required"`
	Age      int     `json:"age" binding:"required,min=1,max=120"`
	Gender   string  `json:"gender" binding:"required"`
	Phone    *string `json:"phone,omitempty"`
	IDNumber *string `json:"id_number,omitempty"`
	SeatID   int64   `json:"seat_id" binding:"required"`
}

// BookSeatsRequest represents the request to book seats on a train
type BookSeatsRequest struct {
	TrainID     int64              `json:"train_id" binding:"required"`
	TravelDate  string             `json:"travel_date" binding:"required"`
	SeatIDs     []int64            `json:"seat_ids" binding:"required"`
	FromStation *string            `json:"from_station,omitempty"`
	ToStation   *string            `json:"to_station,omitempty"`
	SeatClass   *string            `json:"seat_class,omitempty"`
	Passengers  []PassengerRequest `json:"passengers" binding:"required"`
}

// Validate checks the structural preconditions of a booking request.
// Seats and passengers must map 1:1: same cardinality, and every
// passenger's seat must be one of the requested seats, used exactly once.
func (r *BookSeatsRequest) Validate() error {
	if len(r.Passengers) == 0 {
		return &InvalidBookingRequestError{Message: "at least one passenger is required"}
	}
	if len(r.SeatIDs) == 0 {
		return &InvalidBookingRequestError{Message: "at least one seat is required"}
	}
	if len(r.SeatIDs) != len(r.Passengers) {
		return &InvalidBookingRequestError{
			Message: fmt.Sprintf("seat count (%d) must match passenger count (%d)", len(r.SeatIDs), len(r.Passengers)),
		}
	}

	requested := make(map[int64]bool, len(r.SeatIDs))
	for _, id := range r.SeatIDs {
		if id <= 0 {
			return &InvalidBookingRequestError{Message: fmt.Sprintf("invalid seat id %d", id)}
		}
		if requested[id] {
			return &InvalidBookingRequestError{Message: fmt.Sprintf("duplicate seat id %d", id)}
		}
		requested[id] = true
	}

	assigned := make(map[int64]bool, len(r.Passengers))
	for _, p := range r.Passengers {
		if !requested[p.SeatID] {
			return &InvalidBookingRequestError{
				Message: fmt.Sprintf("passenger %q is assigned seat %d which is not in the requested seats", p.Name, p.SeatID),
			}
		}
		if assigned[p.SeatID] {
			return &InvalidBookingRequestError{
				Message: fmt.Sprintf("seat %d is assigned to more than one passenger", p.SeatID),
			}
		}
		assigned[p.SeatID] = true
	}

	if _, err := time.Parse(TravelDateLayout, r.TravelDate); err != nil {
		return &InvalidBookingRequestError{Message: fmt.Sprintf("invalid travel_date %q, expected YYYY-MM-DD", r.TravelDate)}
	}

	return nil
}

// ParsedTravelDate returns the travel date as a time.Time. Validate must
// have been called first.
func (r *BookSeatsRequest) ParsedTravelDate() time.Time {
	d, _ := time.Parse(TravelDateLayout, r.TravelDate)
	return d
}

// HoldSeatsRequest represents the request to place a TTL hold on seats
type HoldSeatsRequest struct {
	TrainID    int64   `json:"train_id" binding:"required"`
	TravelDate string  `json:"travel_date" binding:"required"`
	SeatIDs    []int64 `json:"seat_ids" binding:"required"`
}

// PNRDetailsResponse is the lookup view of a booking by PNR
type PNRDetailsResponse struct {
	PNR         string      `json:"pnr"`
	BookingTime time.Time   `json:"booking_time"`
	TravelDate  string      `json:"travel_date"`
	Status      string      `json:"status"`
	SeatClass   string      `json:"seat_class"`
	UserEmail   string      `json:"user_email"`
	FromStation string      `json:"from_station"`
	ToStation   string      `json:"to_station"`
	TrainID     int64       `json:"train_id"`
	TrainName   string      `json:"train_name"`
	SeatIDs     []int64     `json:"seat_ids"`
	Passengers  []Passenger `json:"passengers"`
}
