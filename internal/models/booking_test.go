package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBookSeatsRequest() *BookSeatsRequest {
	return &BookSeatsRequest{
		TrainID:    1,
		TravelDate: "2026-10-15",
		SeatIDs:    []int64{10, 11},
		Passengers: []PassengerRequest{
			{Name: "Asha Perera", Age: 34, Gender: "female", SeatID: 10},
			{Name: "Ruwan Perera", Age: 36, Gender: "male", SeatID: 11},
		},
	}
}

func TestBookSeatsRequestValidate(t *testing.T) {
	t.Run("Valid Request", func(t *testing.T) {
		req := validBookSeatsRequest()
		assert.NoError(t, req.Validate())
	})

	t.Run("No Passengers", func(t *testing.T) {
		req := validBookSeatsRequest()
		req.Passengers = nil

		err := req.Validate()
		require.Error(t, err)
		assert.IsType(t, &InvalidBookingRequestError{}, err)
		assert.Contains(t, err.Error(), "passenger")
	})

	t.Run("No Seats", func(t *testing.T) {
		req := validBookSeatsRequest()
		req.SeatIDs = nil
		req.Passengers = req.Passengers[:1]

		err := req.Validate()
		require.Error(t, err)
		assert.IsType(t, &InvalidBookingRequestError{}, err)
	})

	t.Run("Seat Passenger Count Mismatch", func(t *testing.T) {
		req := validBookSeatsRequest()
		req.SeatIDs = []int64{10}

		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must match")
	})

	t.Run("Duplicate Seat IDs", func(t *testing.T) {
		req := validBookSeatsRequest()
		req.SeatIDs = []int64{10, 10}

		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate seat id")
	})

	t.Run("Non Positive Seat ID", func(t *testing.T) {
		req := validBookSeatsRequest()
		req.SeatIDs = []int64{10, 0}

		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid seat id")
	})

	t.Run("Passenger Assigned Unknown Seat", func(t *testing.T) {
		req := validBookSeatsRequest()
		req.Passengers[1].SeatID = 99

		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not in the requested seats")
	})

	t.Run("Two Passengers On One Seat", func(t *testing.T) {
		req := validBookSeatsRequest()
		req.Passengers[1].SeatID = 10

		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "more than one passenger")
	})

	t.Run("Bad Travel Date", func(t *testing.T) {
		req := validBookSeatsRequest()
		req.TravelDate = "15-10-2026"

		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "travel_date")
	})
}

func TestParsedTravelDate(t *testing.T) {
	req := validBookSeatsRequest()
	require.NoError(t, req.Validate())

	parsed := req.ParsedTravelDate()
	assert.Equal(t, 2026, parsed.Year())
	assert.Equal(t, time.October, parsed.Month())
	assert.Equal(t, 15, parsed.Day())
}

func TestSeatOccupancyActive(t *testing.T) {
	now := time.Now()

	t.Run("Booked Always Blocks", func(t *testing.T) {
		occ := SeatOccupancy{Status: SeatStatusBooked}
		assert.True(t, occ.Active(now))
	})

	t.Run("Free Never Blocks", func(t *testing.T) {
		occ := SeatOccupancy{Status: SeatStatusFree}
		assert.False(t, occ.Active(now))
	})

	t.Run("Live Hold Blocks", func(t *testing.T) {
		expires := now.Add(5 * time.Minute)
		occ := SeatOccupancy{Status: SeatStatusHeld, HoldExpiresAt: &expires}
		assert.True(t, occ.Active(now))
	})

	t.Run("Expired Hold Does Not Block", func(t *testing.T) {
		expires := now.Add(-time.Minute)
		occ := SeatOccupancy{Status: SeatStatusHeld, HoldExpiresAt: &expires}
		assert.False(t, occ.Active(now))
	})
}

func TestBookingIsCancelled(t *testing.T) {
	booking := Booking{Status: BookingStatusConfirmed}
	assert.False(t, booking.IsCancelled())

	booking.Status = BookingStatusCancelled
	assert.True(t, booking.IsCancelled())
}
