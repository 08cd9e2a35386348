package models

import (
	"time"
)

// Train represents a train in the catalog
type Train struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Number        int       `json:"number" db:"number"`
	FromStation   string    `json:"from_station" db:"from_station"`
	ToStation     string    `json:"to_station" db:"to_station"`
	DepartureTime *string   `json:"departure_time,omitempty" db:"departure_time"`
	ArrivalTime   *string   `json:"arrival_time,omitempty" db:"arrival_time"`
	RunningDays   *string   `json:"running_days,omitempty" db:"running_days"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// CreateTrainRequest represents the request to register a train
type CreateTrainRequest struct {
	Name          string  `json:"name" binding:"required"`
	Number        int     `json:"number" binding:"required,min=10000"`
	FromStation   string  `json:"from_station" binding:"required"`
	ToStation     string  `json:"to_station" binding:"required"`
	DepartureTime *string `json:"departure_time,omitempty"`
	ArrivalTime   *string `json:"arrival_time,omitempty"`
	RunningDays   *string `json:"running_days,omitempty"`
}
