package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/railbook/train-booking-backend/internal/models"
)

// TrainRepository handles train catalog database operations
type TrainRepository struct {
	db *sqlx.DB
}

// NewTrainRepository creates a new TrainRepository
func NewTrainRepository(db *sqlx.DB) *TrainRepository {
	return &TrainRepository{db: db}
}

// Create registers a new train
func (r *TrainRepository) Create(req *models.CreateTrainRequest) (*models.Train, error) {
	train := &models.Train{
		Name:          req.Name,
		Number:        req.Number,
		FromStation:   req.FromStation,
		ToStation:     req.ToStation,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		RunningDays:   req.RunningDays,
	}

	err := r.db.QueryRowx(`
		INSERT INTO trains (name, number, from_station, to_station, departure_time, arrival_time, running_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		train.Name, train.Number, train.FromStation, train.ToStation,
		train.DepartureTime, train.ArrivalTime, train.RunningDays,
	).Scan(&train.ID, &train.CreatedAt, &train.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create train: %w", err)
	}

	return train, nil
}

// GetByID retrieves a train by id. Returns (nil, nil) when absent.
func (r *TrainRepository) GetByID(id int64) (*models.Train, error) {
	train := &models.Train{}
	err := r.db.Get(train, `
		SELECT id, name, number, from_station, to_station,
		       departure_time, arrival_time, running_days, created_at, updated_at
		FROM trains
		WHERE id = $1`,
		id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get train: %w", err)
	}
	return train, nil
}

// List retrieves all trains
func (r *TrainRepository) List(limit, offset int) ([]models.Train, error) {
	var trains []models.Train
	err := r.db.Select(&trains, `
		SELECT id, name, number, from_station, to_station,
		       departure_time, arrival_time, running_days, created_at, updated_at
		FROM trains
		ORDER BY id
		LIMIT $1 OFFSET $2`,
		limit, offset)
	return trains, err
}

// Search retrieves trains running between two stations
func (r *TrainRepository) Search(fromStation, toStation string) ([]models.Train, error) {
	var trains []models.Train
	err := r.db.Select(&trains, `
		SELECT id, name, number, from_station, to_station,
		       departure_time, arrival_time, running_days, created_at, updated_at
		FROM trains
		WHERE LOWER(from_station) = LOWER($1) AND LOWER(to_station) = LOWER($2)
		ORDER BY departure_time`,
		fromStation, toStation)
	return trains, err
}

// Delete removes a train. Trains referenced by bookings are protected by
// foreign keys; the violation surfaces as an error rather than a cascade.
func (r *TrainRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM trains WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete train: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return models.NewTrainNotFound("train not found with id: %d", id)
	}
	return nil
}
