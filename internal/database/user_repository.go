package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/railbook/train-booking-backend/internal/models"
)

// ErrEmailTaken is returned when registering an email that already has an account
var ErrEmailTaken = errors.New("email is already registered")

// UserRepository handles user directory database operations
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create registers a new user account
func (r *UserRepository) Create(email, name, passwordHash string) (*models.User, error) {
	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         "passenger",
	}

	err := r.db.QueryRowx(`
		INSERT INTO users (email, name, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		user.Email, user.Name, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email. Returns (nil, nil) when absent.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	user := &models.User{}
	err := r.db.Get(user, `
		SELECT id, email, name, password_hash, role, created_at, updated_at
		FROM users
		WHERE email = $1`,
		email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by id. Returns (nil, nil) when absent.
func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	user := &models.User{}
	err := r.db.Get(user, `
		SELECT id, email, name, password_hash, role, created_at, updated_at
		FROM users
		WHERE id = $1`,
		id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}
