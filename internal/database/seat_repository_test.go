package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/railbook/train-booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeatTestRepo(t *testing.T) (*SeatRepository, *sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewSeatRepository(sqlxDB), sqlxDB, mock, func() { sqlxDB.Close() }
}

func TestLockSeats(t *testing.T) {
	t.Run("Locks In Ascending ID Order", func(t *testing.T) {
		repo, db, mock, cleanup := newSeatTestRepo(t)
		defer cleanup()

		mock.ExpectBegin()
		// Caller passes 31 before 12; the query must receive them sorted
		mock.ExpectQuery("FROM seats WHERE id = ANY(.+) ORDER BY id FOR UPDATE").
			WithArgs(pq.Array([]int64{12, 31})).
			WillReturnRows(sqlmock.NewRows([]string{"id", "coach_id", "seat_number", "fare"}).
				AddRow(int64(12), int64(1), 12, 1500.0).
				AddRow(int64(31), int64(1), 31, 1500.0))

		tx, err := db.Beginx()
		require.NoError(t, err)

		seats, err := repo.LockSeats(tx, []int64{31, 12})
		require.NoError(t, err)
		require.Len(t, seats, 2)
		assert.Equal(t, int64(12), seats[0].ID)
		assert.Equal(t, int64(31), seats[1].ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Seats Reported", func(t *testing.T) {
		repo, db, mock, cleanup := newSeatTestRepo(t)
		defer cleanup()

		mock.ExpectBegin()
		mock.ExpectQuery("FROM seats WHERE id = ANY(.+) ORDER BY id FOR UPDATE").
			WillReturnRows(sqlmock.NewRows([]string{"id", "coach_id", "seat_number", "fare"}).
				AddRow(int64(12), int64(1), 12, 1500.0))

		tx, err := db.Beginx()
		require.NoError(t, err)

		seats, err := repo.LockSeats(tx, []int64{31, 12})
		require.Error(t, err)
		assert.Nil(t, seats)

		var notFound *models.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Contains(t, err.Error(), "31")

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Lock Wait Timeout", func(t *testing.T) {
		repo, db, mock, cleanup := newSeatTestRepo(t)
		defer cleanup()

		mock.ExpectBegin()
		mock.ExpectQuery("FROM seats WHERE id = ANY(.+) ORDER BY id FOR UPDATE").
			WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})

		tx, err := db.Beginx()
		require.NoError(t, err)

		seats, err := repo.LockSeats(tx, []int64{31, 12})
		require.Error(t, err)
		assert.Nil(t, seats)

		var lockTimeout *models.LockWaitTimeoutError
		require.ErrorAs(t, err, &lockTimeout)
		assert.Equal(t, []int64{12, 31}, lockTimeout.SeatIDs)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReleaseExpiredHolds(t *testing.T) {
	t.Run("Counts Released Rows", func(t *testing.T) {
		repo, _, mock, cleanup := newSeatTestRepo(t)
		defer cleanup()

		mock.ExpectExec("UPDATE seat_occupancy").
			WillReturnResult(sqlmock.NewResult(0, 4))

		released, err := repo.ReleaseExpiredHolds()
		require.NoError(t, err)
		assert.Equal(t, int64(4), released)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nothing To Release", func(t *testing.T) {
		repo, _, mock, cleanup := newSeatTestRepo(t)
		defer cleanup()

		mock.ExpectExec("UPDATE seat_occupancy").
			WillReturnResult(sqlmock.NewResult(0, 0))

		released, err := repo.ReleaseExpiredHolds()
		require.NoError(t, err)
		assert.Equal(t, int64(0), released)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateCoach(t *testing.T) {
	repo, _, mock, cleanup := newSeatTestRepo(t)
	defer cleanup()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO coaches").
		WithArgs(int64(7), "A1", 1500.0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), now))
	mock.ExpectExec("INSERT INTO seats").
		WithArgs(int64(3), 40, 1500.0).
		WillReturnResult(sqlmock.NewResult(0, 40))
	mock.ExpectCommit()

	coach, err := repo.CreateCoach(7, "A1", 1500.0, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(3), coach.ID)
	assert.Equal(t, "A1", coach.CoachNumber)

	assert.NoError(t, mock.ExpectationsWereMet())
}
