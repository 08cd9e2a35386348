package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/railbook/train-booking-backend/internal/config"
	"github.com/railbook/train-booking-backend/internal/database"
	"github.com/railbook/train-booking-backend/internal/models"
	"github.com/railbook/train-booking-backend/pkg/payment"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway is an in-memory payment.Gateway for service tests
type fakeGateway struct {
	session       *payment.CheckoutSession
	err           error
	retrieveCalls int
	createCalls   int
}

func (g *fakeGateway) RetrieveSession(ctx context.Context, sessionID string) (*payment.CheckoutSession, error) {
	g.retrieveCalls++
	if g.err != nil {
		return nil, g.err
	}
	return g.session, nil
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, params *payment.CreateSessionParams) (*payment.CheckoutSession, error) {
	g.createCalls++
	if g.err != nil {
		return nil, g.err
	}
	return g.session, nil
}

func newPaymentServiceForTest(t *testing.T, gateway payment.Gateway) (*PaymentService, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	logger := logrus.New()
	svc := NewPaymentService(
		gateway,
		database.NewUserRepository(sqlxDB),
		database.NewTrainRepository(sqlxDB),
		database.NewSeatRepository(sqlxDB),
		database.NewBookingRepository(sqlxDB, 0, 3),
		NewPNRGenerator(),
		config.StripeConfig{Currency: "lkr"},
		logger,
	)
	return svc, mock, func() { sqlxDB.Close() }
}

func TestConfirmFromGatewaySession(t *testing.T) {
	t.Run("Empty Session ID", func(t *testing.T) {
		gateway := &fakeGateway{}
		svc, _, cleanup := newPaymentServiceForTest(t, gateway)
		defer cleanup()

		booking, err := svc.ConfirmFromGatewaySession(context.Background(), "  ")
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.IsType(t, &models.InvalidBookingRequestError{}, err)
		assert.Zero(t, gateway.retrieveCalls)
	})

	t.Run("Duplicate Checked Before Gateway Call", func(t *testing.T) {
		gateway := &fakeGateway{}
		svc, mock, cleanup := newPaymentServiceForTest(t, gateway)
		defer cleanup()

		mock.ExpectQuery("SELECT COUNT(.+) FROM bookings WHERE stripe_session_id").
			WithArgs("cs_test_dup").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		booking, err := svc.ConfirmFromGatewaySession(context.Background(), "cs_test_dup")
		require.Error(t, err)
		assert.Nil(t, booking)

		var duplicate *models.DuplicatePaymentConfirmationError
		require.ErrorAs(t, err, &duplicate)
		assert.Equal(t, "cs_test_dup", duplicate.SessionID)
		assert.Zero(t, gateway.retrieveCalls, "gateway must not be called for a known session")

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Gateway Failure", func(t *testing.T) {
		gateway := &fakeGateway{err: assert.AnError}
		svc, mock, cleanup := newPaymentServiceForTest(t, gateway)
		defer cleanup()

		mock.ExpectQuery("SELECT COUNT(.+) FROM bookings WHERE stripe_session_id").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		booking, err := svc.ConfirmFromGatewaySession(context.Background(), "cs_test_down")
		require.Error(t, err)
		assert.Nil(t, booking)

		var gatewayErr *models.GatewayError
		require.ErrorAs(t, err, &gatewayErr)
		assert.Equal(t, "retrieve session", gatewayErr.Op)
	})

	t.Run("Payment Not Completed", func(t *testing.T) {
		gateway := &fakeGateway{session: &payment.CheckoutSession{
			ID:            "cs_test_unpaid",
			PaymentStatus: "unpaid",
		}}
		svc, mock, cleanup := newPaymentServiceForTest(t, gateway)
		defer cleanup()

		mock.ExpectQuery("SELECT COUNT(.+) FROM bookings WHERE stripe_session_id").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		booking, err := svc.ConfirmFromGatewaySession(context.Background(), "cs_test_unpaid")
		require.Error(t, err)
		assert.Nil(t, booking)

		var notPaid *models.PaymentNotCompletedError
		require.ErrorAs(t, err, &notPaid)
		assert.Equal(t, "unpaid", notPaid.Status)
	})

	t.Run("Malformed Metadata", func(t *testing.T) {
		gateway := &fakeGateway{session: &payment.CheckoutSession{
			ID:            "cs_test_paid",
			PaymentStatus: "paid",
			Metadata: map[string]string{
				"trainId":    "7",
				"travelDate": "2026-10-15",
				"seatIds":    "[12,31]",
				"passengers": "[]",
			},
		}}
		svc, mock, cleanup := newPaymentServiceForTest(t, gateway)
		defer cleanup()

		mock.ExpectQuery("SELECT COUNT(.+) FROM bookings WHERE stripe_session_id").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		booking, err := svc.ConfirmFromGatewaySession(context.Background(), "cs_test_paid")
		require.Error(t, err)
		assert.Nil(t, booking)

		var badMetadata *models.InvalidPaymentMetadataError
		require.ErrorAs(t, err, &badMetadata)
		assert.Equal(t, "userId", badMetadata.Field)
	})
}

func validMetadata() map[string]string {
	return map[string]string{
		"userId":      "42",
		"trainId":     "7",
		"travelDate":  "2026-10-15",
		"seatIds":     "[12,31]",
		"passengers":  `[{"name":"Asha Perera","age":34,"gender":"female","seat_id":12},{"name":"Ruwan Perera","age":36,"gender":"male","seat_id":31}]`,
		"fromStation": "Colombo Fort",
		"toStation":   "Kandy",
		"seatClass":   "Seating",
	}
}

func TestParseSessionMetadata(t *testing.T) {
	t.Run("Full Metadata", func(t *testing.T) {
		req, userID, err := parseSessionMetadata(validMetadata())
		require.NoError(t, err)
		assert.Equal(t, int64(42), userID)
		assert.Equal(t, int64(7), req.TrainID)
		assert.Equal(t, []int64{12, 31}, req.SeatIDs)
		require.Len(t, req.Passengers, 2)
		assert.Equal(t, int64(12), req.Passengers[0].SeatID)
		require.NotNil(t, req.FromStation)
		assert.Equal(t, "Colombo Fort", *req.FromStation)
		assert.NoError(t, req.Validate())
	})

	t.Run("Scalar Seat ID", func(t *testing.T) {
		md := validMetadata()
		md["seatIds"] = "12"
		md["passengers"] = `[{"name":"Asha Perera","age":34,"gender":"female","seat_id":12}]`

		req, _, err := parseSessionMetadata(md)
		require.NoError(t, err)
		assert.Equal(t, []int64{12}, req.SeatIDs)
		assert.NoError(t, req.Validate())
	})

	t.Run("Missing Fields", func(t *testing.T) {
		for _, field := range []string{"userId", "trainId", "travelDate", "seatIds", "passengers"} {
			md := validMetadata()
			delete(md, field)

			_, _, err := parseSessionMetadata(md)
			require.Error(t, err, "expected error for missing %s", field)

			var badMetadata *models.InvalidPaymentMetadataError
			require.ErrorAs(t, err, &badMetadata)
			assert.Equal(t, field, badMetadata.Field)
		}
	})

	t.Run("Bad Travel Date", func(t *testing.T) {
		md := validMetadata()
		md["travelDate"] = "15/10/2026"

		_, _, err := parseSessionMetadata(md)
		var badMetadata *models.InvalidPaymentMetadataError
		require.ErrorAs(t, err, &badMetadata)
		assert.Equal(t, "travelDate", badMetadata.Field)
	})

	t.Run("Bad Seat IDs", func(t *testing.T) {
		md := validMetadata()
		md["seatIds"] = "[12,oops]"

		_, _, err := parseSessionMetadata(md)
		var badMetadata *models.InvalidPaymentMetadataError
		require.ErrorAs(t, err, &badMetadata)
		assert.Equal(t, "seatIds", badMetadata.Field)
	})

	t.Run("Bad Passengers JSON", func(t *testing.T) {
		md := validMetadata()
		md["passengers"] = "{not json"

		_, _, err := parseSessionMetadata(md)
		var badMetadata *models.InvalidPaymentMetadataError
		require.ErrorAs(t, err, &badMetadata)
		assert.Equal(t, "passengers", badMetadata.Field)
	})
}
