package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(serverURL string) *StripeGateway {
	return NewStripeGateway(Config{
		SecretKey:  "sk_test_secret",
		APIBaseURL: serverURL,
	}, logrus.New())
}

func TestRetrieveSession(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/v1/checkout/sessions/cs_test_123", r.URL.Path)
			assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"id": "cs_test_123",
				"payment_status": "paid",
				"status": "complete",
				"currency": "lkr",
				"amount_total": 300000,
				"metadata": {"trainId": "7", "userId": "42"}
			}`))
		}))
		defer server.Close()

		gateway := newTestGateway(server.URL)
		session, err := gateway.RetrieveSession(context.Background(), "cs_test_123")
		require.NoError(t, err)
		assert.Equal(t, "cs_test_123", session.ID)
		assert.Equal(t, "paid", session.PaymentStatus)
		assert.Equal(t, int64(300000), session.AmountTotal)
		assert.Equal(t, "7", session.Metadata["trainId"])
	})

	t.Run("API Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "No such checkout session"}}`))
		}))
		defer server.Close()

		gateway := newTestGateway(server.URL)
		session, err := gateway.RetrieveSession(context.Background(), "cs_test_missing")
		require.Error(t, err)
		assert.Nil(t, session)
		assert.Contains(t, err.Error(), "No such checkout session")
	})

	t.Run("Server Unreachable", func(t *testing.T) {
		gateway := newTestGateway("http://127.0.0.1:1")
		session, err := gateway.RetrieveSession(context.Background(), "cs_test_123")
		require.Error(t, err)
		assert.Nil(t, session)
	})
}

func TestCreateCheckoutSession(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
			assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

			require.NoError(t, r.ParseForm())
			assert.Equal(t, "payment", r.PostForm.Get("mode"))
			assert.Equal(t, "lkr", r.PostForm.Get("line_items[0][price_data][currency]"))
			assert.Equal(t, "300000", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
			assert.Equal(t, "https://example.com/success", r.PostForm.Get("success_url"))
			assert.Equal(t, "7", r.PostForm.Get("metadata[trainId]"))
			assert.Equal(t, "[12,31]", r.PostForm.Get("metadata[seatIds]"))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"id": "cs_test_new",
				"url": "https://checkout.stripe.com/c/pay/cs_test_new",
				"payment_status": "unpaid",
				"status": "open"
			}`))
		}))
		defer server.Close()

		gateway := newTestGateway(server.URL)
		session, err := gateway.CreateCheckoutSession(context.Background(), &CreateSessionParams{
			Amount:      300000,
			Currency:    "lkr",
			Description: "Udarata Menike: Colombo Fort to Kandy on 2026-10-15",
			SuccessURL:  "https://example.com/success",
			CancelURL:   "https://example.com/cancel",
			Metadata: map[string]string{
				"trainId": "7",
				"seatIds": "[12,31]",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "cs_test_new", session.ID)
		assert.NotEmpty(t, session.URL)
	})

	t.Run("API Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": {"type": "authentication_error", "message": "Invalid API Key"}}`))
		}))
		defer server.Close()

		gateway := newTestGateway(server.URL)
		session, err := gateway.CreateCheckoutSession(context.Background(), &CreateSessionParams{
			Amount:   100,
			Currency: "lkr",
		})
		require.Error(t, err)
		assert.Nil(t, session)
		assert.Contains(t, err.Error(), "Invalid API Key")
	})
}
