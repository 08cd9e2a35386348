package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CheckoutSession represents a Stripe Checkout session as consumed by the
// booking core: its payment status and the opaque metadata attached at
// creation time.
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	Currency      string            `json:"currency"`
	AmountTotal   int64             `json:"amount_total"`
	Metadata      map[string]string `json:"metadata"`
}

// CreateSessionParams carries the inputs for creating a checkout session
type CreateSessionParams struct {
	Amount      int64 // smallest currency unit
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// Gateway is the payment-provider interface consumed by the booking core
type Gateway interface {
	RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	CreateCheckoutSession(ctx context.Context, params *CreateSessionParams) (*CheckoutSession, error)
}

// Config holds Stripe API configuration
type Config struct {
	SecretKey  string
	APIBaseURL string // defaults to https://api.stripe.com
}

// StripeGateway implements Gateway against the Stripe Checkout REST API
type StripeGateway struct {
	secretKey string
	baseURL   string
	client    *http.Client
	logger    *logrus.Logger
}

// NewStripeGateway creates a new StripeGateway
func NewStripeGateway(cfg Config, logger *logrus.Logger) *StripeGateway {
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &StripeGateway{
		secretKey: cfg.SecretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// stripeError is the error envelope returned by the Stripe API
type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RetrieveSession fetches a checkout session by id
func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	endpoint := fmt.Sprintf("%s/v1/checkout/sessions/%s", g.baseURL, url.PathEscape(sessionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, g.apiError(resp.StatusCode, body)
	}

	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"session_id":     session.ID,
		"payment_status": session.PaymentStatus,
	}).Debug("Retrieved checkout session")

	return &session, nil
}

// CreateCheckoutSession creates a checkout session carrying the supplied
// metadata. The metadata is returned verbatim when the session is retrieved
// after payment, which is how booking parameters survive the redirect.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, params *CreateSessionParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", params.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.Amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", params.Description)
	for k, v := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	endpoint := g.baseURL + "/v1/checkout/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, g.apiError(resp.StatusCode, body)
	}

	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"amount":     params.Amount,
		"currency":   params.Currency,
	}).Info("Checkout session created")

	return &session, nil
}

func (g *StripeGateway) apiError(status int, body []byte) error {
	var apiErr stripeError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("stripe API error (HTTP %d, %s): %s", status, apiErr.Error.Type, apiErr.Error.Message)
	}
	return fmt.Errorf("stripe API error (HTTP %d)", status)
}
