package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"flightbook/internal/domain"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type StripeConfig struct {
	SecretKey string
	// APIURL overrides the processor endpoint; empty uses the default.
	APIURL  string
	Timeout time.Duration
}

// Stripe talks to the processor through stripe-go with SDK retries disabled.
type Stripe struct {
	api     *client.API
	timeout time.Duration
}

func NewStripe(cfg StripeConfig) *Stripe {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	bc := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if u := strings.TrimSpace(cfg.APIURL); u != "" {
		bc.URL = stripe.String(u)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, bc)
	api := client.New(cfg.SecretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, bc),
	})
	return &Stripe{api: api, timeout: timeout}
}

func (s *Stripe) CreateIntent(ctx context.Context, req CreateIntentRequest) (Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.AmountMinor),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata.Map() {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, classify("create_intent", err)
	}
	return fromStripe(pi), nil
}

func (s *Stripe) RetrieveIntent(ctx context.Context, id string) (Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		return Intent{}, classify("retrieve_intent", err)
	}
	return fromStripe(pi), nil
}

func (s *Stripe) Refund(ctx context.Context, intentID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.RefundParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + intentID)
	if _, err := s.api.Refunds.New(params); err != nil {
		return classify("refund", err)
	}
	return nil
}

func fromStripe(pi *stripe.PaymentIntent) Intent {
	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

func classify(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.HTTPStatusCode == http.StatusNotFound || se.Code == stripe.ErrorCodeResourceMissing {
			return ErrIntentNotFound
		}
		retryable := se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= 500
		return domain.GatewayError{Op: op, Retryable: retryable, Err: err}
	}
	// transport failures and timeouts
	return domain.GatewayError{Op: op, Retryable: true, Err: err}
}
