package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flightbook/internal/domain"
	"flightbook/internal/domain/models"
	"flightbook/internal/gateway"
	"flightbook/internal/repositories"
	"flightbook/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxIdempotencyKeyLength = 100

type ChargeIntentInput struct {
	FlightID       int64  `json:"flightId"`
	PassengerCount int    `json:"numeroPasajeros"`
	Kind           string `json:"tipo"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type ChargeIntent struct {
	PaymentIntentID string               `json:"paymentIntentId"`
	ClientSecret    string               `json:"clientSecret"`
	Total           decimal.Decimal      `json:"total"`
	Currency        string               `json:"currency"`
	IdempotencyKey  string               `json:"idempotencyKey"`
	Flight          models.FlightSummary `json:"flight"`
}

type ChargeStatus struct {
	PaymentIntentID string            `json:"paymentIntentId"`
	Status          string            `json:"status"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency"`
	Metadata        map[string]string `json:"metadata"`
}

// PaymentService opens gateway intents priced from the flight. It never
// creates reservations itself.
type PaymentService struct {
	Flights  repositories.FlightStore
	Payments repositories.PaymentLedger
	Gateway  gateway.Gateway
	Currency string
	Log      utils.Logger
	Now      utils.Clock
}

func (s PaymentService) currency() string {
	if c := strings.TrimSpace(s.Currency); c != "" {
		return strings.ToLower(c)
	}
	return "cop"
}

func (s PaymentService) CreateChargeIntent(ctx context.Context, userID int64, in ChargeIntentInput) (ChargeIntent, error) {
	kind, ok := models.ParseKind(in.Kind)
	if !ok {
		return ChargeIntent{}, domain.ValidationError{Field: "tipo", Msg: "must be reserva or compra"}
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}
	if len(key) > maxIdempotencyKeyLength {
		return ChargeIntent{}, domain.ValidationError{Field: "idempotencyKey", Msg: fmt.Sprintf("must be at most %d characters", maxIdempotencyKeyLength)}
	}

	passengers, err := models.CheckPassengers(in.PassengerCount)
	if err != nil {
		return ChargeIntent{}, err
	}
	f, err := bookableFlight(ctx, s.Flights, in.FlightID)
	if err != nil {
		return ChargeIntent{}, err
	}

	if existing, err := s.Payments.GetByKey(ctx, userID, key); err == nil {
		return s.replay(ctx, existing, f, passengers, kind)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return ChargeIntent{}, storeError("payment intent", err)
	}

	total := models.TotalPrice(f.BasePrice, passengers)
	amount, err := utils.ToMinorUnits(total)
	if err != nil {
		return ChargeIntent{}, domain.ValidationError{Field: "numeroPasajeros", Msg: "total is too large to charge", Err: err}
	}
	intent, err := s.Gateway.CreateIntent(ctx, gateway.CreateIntentRequest{
		AmountMinor: amount,
		Currency:    s.currency(),
		Description: describe(kind, f, passengers),
		Metadata: gateway.Metadata{
			UserID:         userID,
			FlightID:       f.ID,
			PassengerCount: passengers,
			Kind:           string(kind),
			IdempotencyKey: key,
		},
		IdempotencyKey: ledgerKey(userID, key),
	})
	if err != nil {
		logOrNop(s.Log).Warn("create intent failed", "flight_id", f.ID, "error", err)
		return ChargeIntent{}, gatewayError("create_intent", err)
	}

	now := nowFrom(s.Now)
	rec := models.PaymentIntentRecord{
		IntentID:       intent.ID,
		IdempotencyKey: key,
		UserID:         userID,
		FlightID:       f.ID,
		PassengerCount: passengers,
		Kind:           kind,
		AmountMinor:    amount,
		Currency:       s.currency(),
		State:          models.LedgerOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Payments.Create(ctx, rec); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		// the intent exists at the gateway; the reconciler cannot see it
		// without a ledger row, so surface the failure
		return ChargeIntent{}, storeError("payment intent", err)
	}
	logOrNop(s.Log).LogEvent(requestID(ctx), "payments", "create_intent",
		fmt.Sprintf("intent %s for flight %s x%d", intent.ID, f.FlightCode, passengers))

	return ChargeIntent{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Total:           total,
		Currency:        s.currency(),
		IdempotencyKey:  key,
		Flight:          f.Summary(),
	}, nil
}

// replay answers a repeated key with the intent it opened the first time.
func (s PaymentService) replay(ctx context.Context, rec models.PaymentIntentRecord, f models.Flight, passengers int, kind models.ReservationKind) (ChargeIntent, error) {
	if rec.FlightID != f.ID || rec.PassengerCount != passengers || rec.Kind != kind {
		return ChargeIntent{}, domain.ConflictError{Resource: "payment intent", Msg: "idempotency key was used for a different request"}
	}
	intent, err := s.Gateway.RetrieveIntent(ctx, rec.IntentID)
	if err != nil {
		return ChargeIntent{}, gatewayError("retrieve_intent", err)
	}
	return ChargeIntent{
		PaymentIntentID: rec.IntentID,
		ClientSecret:    intent.ClientSecret,
		Total:           utils.FromMinorUnits(rec.AmountMinor),
		Currency:        rec.Currency,
		IdempotencyKey:  rec.IdempotencyKey,
		Flight:          f.Summary(),
	}, nil
}

// GetChargeStatus reads an intent back from the gateway. Intents opened for
// another user are reported as missing.
func (s PaymentService) GetChargeStatus(ctx context.Context, userID int64, intentID string) (ChargeStatus, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return ChargeStatus{}, domain.ValidationError{Field: "intentId", Msg: "is required"}
	}
	intent, err := s.Gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return ChargeStatus{}, gatewayError("retrieve_intent", err)
	}
	meta, err := gateway.ParseMetadata(intent.Metadata)
	if err != nil || meta.UserID != userID {
		return ChargeStatus{}, domain.NotFoundError{Resource: "payment intent"}
	}
	return ChargeStatus{
		PaymentIntentID: intent.ID,
		Status:          intent.Status,
		Amount:          utils.FromMinorUnits(intent.AmountMinor),
		Currency:        intent.Currency,
		Metadata:        intent.Metadata,
	}, nil
}

func describe(kind models.ReservationKind, f models.Flight, passengers int) string {
	label := "Reserva"
	if kind == models.KindPurchase {
		label = "Compra"
	}
	return fmt.Sprintf("%s vuelo %s %s→%s x%d", label, f.FlightCode, f.Origin, f.Destination, passengers)
}

// ledgerKey scopes client keys per user before they reach the gateway.
func ledgerKey(userID int64, key string) string {
	return fmt.Sprintf("u%d-%s", userID, key)
}
