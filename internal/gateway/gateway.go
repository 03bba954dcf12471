// Package gateway is the contract the booking core needs from the external
// card processor, plus a Stripe implementation and an in-process fake.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Intent statuses the core reacts to. Anything else is passed through.
const (
	StatusSucceeded = "succeeded"
	StatusCanceled  = "canceled"
	StatusPending   = "requires_payment_method"
)

// ErrIntentNotFound is returned when the processor has no such intent.
var ErrIntentNotFound = errors.New("payment intent not found")

// Metadata correlates an intent with the booking it pays for.
type Metadata struct {
	UserID         int64  `json:"userId"`
	FlightID       int64  `json:"flightId"`
	PassengerCount int    `json:"passengerCount"`
	Kind           string `json:"kind"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// Map renders metadata as the processor's flat string map.
func (m Metadata) Map() map[string]string {
	out := map[string]string{
		"userId":         strconv.FormatInt(m.UserID, 10),
		"flightId":       strconv.FormatInt(m.FlightID, 10),
		"passengerCount": strconv.Itoa(m.PassengerCount),
		"kind":           m.Kind,
	}
	if m.IdempotencyKey != "" {
		out["idempotencyKey"] = m.IdempotencyKey
	}
	return out
}

// ParseMetadata reads the processor map back. Missing numeric keys fail.
func ParseMetadata(raw map[string]string) (Metadata, error) {
	var (
		m   Metadata
		err error
	)
	if m.UserID, err = strconv.ParseInt(strings.TrimSpace(raw["userId"]), 10, 64); err != nil {
		return Metadata{}, fmt.Errorf("metadata userId: %w", err)
	}
	if m.FlightID, err = strconv.ParseInt(strings.TrimSpace(raw["flightId"]), 10, 64); err != nil {
		return Metadata{}, fmt.Errorf("metadata flightId: %w", err)
	}
	if m.PassengerCount, err = strconv.Atoi(strings.TrimSpace(raw["passengerCount"])); err != nil {
		return Metadata{}, fmt.Errorf("metadata passengerCount: %w", err)
	}
	m.Kind = strings.TrimSpace(raw["kind"])
	m.IdempotencyKey = strings.TrimSpace(raw["idempotencyKey"])
	return m, nil
}

type CreateIntentRequest struct {
	AmountMinor    int64
	Currency       string
	Description    string
	Metadata       Metadata
	IdempotencyKey string
}

// Intent is the slice of a processor intent the core reads.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountMinor  int64
	Currency     string
	Metadata     map[string]string
}

type Gateway interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (Intent, error)
	RetrieveIntent(ctx context.Context, id string) (Intent, error)
	// Refund returns the full captured amount of the intent.
	Refund(ctx context.Context, intentID string) error
}
