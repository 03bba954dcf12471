package models

import "time"

// LedgerState tracks what happened to a gateway intent on our side.
type LedgerState string

const (
	LedgerOpen      LedgerState = "abierto"
	LedgerReserved  LedgerState = "reservado"
	LedgerRefunded  LedgerState = "reembolsado"
	LedgerAbandoned LedgerState = "abandonado"
)

// PaymentIntentRecord is the local ledger row of an intent opened at the
// gateway. It links the idempotency key to the eventual reservation.
type PaymentIntentRecord struct {
	IntentID       string
	IdempotencyKey string
	UserID         int64
	FlightID       int64
	PassengerCount int
	Kind           ReservationKind
	AmountMinor    int64
	Currency       string
	State          LedgerState
	ReservationID  *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
