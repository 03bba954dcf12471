package models

import (
	"fmt"
	"strings"
	"time"

	"flightbook/internal/domain"

	"github.com/shopspring/decimal"
)

type ReservationKind string

const (
	KindReservation ReservationKind = "reserva"
	KindPurchase    ReservationKind = "compra"
)

// ParseKind accepts the wire values plus their English aliases.
func ParseKind(s string) (ReservationKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reserva", "reservation":
		return KindReservation, true
	case "compra", "purchase":
		return KindPurchase, true
	default:
		return "", false
	}
}

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pendiente"
	StatusConfirmed ReservationStatus = "confirmado"
	StatusCancelled ReservationStatus = "cancelado"
	// StatusCompleted is reserved for settlement and never set here.
	StatusCompleted ReservationStatus = "completado"
)

// InitialStatus is the status a new record starts in.
func InitialStatus(kind ReservationKind) ReservationStatus {
	if kind == KindPurchase {
		return StatusConfirmed
	}
	return StatusPending
}

// NormalizePassengers applies the minimum of one passenger.
func NormalizePassengers(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// MaxPassengers caps a single reservation or payment.
const MaxPassengers = 9

// CheckPassengers normalises n and rejects counts above MaxPassengers.
func CheckPassengers(n int) (int, error) {
	if n > MaxPassengers {
		return 0, domain.ValidationError{Field: "numeroPasajeros", Msg: fmt.Sprintf("must be at most %d", MaxPassengers)}
	}
	return NormalizePassengers(n), nil
}

// TotalPrice is base × max(1, passengers). It is computed once per reservation.
func TotalPrice(base decimal.Decimal, passengers int) decimal.Decimal {
	return base.Mul(decimal.NewFromInt(int64(NormalizePassengers(passengers))))
}

const DefaultCancelReason = "Cancelled by customer"

type Reservation struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"userId"`
	FlightID        int64             `json:"flightId"`
	Kind            ReservationKind   `json:"tipo"`
	Status          ReservationStatus `json:"estado"`
	TotalPrice      decimal.Decimal   `json:"precioTotal"`
	PassengerCount  int               `json:"numeroPasajeros"`
	Notes           *string           `json:"notas,omitempty"`
	PaymentIntentID *string           `json:"paymentIntentId,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	CancelledAt     *time.Time        `json:"canceladoEn,omitempty"`
	CancelReason    *string           `json:"motivoCancelacion,omitempty"`
}

// ReservationTransition is an atomic conditional state change. It applies
// only while the stored row still has FromStatus (and FromKind, when set).
type ReservationTransition struct {
	FromStatus   ReservationStatus
	FromKind     ReservationKind
	ToStatus     ReservationStatus
	ToKind       ReservationKind
	CancelledAt  *time.Time
	CancelReason *string
	At           time.Time
}

// Matches reports whether r satisfies the transition's preconditions.
func (t ReservationTransition) Matches(r Reservation) bool {
	if r.Status != t.FromStatus {
		return false
	}
	return t.FromKind == "" || r.Kind == t.FromKind
}

// Apply writes the target state onto r.
func (t ReservationTransition) Apply(r *Reservation) {
	r.Status = t.ToStatus
	if t.ToKind != "" {
		r.Kind = t.ToKind
	}
	if t.CancelledAt != nil {
		at := *t.CancelledAt
		r.CancelledAt = &at
	}
	if t.CancelReason != nil {
		reason := *t.CancelReason
		r.CancelReason = &reason
	}
	r.UpdatedAt = t.At
}

// ReservationDetail joins a reservation with its user and flight for display.
type ReservationDetail struct {
	Reservation
	Flight *FlightSummary `json:"vuelo,omitempty"`
	User   *UserSummary   `json:"usuario,omitempty"`
}
