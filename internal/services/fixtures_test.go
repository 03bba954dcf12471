package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"flightbook/internal/domain"
	"flightbook/internal/domain/models"
	"flightbook/internal/gateway"
	"flightbook/internal/metrics"
	"flightbook/internal/repositories/memory"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// world wires every service over one memory store and a fake gateway.
type world struct {
	store   *memory.Store
	gw      *gateway.Fake
	metrics *metrics.Metrics
	now     time.Time

	flights      FlightService
	reservations ReservationService
	payments     PaymentService
	reconciler   Reconciler
	auth         AuthService
	admin        UserAdminService
	docs         DocsService
	reports      ReportsService

	customer models.User
	other    models.User
	root     models.User
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{store: memory.New(), gw: gateway.NewFake(), metrics: metrics.NewMetrics(), now: testNow}
	clock := func() time.Time { return w.now }

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	w.customer = w.store.PutUser(models.User{Name: "Ana Gomez", Username: "ana", Email: "ana@example.com", PasswordHash: string(hash), Role: "customer", Status: "active"})
	w.other = w.store.PutUser(models.User{Name: "Luis Perez", Username: "luis", Email: "luis@example.com", PasswordHash: string(hash), Role: "customer", Status: "active"})
	w.root = w.store.PutUser(models.User{Name: "Root", Username: "root", Email: "root@example.com", PasswordHash: string(hash), Role: "root", Status: "active"})

	w.flights = FlightService{Flights: w.store.Flights(), Reservations: w.store.Reservations(), Now: clock}
	w.reservations = ReservationService{
		Flights:      w.store.Flights(),
		Reservations: w.store.Reservations(),
		Users:        w.store.Users(),
		Payments:     w.store.Payments(),
		Gateway:      w.gw,
		Metrics:      w.metrics,
		Now:          clock,
	}
	w.payments = PaymentService{Flights: w.store.Flights(), Payments: w.store.Payments(), Gateway: w.gw, Currency: "COP", Now: clock}
	w.reconciler = Reconciler{
		Payments:     w.store.Payments(),
		Reservations: w.store.Reservations(),
		Flights:      w.store.Flights(),
		Users:        w.store.Users(),
		Gateway:      w.gw,
		Engine:       w.reservations,
		Grace:        15 * time.Minute,
		Metrics:      w.metrics,
		Now:          clock,
	}
	w.auth = AuthService{Users: w.store.Users(), Secret: []byte("test-secret"), TTL: time.Hour, Now: clock}
	w.admin = UserAdminService{Users: w.store.Users(), Payments: w.store.Payments(), Now: clock}
	w.docs = DocsService{Reservations: w.reservations, Currency: "COP", Now: clock}
	w.reports = ReportsService{Reports: w.store.Reports()}
	return w
}

// flight stores a scheduled flight departing in three days.
func (w *world) flight(id int64, price int64) models.Flight {
	return w.store.PutFlight(models.Flight{
		ID:              id,
		DepartureAt:     w.now.Add(72 * time.Hour),
		Origin:          "BOG",
		Destination:     "MDE",
		DurationMinutes: 55,
		BasePrice:       decimal.NewFromInt(price),
		CreatedAt:       w.now,
		UpdatedAt:       w.now,
	})
}

func (w *world) book(t *testing.T, userID, flightID int64, kind string, passengers int) models.ReservationDetail {
	t.Helper()
	d, err := w.reservations.Create(context.Background(), userID, CreateReservationInput{FlightID: flightID, Kind: kind, PassengerCount: passengers})
	if err != nil {
		t.Fatalf("create reservation: %v", err)
	}
	return d
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func assertConflict(t *testing.T, err error, msg string) {
	t.Helper()
	var ce domain.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %T %v", err, err)
	}
	if msg != "" && ce.Msg != msg {
		t.Fatalf("expected conflict %q, got %q", msg, ce.Msg)
	}
}
