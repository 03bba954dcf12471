package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flightbook/internal/domain"
	"flightbook/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func TestReservationLifecycle(t *testing.T) {
	w := newWorld(t)
	f := w.flight(12, 150000)
	ctx := context.Background()

	d := w.book(t, w.customer.ID, f.ID, "reserva", 2)
	if d.Status != models.StatusPending || d.Kind != models.KindReservation {
		t.Fatalf("unexpected initial state %s/%s", d.Status, d.Kind)
	}
	if !d.TotalPrice.Equal(decimal.NewFromInt(300000)) {
		t.Fatalf("total = %s", d.TotalPrice)
	}
	if d.Flight == nil || d.Flight.FlightCode != "AV012" {
		t.Fatalf("missing flight summary: %+v", d.Flight)
	}
	if d.User == nil || d.User.Email != w.customer.Email {
		t.Fatalf("missing user summary: %+v", d.User)
	}

	converted, err := w.reservations.ConvertToPurchase(ctx, d.ID, w.customer.ID)
	if err != nil {
		t.Fatalf("ConvertToPurchase returned error: %v", err)
	}
	if converted.Status != models.StatusConfirmed || converted.Kind != models.KindPurchase {
		t.Fatalf("unexpected converted state %s/%s", converted.Status, converted.Kind)
	}
	if !converted.TotalPrice.Equal(d.TotalPrice) {
		t.Fatalf("conversion must not re-price: %s", converted.TotalPrice)
	}

	w.now = w.now.Add(time.Minute)
	cancelled, err := w.reservations.Cancel(ctx, d.ID, w.customer.ID, "")
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if cancelled.Status != models.StatusCancelled || cancelled.CancelledAt == nil || !cancelled.CancelledAt.Equal(w.now) {
		t.Fatalf("unexpected cancelled state %+v", cancelled.Reservation)
	}
	if cancelled.CancelReason == nil || *cancelled.CancelReason != models.DefaultCancelReason {
		t.Fatalf("default reason not applied: %v", cancelled.CancelReason)
	}

	_, err = w.reservations.Cancel(ctx, d.ID, w.customer.ID, "again")
	assertConflict(t, err, "reservation already cancelled")
	if got := testutil.ToFloat64(w.metrics.ReservationTransition.WithLabelValues("cancel", "conflict")); got != 1 {
		t.Fatalf("cancel conflict counter = %v", got)
	}
}

func TestPurchaseStartsConfirmed(t *testing.T) {
	w := newWorld(t)
	f := w.flight(0, 80000)
	d := w.book(t, w.customer.ID, f.ID, "compra", 0)
	if d.Status != models.StatusConfirmed || d.PassengerCount != 1 || !d.TotalPrice.Equal(decimal.NewFromInt(80000)) {
		t.Fatalf("unexpected purchase %+v", d.Reservation)
	}
	_, err := w.reservations.ConvertToPurchase(context.Background(), d.ID, w.customer.ID)
	assertConflict(t, err, "reservation is already a purchase")
}

func TestTotalPriceSurvivesFlightPriceChange(t *testing.T) {
	w := newWorld(t)
	f := w.flight(0, 100000)
	d := w.book(t, w.customer.ID, f.ID, "reserva", 3)

	price := decimal.NewFromInt(999999)
	if _, err := w.flights.UpdateFlight(context.Background(), f.ID, FlightInput{BasePrice: &price}); err != nil {
		t.Fatalf("UpdateFlight returned error: %v", err)
	}
	got, err := w.reservations.Get(context.Background(), d.ID, w.customer.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !got.TotalPrice.Equal(decimal.NewFromInt(300000)) {
		t.Fatalf("total changed after price edit: %s", got.TotalPrice)
	}
	if !got.Flight.BasePrice.Equal(price) {
		t.Fatalf("flight summary should show the current price")
	}
}

func TestForeignReservationIsNotFound(t *testing.T) {
	w := newWorld(t)
	f := w.flight(0, 1000)
	d := w.book(t, w.customer.ID, f.ID, "reserva", 1)
	ctx := context.Background()

	if _, err := w.reservations.Get(ctx, d.ID, w.other.ID); !domain.IsNotFound(err) {
		t.Fatalf("Get: expected not found, got %v", err)
	}
	if _, err := w.reservations.Cancel(ctx, d.ID, w.other.ID, ""); !domain.IsNotFound(err) {
		t.Fatalf("Cancel: expected not found, got %v", err)
	}
	if _, err := w.reservations.ConvertToPurchase(ctx, d.ID, w.other.ID); !domain.IsNotFound(err) {
		t.Fatalf("Convert: expected not found, got %v", err)
	}
	if _, _, err := w.docs.GenerateTicket(ctx, d.ID, w.other.ID); !domain.IsNotFound(err) {
		t.Fatalf("Ticket: expected not found, got %v", err)
	}
}

func TestCancelAfterDepartureConflicts(t *testing.T) {
	w := newWorld(t)
	f := w.flight(0, 1000)
	d := w.book(t, w.customer.ID, f.ID, "compra", 1)

	w.now = f.DepartureAt.Add(time.Minute)
	_, err := w.reservations.Cancel(context.Background(), d.ID, w.customer.ID, "late")
	assertConflict(t, err, "flight already departed")
}

func TestConvertAfterDepartureConflicts(t *testing.T) {
	w := newWorld(t)
	f := w.flight(0, 1000)
	d := w.book(t, w.customer.ID, f.ID, "reserva", 1)

	w.now = f.DepartureAt.Add(time.Minute)
	_, err := w.reservations.ConvertToPurchase(context.Background(), d.ID, w.customer.ID)
	assertConflict(t, err, "flight already departed")

	got, _ := w.store.Reservations().GetForUser(context.Background(), d.ID, w.customer.ID)
	if got.Kind != models.KindReservation || got.Status != models.StatusPending {
		t.Fatalf("reservation must stay pending, got %s/%s", got.Kind, got.Status)
	}
}

func TestCancelledReservationCannotBeConverted(t *testing.T) {
	w := newWorld(t)
	f := w.flight(0, 1000)
	d := w.book(t, w.customer.ID, f.ID, "reserva", 1)
	if _, err := w.reservations.Cancel(context.Background(), d.ID, w.customer.ID, "plans changed"); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	_, err := w.reservations.ConvertToPurchase(context.Background(), d.ID, w.customer.ID)
	assertConflict(t, err, "cancelled reservation cannot be purchased")
}

func TestConcurrentCancelHasOneWinner(t *testing.T) {
	w := newWorld(t)
	f := w.flight(0, 1000)
	d := w.book(t, w.customer.ID, f.ID, "reserva", 1)

	const racers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.reservations.Cancel(context.Background(), d.ID, w.customer.ID, "")
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !domain.IsConflict(err) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one successful cancel, got %d", wins)
	}
}

func TestCreateReservationValidation(t *testing.T) {
	w := newWorld(t)
	f := w.flight(0, 1000)
	ctx := context.Background()

	if _, err := w.reservations.Create(ctx, w.customer.ID, CreateReservationInput{FlightID: f.ID, Kind: "gift"}); !domain.IsValidation(err) {
		t.Fatalf("bad kind: expected validation, got %v", err)
	}
	if _, err := w.reservations.Create(ctx, w.customer.ID, CreateReservationInput{Kind: "reserva"}); !domain.IsValidation(err) {
		t.Fatalf("missing flight: expected validation, got %v", err)
	}
	if _, err := w.reservations.Create(ctx, w.customer.ID, CreateReservationInput{FlightID: 404, Kind: "reserva"}); !domain.IsNotFound(err) {
		t.Fatalf("unknown flight: expected not found, got %v", err)
	}
	long := make([]byte, maxNotesLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := w.reservations.Create(ctx, w.customer.ID, CreateReservationInput{FlightID: f.ID, Kind: "reserva", Notes: string(long)}); !domain.IsValidation(err) {
		t.Fatalf("long notes: expected validation, got %v", err)
	}
}

func TestCreateReservationCapsPassengers(t *testing.T) {
	w := newWorld(t)
	f := w.flight(0, 150000)
	ctx := context.Background()

	for _, n := range []int{models.MaxPassengers + 1, 1229782938248} {
		_, err := w.reservations.Create(ctx, w.customer.ID, CreateReservationInput{FlightID: f.ID, Kind: "compra", PassengerCount: n})
		var ve domain.ValidationError
		if !errors.As(err, &ve) || ve.Field != "numeroPasajeros" {
			t.Fatalf("passengers=%d: expected numeroPasajeros validation, got %v", n, err)
		}
	}
	if list, _ := w.store.Reservations().ListByUser(ctx, w.customer.ID); len(list) != 0 {
		t.Fatalf("rejected requests must not persist, got %d rows", len(list))
	}

	d := w.book(t, w.customer.ID, f.ID, "compra", models.MaxPassengers)
	if !d.TotalPrice.Equal(decimal.NewFromInt(150000 * models.MaxPassengers)) {
		t.Fatalf("unexpected total at the cap: %s", d.TotalPrice)
	}
}

func TestHistoryIsNewestFirst(t *testing.T) {
	w := newWorld(t)
	f := w.flight(0, 1000)
	first := w.book(t, w.customer.ID, f.ID, "reserva", 1)
	w.now = w.now.Add(time.Minute)
	second := w.book(t, w.customer.ID, f.ID, "compra", 1)
	w.book(t, w.other.ID, f.ID, "compra", 1)

	list, err := w.reservations.History(context.Background(), w.customer.ID)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("unexpected history order %+v", list)
	}
	if list[0].Flight == nil || list[0].Flight.ID != f.ID {
		t.Fatalf("history rows need flight data")
	}
}
