package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"flightbook/internal/domain"
	"flightbook/internal/domain/models"

	"github.com/shopspring/decimal"
)

func flightInput() FlightInput {
	price := decimal.NewFromInt(150000)
	intl := false
	return FlightInput{
		DepartureTime:   strPtr("2026-03-10T08:30:00Z"),
		Origin:          strPtr("  Bogota  "),
		Destination:     strPtr("Medellin"),
		DurationMinutes: intPtr(55),
		International:   &intl,
		BasePrice:       &price,
	}
}

func TestCreateFlightAssignsCodeFromID(t *testing.T) {
	w := newWorld(t)
	for i := 0; i < 6; i++ {
		w.flight(0, 1000)
	}

	f, err := w.flights.CreateFlight(context.Background(), flightInput())
	if err != nil {
		t.Fatalf("CreateFlight returned error: %v", err)
	}
	if f.ID != 7 || f.FlightCode != "AV007" {
		t.Fatalf("unexpected id/code %d %q", f.ID, f.FlightCode)
	}
	if f.Origin != "Bogota" || f.Status != models.FlightScheduled {
		t.Fatalf("unexpected flight %+v", f)
	}
	if !f.CreatedAt.Equal(testNow) {
		t.Fatalf("createdAt should come from the clock, got %v", f.CreatedAt)
	}
}

func TestCreateFlightReportsEveryInvalidField(t *testing.T) {
	w := newWorld(t)
	in := flightInput()
	in.Origin = strPtr("   ")
	in.DurationMinutes = intPtr(0)
	neg := decimal.NewFromInt(-1)
	in.BasePrice = &neg
	in.DepartureTime = nil

	_, err := w.flights.CreateFlight(context.Background(), in)
	var ve domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := map[string]bool{}
	for _, issue := range ve.AllIssues() {
		fields[issue.Field] = true
	}
	for _, want := range []string{"departureTime", "origin", "durationMinutes", "basePrice"} {
		if !fields[want] {
			t.Fatalf("missing issue for %s in %+v", want, ve.AllIssues())
		}
	}
}

func TestUpdateFlightTouchesOnlyPresentFields(t *testing.T) {
	w := newWorld(t)
	f := w.flight(3, 100000)
	w.now = w.now.Add(time.Hour)

	price := decimal.NewFromInt(120000)
	got, err := w.flights.UpdateFlight(context.Background(), f.ID, FlightInput{BasePrice: &price})
	if err != nil {
		t.Fatalf("UpdateFlight returned error: %v", err)
	}
	if !got.BasePrice.Equal(price) || got.Origin != f.Origin || got.FlightCode != "AV003" {
		t.Fatalf("unexpected flight %+v", got)
	}
	if !got.UpdatedAt.Equal(w.now) {
		t.Fatalf("updatedAt not bumped: %v", got.UpdatedAt)
	}

	_, err = w.flights.UpdateFlight(context.Background(), f.ID, FlightInput{})
	if !domain.IsValidation(err) {
		t.Fatalf("empty patch should be a validation error, got %v", err)
	}
	_, err = w.flights.UpdateFlight(context.Background(), 99, FlightInput{BasePrice: &price})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCancelFlightTwiceConflicts(t *testing.T) {
	w := newWorld(t)
	f := w.flight(0, 1000)

	got, err := w.flights.CancelFlight(context.Background(), f.ID)
	if err != nil {
		t.Fatalf("CancelFlight returned error: %v", err)
	}
	if got.Status != models.FlightCancelled {
		t.Fatalf("status = %s", got.Status)
	}
	_, err = w.flights.CancelFlight(context.Background(), f.ID)
	assertConflict(t, err, "flight already cancelled")
}

func TestCancelledFlightTakesNoBookingsButKeepsExisting(t *testing.T) {
	w := newWorld(t)
	f := w.flight(0, 1000)
	d := w.book(t, w.customer.ID, f.ID, "reserva", 1)

	if _, err := w.flights.CancelFlight(context.Background(), f.ID); err != nil {
		t.Fatalf("CancelFlight returned error: %v", err)
	}
	_, err := w.reservations.Create(context.Background(), w.customer.ID, CreateReservationInput{FlightID: f.ID, Kind: "compra"})
	assertConflict(t, err, "flight is cancelled")

	kept, err := w.reservations.Get(context.Background(), d.ID, w.customer.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if kept.Status != models.StatusPending {
		t.Fatalf("existing reservation must be untouched, got %s", kept.Status)
	}
}

func TestDeleteFlightBlockedByReservations(t *testing.T) {
	w := newWorld(t)
	booked := w.flight(0, 1000)
	free := w.flight(0, 1000)
	w.book(t, w.customer.ID, booked.ID, "reserva", 1)

	assertConflict(t, w.flights.DeleteFlight(context.Background(), booked.ID), "flight has 1 reservations")
	if err := w.flights.DeleteFlight(context.Background(), free.ID); err != nil {
		t.Fatalf("DeleteFlight returned error: %v", err)
	}
	if _, err := w.flights.GetFlight(context.Background(), free.ID); !domain.IsNotFound(err) {
		t.Fatalf("deleted flight still visible: %v", err)
	}
}

func TestSearchFlightsFiltersAndCapsPage(t *testing.T) {
	w := newWorld(t)
	day := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		w.store.PutFlight(models.Flight{DepartureAt: day.Add(time.Duration(10-i) * time.Hour), Origin: "Bogota", Destination: "Cali", BasePrice: decimal.NewFromInt(1)})
	}
	w.store.PutFlight(models.Flight{DepartureAt: day.Add(30 * time.Hour), Origin: "Bogota", Destination: "Cali", BasePrice: decimal.NewFromInt(1)})
	w.store.PutFlight(models.Flight{DepartureAt: day.Add(9 * time.Hour), Origin: "Bogota", Destination: "Cali", Status: models.FlightCancelled, BasePrice: decimal.NewFromInt(1)})

	page, err := w.flights.SearchFlights(context.Background(), SearchInput{
		Origin:      "bog",
		Destination: "CALI",
		Date:        "2026-03-05",
		Page:        domain.Pagination{Page: 1, PageSize: 1000},
	})
	if err != nil {
		t.Fatalf("SearchFlights returned error: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 3 || page.PageSize != searchPageMax {
		t.Fatalf("unexpected page %+v", page)
	}
	for i := 1; i < len(page.Items); i++ {
		if page.Items[i].DepartureAt.Before(page.Items[i-1].DepartureAt) {
			t.Fatalf("results not sorted by departure")
		}
	}

	if _, err := w.flights.SearchFlights(context.Background(), SearchInput{Date: "05/03/2026"}); !domain.IsValidation(err) {
		t.Fatalf("bad date should be a validation error, got %v", err)
	}
}

func TestListFlightsMatchesCode(t *testing.T) {
	w := newWorld(t)
	w.flight(12, 1000)
	w.flight(13, 1000)

	page, err := w.flights.ListFlights(context.Background(), "av012", domain.Pagination{PageSize: 500})
	if err != nil {
		t.Fatalf("ListFlights returned error: %v", err)
	}
	if page.Total != 1 || page.Items[0].FlightCode != "AV012" {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.PageSize != adminPageMax {
		t.Fatalf("page size not capped: %d", page.PageSize)
	}
}
