package services

import (
	"context"
	"testing"

	"flightbook/internal/domain"

	"github.com/shopspring/decimal"
)

func TestSalesReportTotals(t *testing.T) {
	w := newWorld(t)
	f := w.flight(0, 100000)
	w.book(t, w.customer.ID, f.ID, "compra", 2)
	w.book(t, w.customer.ID, f.ID, "reserva", 1)
	gone := w.book(t, w.other.ID, f.ID, "compra", 1)
	if _, err := w.reservations.Cancel(context.Background(), gone.ID, w.other.ID, ""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	w.flight(0, 5000)

	day := f.DepartureAt.Format("2006-01-02")
	report, err := w.reports.GetSalesReport(context.Background(), SalesReportFilter{StartDate: day, EndDate: day})
	if err != nil {
		t.Fatalf("GetSalesReport returned error: %v", err)
	}
	if len(report.Flights) != 2 {
		t.Fatalf("expected both flights of the day, got %d", len(report.Flights))
	}
	if report.Purchases != 1 || report.Reservations != 1 || report.Cancelled != 1 || report.Passengers != 3 {
		t.Fatalf("unexpected counts %+v", report)
	}
	if !report.Revenue.Equal(decimal.NewFromInt(200000)) || !report.Pending.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("unexpected amounts %s / %s", report.Revenue, report.Pending)
	}

	none, err := w.reports.GetSalesReport(context.Background(), SalesReportFilter{EndDate: "2026-02-01"})
	if err != nil {
		t.Fatalf("GetSalesReport returned error: %v", err)
	}
	if len(none.Flights) != 0 {
		t.Fatalf("window before any departure must be empty")
	}
}

func TestSalesReportValidatesDates(t *testing.T) {
	w := newWorld(t)
	if _, err := w.reports.GetSalesReport(context.Background(), SalesReportFilter{StartDate: "yesterday"}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := w.reports.GetSalesReport(context.Background(), SalesReportFilter{StartDate: "2026-03-05", EndDate: "2026-03-01"}); !domain.IsValidation(err) {
		t.Fatalf("inverted window: expected validation error, got %v", err)
	}
}
