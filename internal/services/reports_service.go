package services

import (
	"context"
	"strings"

	"flightbook/internal/domain"
	"flightbook/internal/domain/models"
	"flightbook/internal/repositories"
	"flightbook/internal/utils"

	"github.com/shopspring/decimal"
)

// SalesReportFilter carries optional YYYY-MM-DD bounds on departure date,
// both inclusive.
type SalesReportFilter struct {
	StartDate string
	EndDate   string
}

type SalesReport struct {
	Flights      []models.FlightSales `json:"flights"`
	Reservations int                  `json:"reservas"`
	Purchases    int                  `json:"compras"`
	Cancelled    int                  `json:"cancelados"`
	Passengers   int                  `json:"pasajeros"`
	Revenue      decimal.Decimal      `json:"ingresos"`
	Pending      decimal.Decimal      `json:"pendiente"`
}

// ReportsService aggregates sales per flight for the back office.
type ReportsService struct {
	Reports repositories.ReportStore
	Log     utils.Logger
}

func (s ReportsService) GetSalesReport(ctx context.Context, f SalesReportFilter) (SalesReport, error) {
	var filter models.SalesFilter
	if d := strings.TrimSpace(f.StartDate); d != "" {
		day, err := utils.ParseDate(d)
		if err != nil {
			return SalesReport{}, domain.ValidationError{Field: "start_date", Msg: "must be YYYY-MM-DD"}
		}
		filter.From = &day
	}
	if d := strings.TrimSpace(f.EndDate); d != "" {
		day, err := utils.ParseDate(d)
		if err != nil {
			return SalesReport{}, domain.ValidationError{Field: "end_date", Msg: "must be YYYY-MM-DD"}
		}
		_, end := utils.DayBounds(day)
		filter.To = &end
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return SalesReport{}, domain.ValidationError{Field: "end_date", Msg: "must not be before start_date"}
	}

	rows, err := s.Reports.FlightSales(ctx, filter)
	if err != nil {
		return SalesReport{}, storeError("report", err)
	}
	report := SalesReport{Flights: rows, Revenue: decimal.Zero, Pending: decimal.Zero}
	for _, r := range rows {
		report.Reservations += r.Reservations
		report.Purchases += r.Purchases
		report.Cancelled += r.Cancelled
		report.Passengers += r.Passengers
		report.Revenue = report.Revenue.Add(r.Revenue)
		report.Pending = report.Pending.Add(r.Pending)
	}
	return report, nil
}
