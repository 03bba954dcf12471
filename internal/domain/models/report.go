package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FlightSales aggregates the reservations of one flight.
type FlightSales struct {
	FlightID     int64           `json:"flightId"`
	FlightCode   string          `json:"flightCode"`
	Origin       string          `json:"origin"`
	Destination  string          `json:"destination"`
	DepartureAt  time.Time       `json:"departureTime"`
	Status       FlightStatus    `json:"status"`
	Reservations int             `json:"reservas"`
	Purchases    int             `json:"compras"`
	Cancelled    int             `json:"cancelados"`
	Passengers   int             `json:"pasajeros"`
	Revenue      decimal.Decimal `json:"ingresos"`
	Pending      decimal.Decimal `json:"pendiente"`
}

// SalesFilter bounds a report by departure time; nil ends are open.
type SalesFilter struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether t falls in [From, To).
func (f SalesFilter) Contains(t time.Time) bool {
	if f.From != nil && t.Before(*f.From) {
		return false
	}
	if f.To != nil && !t.Before(*f.To) {
		return false
	}
	return true
}
