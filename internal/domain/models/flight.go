package models

import (
	"fmt"
	"strings"
	"time"

	"flightbook/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type FlightStatus string

const (
	FlightScheduled FlightStatus = "programado"
	FlightCancelled FlightStatus = "cancelado"
)

const (
	FlightCodePrefix   = "AV"
	placeholderCodeTag = "TMP-"
)

// FlightCode derives the permanent code of a flight from its id.
func FlightCode(id int64) string {
	return fmt.Sprintf("%s%03d", FlightCodePrefix, id)
}

// PlaceholderFlightCode returns a unique code used between insert and code
// assignment.
func PlaceholderFlightCode() string {
	return placeholderCodeTag + uuid.NewString()
}

func IsPlaceholderCode(code string) bool {
	return strings.HasPrefix(code, placeholderCodeTag)
}

// Flight is one scheduled service between two locations.
type Flight struct {
	ID              int64           `json:"id"`
	FlightCode      string          `json:"flightCode"`
	DepartureAt     time.Time       `json:"departureTime"`
	Origin          string          `json:"origin"`
	Destination     string          `json:"destination"`
	DurationMinutes int             `json:"durationMinutes"`
	International   bool            `json:"international"`
	ArrivalLocal    *time.Time      `json:"arrivalLocalTime,omitempty"`
	BasePrice       decimal.Decimal `json:"basePrice"`
	Status          FlightStatus    `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Departed reports whether the departure time is already in the past.
func (f Flight) Departed(now time.Time) bool {
	return f.DepartureAt.Before(now)
}

func (f Flight) Cancelled() bool {
	return f.Status == FlightCancelled
}

// FlightSummary is the flight data shown next to a reservation or intent.
type FlightSummary struct {
	ID            int64           `json:"id"`
	FlightCode    string          `json:"flightCode"`
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	DepartureAt   time.Time       `json:"departureTime"`
	ArrivalLocal  *time.Time      `json:"arrivalLocalTime,omitempty"`
	International bool            `json:"international"`
	BasePrice     decimal.Decimal `json:"basePrice"`
	Status        FlightStatus    `json:"status"`
}

func (f Flight) Summary() FlightSummary {
	return FlightSummary{
		ID:            f.ID,
		FlightCode:    f.FlightCode,
		Origin:        f.Origin,
		Destination:   f.Destination,
		DepartureAt:   f.DepartureAt,
		ArrivalLocal:  f.ArrivalLocal,
		International: f.International,
		BasePrice:     f.BasePrice,
		Status:        f.Status,
	}
}

// FlightUpdate supports PATCH-style updates via key presence.
type FlightUpdate struct {
	DepartureAt     *time.Time
	Origin          *string
	Destination     *string
	DurationMinutes *int
	International   *bool
	ArrivalLocal    *time.Time
	BasePrice       *decimal.Decimal
}

func (u FlightUpdate) Empty() bool {
	return u.DepartureAt == nil && u.Origin == nil && u.Destination == nil &&
		u.DurationMinutes == nil && u.International == nil && u.ArrivalLocal == nil &&
		u.BasePrice == nil
}

// Apply copies present fields onto f.
func (u FlightUpdate) Apply(f *Flight) {
	if u.DepartureAt != nil {
		f.DepartureAt = u.DepartureAt.UTC()
	}
	if u.Origin != nil {
		f.Origin = strings.TrimSpace(*u.Origin)
	}
	if u.Destination != nil {
		f.Destination = strings.TrimSpace(*u.Destination)
	}
	if u.DurationMinutes != nil {
		f.DurationMinutes = *u.DurationMinutes
	}
	if u.International != nil {
		f.International = *u.International
	}
	if u.ArrivalLocal != nil {
		t := *u.ArrivalLocal
		f.ArrivalLocal = &t
	}
	if u.BasePrice != nil {
		f.BasePrice = *u.BasePrice
	}
}

// FlightQuery filters flight listings. Text matches code, origin or
// destination; Origin/Destination/Date are the public search filters.
type FlightQuery struct {
	Text            string
	Origin          string
	Destination     string
	Date            *time.Time
	OnlyScheduled   bool
	SortByDeparture bool // otherwise newest first
	Page            domain.Pagination
}

// FlightPage is one page of a listing.
type FlightPage struct {
	Items    []Flight `json:"items"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
}
