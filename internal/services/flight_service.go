package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flightbook/internal/domain"
	"flightbook/internal/domain/models"
	"flightbook/internal/repositories"
	"flightbook/internal/utils"

	"github.com/shopspring/decimal"
)

const (
	adminPageDefault  = 20
	adminPageMax      = 200
	searchPageDefault = 20
	searchPageMax     = 100
	maxLocationLength = 120
)

// FlightInput is both the create body and the partial update body; absent
// keys stay nil.
type FlightInput struct {
	DepartureTime    *string          `json:"departureTime"`
	Origin           *string          `json:"origin"`
	Destination      *string          `json:"destination"`
	DurationMinutes  *int             `json:"durationMinutes"`
	International    *bool            `json:"international"`
	ArrivalLocalTime *string          `json:"arrivalLocalTime"`
	BasePrice        *decimal.Decimal `json:"basePrice"`
}

// SearchInput holds the public search filters as received.
type SearchInput struct {
	Origin      string
	Destination string
	Date        string
	Page        domain.Pagination
}

type FlightService struct {
	Flights      repositories.FlightStore
	Reservations repositories.ReservationStore
	Log          utils.Logger
	Now          utils.Clock
}

// parseFlightInput checks present fields; with requireAll the mandatory ones
// must also be present.
func parseFlightInput(in FlightInput, requireAll bool) (models.FlightUpdate, error) {
	var (
		upd    models.FlightUpdate
		issues []domain.FieldIssue
	)
	missing := func(field string) {
		issues = append(issues, domain.FieldIssue{Field: field, Message: "is required"})
	}

	if in.DepartureTime != nil {
		t, err := utils.ParseTimestamp(*in.DepartureTime)
		if err != nil {
			issues = append(issues, domain.FieldIssue{Field: "departureTime", Message: "must be RFC3339 or YYYY-MM-DD HH:MM:SS"})
		} else {
			upd.DepartureAt = &t
		}
	} else if requireAll {
		missing("departureTime")
	}

	location := func(field string, v *string) *string {
		if v == nil {
			if requireAll {
				missing(field)
			}
			return nil
		}
		s := utils.NormalizeSpace(*v)
		switch {
		case s == "":
			issues = append(issues, domain.FieldIssue{Field: field, Message: "must not be empty"})
			return nil
		case len(s) > maxLocationLength:
			issues = append(issues, domain.FieldIssue{Field: field, Message: fmt.Sprintf("must be at most %d characters", maxLocationLength)})
			return nil
		}
		return &s
	}
	upd.Origin = location("origin", in.Origin)
	upd.Destination = location("destination", in.Destination)

	if in.DurationMinutes != nil {
		if *in.DurationMinutes <= 0 {
			issues = append(issues, domain.FieldIssue{Field: "durationMinutes", Message: "must be greater than 0"})
		} else {
			upd.DurationMinutes = in.DurationMinutes
		}
	} else if requireAll {
		missing("durationMinutes")
	}

	upd.International = in.International

	if in.ArrivalLocalTime != nil && strings.TrimSpace(*in.ArrivalLocalTime) != "" {
		t, err := utils.ParseTimestamp(*in.ArrivalLocalTime)
		if err != nil {
			issues = append(issues, domain.FieldIssue{Field: "arrivalLocalTime", Message: "must be RFC3339 or YYYY-MM-DD HH:MM:SS"})
		} else {
			upd.ArrivalLocal = &t
		}
	}

	if in.BasePrice != nil {
		if in.BasePrice.IsNegative() {
			issues = append(issues, domain.FieldIssue{Field: "basePrice", Message: "must be greater than or equal to 0"})
		} else {
			p := in.BasePrice.Round(2)
			upd.BasePrice = &p
		}
	} else if requireAll {
		missing("basePrice")
	}

	if len(issues) > 0 {
		return models.FlightUpdate{}, domain.ValidationError{Issues: issues}
	}
	return upd, nil
}

func (s FlightService) CreateFlight(ctx context.Context, in FlightInput) (models.Flight, error) {
	upd, err := parseFlightInput(in, true)
	if err != nil {
		return models.Flight{}, err
	}
	now := nowFrom(s.Now)
	f := models.Flight{Status: models.FlightScheduled, CreatedAt: now, UpdatedAt: now}
	upd.Apply(&f)

	if err := s.Flights.Create(ctx, &f); err != nil {
		return models.Flight{}, storeError("flight", err)
	}
	logOrNop(s.Log).LogEvent(requestID(ctx), "flights", "create", fmt.Sprintf("flight %s created", f.FlightCode))
	return f, nil
}

// ListFlights is the admin listing: free text over code, origin and destination.
func (s FlightService) ListFlights(ctx context.Context, text string, page domain.Pagination) (models.FlightPage, error) {
	page = page.Normalize(adminPageDefault, adminPageMax)
	items, total, err := s.Flights.List(ctx, models.FlightQuery{
		Text: utils.NormalizeSpace(text),
		Page: page,
	})
	if err != nil {
		return models.FlightPage{}, storeError("flight", err)
	}
	return models.FlightPage{Items: items, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

// SearchFlights is the public search. Only scheduled flights are returned,
// soonest departure first.
func (s FlightService) SearchFlights(ctx context.Context, in SearchInput) (models.FlightPage, error) {
	page := in.Page.Normalize(searchPageDefault, searchPageMax)
	q := models.FlightQuery{
		Origin:          utils.NormalizeSpace(in.Origin),
		Destination:     utils.NormalizeSpace(in.Destination),
		OnlyScheduled:   true,
		SortByDeparture: true,
		Page:            page,
	}
	if d := strings.TrimSpace(in.Date); d != "" {
		day, err := utils.ParseDate(d)
		if err != nil {
			return models.FlightPage{}, domain.ValidationError{Field: "date", Msg: "must be YYYY-MM-DD"}
		}
		q.Date = &day
	}
	items, total, err := s.Flights.List(ctx, q)
	if err != nil {
		return models.FlightPage{}, storeError("flight", err)
	}
	return models.FlightPage{Items: items, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

func (s FlightService) GetFlight(ctx context.Context, id int64) (models.Flight, error) {
	if id <= 0 {
		return models.Flight{}, domain.ValidationError{Field: "id", Msg: "invalid id"}
	}
	f, err := s.Flights.GetByID(ctx, id)
	if err != nil {
		return models.Flight{}, storeError("flight", err)
	}
	return f, nil
}

func (s FlightService) UpdateFlight(ctx context.Context, id int64, in FlightInput) (models.Flight, error) {
	if _, err := s.GetFlight(ctx, id); err != nil {
		return models.Flight{}, err
	}
	upd, err := parseFlightInput(in, false)
	if err != nil {
		return models.Flight{}, err
	}
	if upd.Empty() {
		return models.Flight{}, domain.ValidationError{Msg: "no fields to update"}
	}
	if err := s.Flights.Update(ctx, id, upd, nowFrom(s.Now)); err != nil {
		return models.Flight{}, storeError("flight", err)
	}
	logOrNop(s.Log).LogEvent(requestID(ctx), "flights", "update", fmt.Sprintf("flight %d updated", id))
	return s.GetFlight(ctx, id)
}

// CancelFlight moves a scheduled flight to cancelled. Existing reservations
// are left untouched.
func (s FlightService) CancelFlight(ctx context.Context, id int64) (models.Flight, error) {
	f, err := s.GetFlight(ctx, id)
	if err != nil {
		return models.Flight{}, err
	}
	if f.Cancelled() {
		return models.Flight{}, domain.ConflictError{Resource: "flight", Msg: "flight already cancelled"}
	}
	ok, err := s.Flights.SetStatus(ctx, id, models.FlightScheduled, models.FlightCancelled, nowFrom(s.Now))
	if err != nil {
		return models.Flight{}, storeError("flight", err)
	}
	if !ok {
		return models.Flight{}, domain.ConflictError{Resource: "flight", Msg: "flight already cancelled"}
	}
	logOrNop(s.Log).LogEvent(requestID(ctx), "flights", "cancel", fmt.Sprintf("flight %s cancelled", f.FlightCode))
	return s.GetFlight(ctx, id)
}

// DeleteFlight removes a flight nobody has booked.
func (s FlightService) DeleteFlight(ctx context.Context, id int64) error {
	if _, err := s.GetFlight(ctx, id); err != nil {
		return err
	}
	if s.Reservations != nil {
		n, err := s.Reservations.CountByFlight(ctx, id)
		if err != nil {
			return storeError("reservation", err)
		}
		if n > 0 {
			return domain.ConflictError{Resource: "flight", Msg: fmt.Sprintf("flight has %d reservations", n)}
		}
	}
	if err := s.Flights.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrReferenced) {
			return domain.ConflictError{Resource: "flight", Msg: "flight has reservations", Err: err}
		}
		return storeError("flight", err)
	}
	logOrNop(s.Log).LogEvent(requestID(ctx), "flights", "delete", fmt.Sprintf("flight %d deleted", id))
	return nil
}

