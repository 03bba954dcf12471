package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flightbook/internal/domain"
	"flightbook/internal/domain/models"
	"flightbook/internal/gateway"
	"flightbook/internal/metrics"
	"flightbook/internal/repositories"
	"flightbook/internal/utils"
)

const maxNotesLength = 1000

type CreateReservationInput struct {
	FlightID       int64  `json:"flightId"`
	Kind           string `json:"tipo"`
	PassengerCount int    `json:"numeroPasajeros"`
	Notes          string `json:"notas"`
	// PaymentIntentID links the record to a paid gateway intent; when set the
	// call is idempotent per intent.
	PaymentIntentID string `json:"paymentIntentId"`
}

type ReservationService struct {
	Flights      repositories.FlightStore
	Reservations repositories.ReservationStore
	Users        repositories.UserStore
	Payments     repositories.PaymentLedger
	Gateway      gateway.Gateway
	Metrics      *metrics.Metrics
	Log          utils.Logger
	Now          utils.Clock
}

var (
	errReservationCancelled = domain.ConflictError{Resource: "reservation", Msg: "reservation already cancelled"}
	errReservationCompleted = domain.ConflictError{Resource: "reservation", Msg: "reservation already completed"}
	errFlightDeparted       = domain.ConflictError{Resource: "reservation", Msg: "flight already departed"}
	errFlightCancelled      = domain.ConflictError{Resource: "flight", Msg: "flight is cancelled"}
	errConcurrentChange     = domain.ConflictError{Resource: "reservation", Msg: "reservation was modified concurrently"}
)

// bookableFlight loads a flight that can still take bookings.
func bookableFlight(ctx context.Context, flights repositories.FlightStore, id int64) (models.Flight, error) {
	if id <= 0 {
		return models.Flight{}, domain.ValidationError{Field: "flightId", Msg: "is required"}
	}
	f, err := flights.GetByID(ctx, id)
	if err != nil {
		return models.Flight{}, storeError("flight", err)
	}
	if f.Cancelled() {
		return models.Flight{}, errFlightCancelled
	}
	return f, nil
}

func (s ReservationService) Create(ctx context.Context, userID int64, in CreateReservationInput) (models.ReservationDetail, error) {
	if strings.TrimSpace(in.PaymentIntentID) != "" {
		return s.createFromIntentID(ctx, userID, in)
	}

	kind, ok := models.ParseKind(in.Kind)
	if !ok {
		return models.ReservationDetail{}, domain.ValidationError{Field: "tipo", Msg: "must be reserva or compra"}
	}
	passengers, err := models.CheckPassengers(in.PassengerCount)
	if err != nil {
		return models.ReservationDetail{}, err
	}
	notes, err := cleanNotes(in.Notes)
	if err != nil {
		return models.ReservationDetail{}, err
	}
	f, err := bookableFlight(ctx, s.Flights, in.FlightID)
	if err != nil {
		return models.ReservationDetail{}, err
	}

	now := nowFrom(s.Now)
	r := models.Reservation{
		UserID:         userID,
		FlightID:       f.ID,
		Kind:           kind,
		Status:         models.InitialStatus(kind),
		TotalPrice:     models.TotalPrice(f.BasePrice, passengers),
		PassengerCount: passengers,
		Notes:          notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Reservations.Create(ctx, &r); err != nil {
		s.Metrics.Transition("create", "error")
		return models.ReservationDetail{}, storeError("reservation", err)
	}
	s.Metrics.Transition("create", "ok")
	logOrNop(s.Log).LogEvent(requestID(ctx), "reservations", "create",
		fmt.Sprintf("reservation %d (%s) on flight %s", r.ID, r.Kind, f.FlightCode))
	return s.detail(ctx, r, &f)
}

func cleanNotes(raw string) (*string, error) {
	n := utils.OptionalString(raw)
	if n != nil && len(*n) > maxNotesLength {
		return nil, domain.ValidationError{Field: "notas", Msg: fmt.Sprintf("must be at most %d characters", maxNotesLength)}
	}
	return n, nil
}

func (s ReservationService) createFromIntentID(ctx context.Context, userID int64, in CreateReservationInput) (models.ReservationDetail, error) {
	intentID := strings.TrimSpace(in.PaymentIntentID)
	if existing, err := s.Reservations.GetByPaymentIntent(ctx, intentID); err == nil {
		if existing.UserID != userID {
			return models.ReservationDetail{}, domain.NotFoundError{Resource: "payment intent"}
		}
		return s.detail(ctx, existing, nil)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return models.ReservationDetail{}, storeError("reservation", err)
	}

	if s.Gateway == nil {
		return models.ReservationDetail{}, domain.InternalError{Msg: "payment gateway not configured"}
	}
	intent, err := s.Gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return models.ReservationDetail{}, gatewayError("retrieve_intent", err)
	}
	meta, err := gateway.ParseMetadata(intent.Metadata)
	if err != nil || meta.UserID != userID {
		return models.ReservationDetail{}, domain.NotFoundError{Resource: "payment intent"}
	}
	if in.FlightID != 0 && in.FlightID != meta.FlightID {
		return models.ReservationDetail{}, domain.ConflictError{Resource: "payment intent", Msg: "payment was made for a different flight"}
	}
	if in.PassengerCount != 0 && models.NormalizePassengers(in.PassengerCount) != meta.PassengerCount {
		return models.ReservationDetail{}, domain.ConflictError{Resource: "payment intent", Msg: "payment was made for a different passenger count"}
	}
	notes, err := cleanNotes(in.Notes)
	if err != nil {
		return models.ReservationDetail{}, err
	}
	return s.CreateFromIntent(ctx, intent, notes)
}

// CreateFromIntent records the reservation paid by a succeeded intent. The
// owner, flight, passengers and kind come from the intent metadata and the
// total is the amount actually charged.
func (s ReservationService) CreateFromIntent(ctx context.Context, intent gateway.Intent, notes *string) (models.ReservationDetail, error) {
	meta, err := gateway.ParseMetadata(intent.Metadata)
	if err != nil {
		return models.ReservationDetail{}, domain.ConflictError{Resource: "payment intent", Msg: "intent metadata is invalid", Err: err}
	}
	if intent.Status != gateway.StatusSucceeded {
		return models.ReservationDetail{}, domain.ConflictError{Resource: "payment intent", Msg: "payment has not succeeded"}
	}
	kind, ok := models.ParseKind(meta.Kind)
	if !ok {
		return models.ReservationDetail{}, domain.ConflictError{Resource: "payment intent", Msg: "intent metadata is invalid"}
	}
	passengers, err := models.CheckPassengers(meta.PassengerCount)
	if err != nil {
		return models.ReservationDetail{}, domain.ConflictError{Resource: "payment intent", Msg: "intent metadata is invalid", Err: err}
	}
	f, err := bookableFlight(ctx, s.Flights, meta.FlightID)
	if err != nil {
		return models.ReservationDetail{}, err
	}

	now := nowFrom(s.Now)
	intentID := intent.ID
	r := models.Reservation{
		UserID:          meta.UserID,
		FlightID:        f.ID,
		Kind:            kind,
		Status:          models.InitialStatus(kind),
		TotalPrice:      utils.FromMinorUnits(intent.AmountMinor),
		PassengerCount:  passengers,
		Notes:           notes,
		PaymentIntentID: &intentID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Reservations.Create(ctx, &r); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			// another request recorded this intent first
			existing, gerr := s.Reservations.GetByPaymentIntent(ctx, intentID)
			if gerr != nil {
				return models.ReservationDetail{}, storeError("reservation", gerr)
			}
			return s.detail(ctx, existing, &f)
		}
		s.Metrics.Transition("create", "error")
		return models.ReservationDetail{}, storeError("reservation", err)
	}
	s.Metrics.Transition("create", "ok")

	if s.Payments != nil {
		if _, err := s.Payments.MarkState(ctx, intentID, models.LedgerOpen, models.LedgerReserved, &r.ID, now); err != nil {
			logOrNop(s.Log).Warn("ledger update failed", "intent_id", intentID, "error", err)
		}
	}
	logOrNop(s.Log).LogEvent(requestID(ctx), "reservations", "create",
		fmt.Sprintf("reservation %d from intent on flight %s", r.ID, f.FlightCode))
	return s.detail(ctx, r, &f)
}

// Cancel cancels an owned reservation whose flight has not departed.
func (s ReservationService) Cancel(ctx context.Context, id, userID int64, reason string) (models.ReservationDetail, error) {
	r, err := s.owned(ctx, id, userID)
	if err != nil {
		return models.ReservationDetail{}, err
	}
	switch r.Status {
	case models.StatusCancelled:
		s.Metrics.Transition("cancel", "conflict")
		return models.ReservationDetail{}, errReservationCancelled
	case models.StatusCompleted:
		s.Metrics.Transition("cancel", "conflict")
		return models.ReservationDetail{}, errReservationCompleted
	}

	f, err := s.Flights.GetByID(ctx, r.FlightID)
	if err != nil {
		return models.ReservationDetail{}, storeError("flight", err)
	}
	now := nowFrom(s.Now)
	if f.Departed(now) {
		s.Metrics.Transition("cancel", "conflict")
		return models.ReservationDetail{}, errFlightDeparted
	}

	why := utils.FirstNonEmpty(reason, models.DefaultCancelReason)
	if len(why) > 500 {
		return models.ReservationDetail{}, domain.ValidationError{Field: "motivo", Msg: "must be at most 500 characters"}
	}
	ok, err := s.Reservations.Transition(ctx, r.ID, userID, models.ReservationTransition{
		FromStatus:   r.Status,
		ToStatus:     models.StatusCancelled,
		CancelledAt:  &now,
		CancelReason: &why,
		At:           now,
	})
	if err != nil {
		s.Metrics.Transition("cancel", "error")
		return models.ReservationDetail{}, storeError("reservation", err)
	}
	if !ok {
		s.Metrics.Transition("cancel", "conflict")
		return models.ReservationDetail{}, errConcurrentChange
	}
	s.Metrics.Transition("cancel", "ok")
	logOrNop(s.Log).LogEvent(requestID(ctx), "reservations", "cancel", fmt.Sprintf("reservation %d cancelled", r.ID))
	return s.reload(ctx, r.ID, userID, &f)
}

// ConvertToPurchase turns a reservation into a purchase without re-pricing.
// The flight must not have departed.
func (s ReservationService) ConvertToPurchase(ctx context.Context, id, userID int64) (models.ReservationDetail, error) {
	r, err := s.owned(ctx, id, userID)
	if err != nil {
		return models.ReservationDetail{}, err
	}
	if r.Kind == models.KindPurchase {
		s.Metrics.Transition("convert", "conflict")
		return models.ReservationDetail{}, domain.ConflictError{Resource: "reservation", Msg: "reservation is already a purchase"}
	}
	if r.Status == models.StatusCancelled {
		s.Metrics.Transition("convert", "conflict")
		return models.ReservationDetail{}, domain.ConflictError{Resource: "reservation", Msg: "cancelled reservation cannot be purchased"}
	}

	f, err := s.Flights.GetByID(ctx, r.FlightID)
	if err != nil {
		return models.ReservationDetail{}, storeError("flight", err)
	}
	now := nowFrom(s.Now)
	if f.Departed(now) {
		s.Metrics.Transition("convert", "conflict")
		return models.ReservationDetail{}, errFlightDeparted
	}
	ok, err := s.Reservations.Transition(ctx, r.ID, userID, models.ReservationTransition{
		FromStatus: r.Status,
		FromKind:   models.KindReservation,
		ToStatus:   models.StatusConfirmed,
		ToKind:     models.KindPurchase,
		At:         now,
	})
	if err != nil {
		s.Metrics.Transition("convert", "error")
		return models.ReservationDetail{}, storeError("reservation", err)
	}
	if !ok {
		s.Metrics.Transition("convert", "conflict")
		return models.ReservationDetail{}, errConcurrentChange
	}
	s.Metrics.Transition("convert", "ok")
	logOrNop(s.Log).LogEvent(requestID(ctx), "reservations", "convert", fmt.Sprintf("reservation %d purchased", r.ID))
	return s.reload(ctx, r.ID, userID, &f)
}

// History lists the user's reservations, newest first, with flight data.
func (s ReservationService) History(ctx context.Context, userID int64) ([]models.ReservationDetail, error) {
	list, err := s.Reservations.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError("reservation", err)
	}
	flights := map[int64]*models.FlightSummary{}
	out := make([]models.ReservationDetail, 0, len(list))
	for _, r := range list {
		summary, seen := flights[r.FlightID]
		if !seen {
			if f, err := s.Flights.GetByID(ctx, r.FlightID); err == nil {
				fs := f.Summary()
				summary = &fs
			} else if !errors.Is(err, repositories.ErrNotFound) {
				return nil, storeError("flight", err)
			}
			flights[r.FlightID] = summary
		}
		out = append(out, models.ReservationDetail{Reservation: r, Flight: summary})
	}
	return out, nil
}

func (s ReservationService) Get(ctx context.Context, id, userID int64) (models.ReservationDetail, error) {
	r, err := s.owned(ctx, id, userID)
	if err != nil {
		return models.ReservationDetail{}, err
	}
	return s.detail(ctx, r, nil)
}

// owned fetches a reservation visible to userID; foreign records are
// reported as missing.
func (s ReservationService) owned(ctx context.Context, id, userID int64) (models.Reservation, error) {
	if id <= 0 {
		return models.Reservation{}, domain.ValidationError{Field: "id", Msg: "invalid id"}
	}
	r, err := s.Reservations.GetForUser(ctx, id, userID)
	if err != nil {
		return models.Reservation{}, storeError("reservation", err)
	}
	return r, nil
}

func (s ReservationService) reload(ctx context.Context, id, userID int64, f *models.Flight) (models.ReservationDetail, error) {
	r, err := s.owned(ctx, id, userID)
	if err != nil {
		return models.ReservationDetail{}, err
	}
	return s.detail(ctx, r, f)
}

func (s ReservationService) detail(ctx context.Context, r models.Reservation, f *models.Flight) (models.ReservationDetail, error) {
	d := models.ReservationDetail{Reservation: r}
	if f == nil {
		loaded, err := s.Flights.GetByID(ctx, r.FlightID)
		switch {
		case err == nil:
			f = &loaded
		case !errors.Is(err, repositories.ErrNotFound):
			return models.ReservationDetail{}, storeError("flight", err)
		}
	}
	if f != nil {
		fs := f.Summary()
		d.Flight = &fs
	}
	if s.Users != nil {
		if u, err := s.Users.GetByID(ctx, r.UserID); err == nil {
			us := u.Summary()
			d.User = &us
		}
	}
	return d, nil
}

// gatewayError maps processor failures; a missing intent is a NotFoundError.
func gatewayError(op string, err error) error {
	switch {
	case errors.Is(err, gateway.ErrIntentNotFound):
		return domain.NotFoundError{Resource: "payment intent", Err: err}
	case domain.IsGateway(err):
		return err
	default:
		return domain.GatewayError{Op: op, Retryable: true, Err: err}
	}
}
