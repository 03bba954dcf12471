package repositories

import (
	"context"
	"errors"
	"time"

	"flightbook/internal/domain/models"
)

var (
	// ErrNotFound is returned when a row does not exist (or is not visible).
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
	// ErrReferenced is returned when a delete is blocked by referencing rows.
	ErrReferenced = errors.New("record is referenced")
)

// FlightStore owns flight rows. It is the only writer of code, schedule,
// price and status.
type FlightStore interface {
	// Create inserts f and assigns its final code before any reader can
	// observe the row. f.ID and f.FlightCode are set on success.
	Create(ctx context.Context, f *models.Flight) error
	GetByID(ctx context.Context, id int64) (models.Flight, error)
	List(ctx context.Context, q models.FlightQuery) ([]models.Flight, int, error)
	Update(ctx context.Context, id int64, upd models.FlightUpdate, at time.Time) error
	// SetStatus changes status only when the stored one equals from.
	SetStatus(ctx context.Context, id int64, from, to models.FlightStatus, at time.Time) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// ReservationStore owns reservation rows.
type ReservationStore interface {
	Create(ctx context.Context, r *models.Reservation) error
	GetForUser(ctx context.Context, id, userID int64) (models.Reservation, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (models.Reservation, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Reservation, error)
	// Transition applies t only while the row still matches its
	// preconditions; false means nothing was written.
	Transition(ctx context.Context, id, userID int64, t models.ReservationTransition) (bool, error)
	CountByFlight(ctx context.Context, flightID int64) (int, error)
}

// UserStore reads and administers user identities.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (models.User, error)
	GetByLogin(ctx context.Context, login string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, id int64, role string, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

// PaymentLedger records gateway intents opened by this service.
type PaymentLedger interface {
	Create(ctx context.Context, rec models.PaymentIntentRecord) error
	GetByKey(ctx context.Context, userID int64, key string) (models.PaymentIntentRecord, error)
	GetByIntentID(ctx context.Context, intentID string) (models.PaymentIntentRecord, error)
	ListOpen(ctx context.Context, createdBefore time.Time, limit int) ([]models.PaymentIntentRecord, error)
	CountOpenByUser(ctx context.Context, userID int64) (int, error)
	// MarkState moves an intent from one state to another; false when the
	// stored state no longer equals from.
	MarkState(ctx context.Context, intentID string, from, to models.LedgerState, reservationID *int64, at time.Time) (bool, error)
}

// ReportStore serves read-only aggregates for the back office.
type ReportStore interface {
	FlightSales(ctx context.Context, f models.SalesFilter) ([]models.FlightSales, error)
}
