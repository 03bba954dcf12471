package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	intdb "flightbook/internal/db"
	"flightbook/internal/domain/models"
)

const reservationColumns = `id, user_id, flight_id, kind, status, total_price, passenger_count,
	notes, payment_intent_id, created_at, updated_at, cancelled_at, cancel_reason`

type ReservationRepository struct {
	DB *sql.DB
}

func scanReservation(sc rowScanner) (models.Reservation, error) {
	var (
		r                     models.Reservation
		kind, status          string
		notes, intent, reason sql.NullString
		cancelledAt           sql.NullTime
	)
	if err := sc.Scan(
		&r.ID,
		&r.UserID,
		&r.FlightID,
		&kind,
		&status,
		&r.TotalPrice,
		&r.PassengerCount,
		&notes,
		&intent,
		&r.CreatedAt,
		&r.UpdatedAt,
		&cancelledAt,
		&reason,
	); err != nil {
		return models.Reservation{}, err
	}
	r.Kind = models.ReservationKind(kind)
	r.Status = models.ReservationStatus(status)
	if notes.Valid {
		r.Notes = &notes.String
	}
	if intent.Valid {
		r.PaymentIntentID = &intent.String
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		r.CancelledAt = &t
	}
	if reason.Valid {
		r.CancelReason = &reason.String
	}
	return r, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return intdb.NullIfEmpty(*s)
}

func (r ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	out, err := r.DB.ExecContext(ctx, `
		INSERT INTO reservations (user_id, flight_id, kind, status, total_price, passenger_count,
			notes, payment_intent_id, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		res.UserID,
		res.FlightID,
		string(res.Kind),
		string(res.Status),
		res.TotalPrice,
		res.PassengerCount,
		nullString(res.Notes),
		nullString(res.PaymentIntentID),
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = id
	return nil
}

func (r ReservationRepository) getOne(ctx context.Context, where string, args ...any) (models.Reservation, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE `+where+` LIMIT 1`, args...)
	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reservation{}, ErrNotFound
	}
	return res, err
}

// GetForUser is ownership-scoped: a foreign row looks exactly like a missing one.
func (r ReservationRepository) GetForUser(ctx context.Context, id, userID int64) (models.Reservation, error) {
	return r.getOne(ctx, "id=? AND user_id=?", id, userID)
}

func (r ReservationRepository) GetByPaymentIntent(ctx context.Context, intentID string) (models.Reservation, error) {
	return r.getOne(ctx, "payment_intent_id=?", intentID)
}

func (r ReservationRepository) ListByUser(ctx context.Context, userID int64) ([]models.Reservation, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+reservationColumns+` FROM reservations
		WHERE user_id=? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Transition is a single conditional UPDATE; zero affected rows means the
// row changed (or vanished) since the caller read it.
func (r ReservationRepository) Transition(ctx context.Context, id, userID int64, t models.ReservationTransition) (bool, error) {
	sets := []string{"status=?", "updated_at=?"}
	args := []any{string(t.ToStatus), t.At}
	if t.ToKind != "" {
		sets = append(sets, "kind=?")
		args = append(args, string(t.ToKind))
	}
	if t.CancelledAt != nil {
		sets = append(sets, "cancelled_at=?")
		args = append(args, *t.CancelledAt)
	}
	if t.CancelReason != nil {
		sets = append(sets, "cancel_reason=?")
		args = append(args, *t.CancelReason)
	}

	where := "id=? AND user_id=? AND status=?"
	args = append(args, id, userID, string(t.FromStatus))
	if t.FromKind != "" {
		where += " AND kind=?"
		args = append(args, string(t.FromKind))
	}

	res, err := r.DB.ExecContext(ctx, `UPDATE reservations SET `+strings.Join(sets, ",")+` WHERE `+where, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r ReservationRepository) CountByFlight(ctx context.Context, flightID int64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE flight_id=?`, flightID).Scan(&n)
	return n, err
}
