package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	intdb "flightbook/internal/db"
	"flightbook/internal/domain/models"
)

const paymentColumns = `intent_id, idempotency_key, user_id, flight_id, passenger_count, kind,
	amount_minor, currency, state, reservation_id, created_at, updated_at`

// PaymentRepository stores the payment_intents ledger.
type PaymentRepository struct {
	DB *sql.DB
}

func scanPayment(sc rowScanner) (models.PaymentIntentRecord, error) {
	var (
		p           models.PaymentIntentRecord
		kind, state string
		reservation sql.NullInt64
	)
	if err := sc.Scan(
		&p.IntentID,
		&p.IdempotencyKey,
		&p.UserID,
		&p.FlightID,
		&p.PassengerCount,
		&kind,
		&p.AmountMinor,
		&p.Currency,
		&state,
		&reservation,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return models.PaymentIntentRecord{}, err
	}
	p.Kind = models.ReservationKind(kind)
	p.State = models.LedgerState(state)
	if reservation.Valid {
		id := reservation.Int64
		p.ReservationID = &id
	}
	return p, nil
}

func (r PaymentRepository) Create(ctx context.Context, rec models.PaymentIntentRecord) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO payment_intents (intent_id, idempotency_key, user_id, flight_id, passenger_count,
			kind, amount_minor, currency, state, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rec.IntentID,
		rec.IdempotencyKey,
		rec.UserID,
		rec.FlightID,
		rec.PassengerCount,
		string(rec.Kind),
		rec.AmountMinor,
		rec.Currency,
		string(rec.State),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if intdb.IsDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

func (r PaymentRepository) getOne(ctx context.Context, where string, args ...any) (models.PaymentIntentRecord, error) {
	p, err := scanPayment(r.DB.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payment_intents WHERE `+where+` LIMIT 1`, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.PaymentIntentRecord{}, ErrNotFound
	}
	return p, err
}

func (r PaymentRepository) GetByKey(ctx context.Context, userID int64, key string) (models.PaymentIntentRecord, error) {
	return r.getOne(ctx, "user_id=? AND idempotency_key=?", userID, key)
}

func (r PaymentRepository) GetByIntentID(ctx context.Context, intentID string) (models.PaymentIntentRecord, error) {
	return r.getOne(ctx, "intent_id=?", intentID)
}

func (r PaymentRepository) ListOpen(ctx context.Context, createdBefore time.Time, limit int) ([]models.PaymentIntentRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payment_intents
		WHERE state=? AND created_at < ? ORDER BY created_at ASC LIMIT ?`,
		string(models.LedgerOpen), createdBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.PaymentIntentRecord{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r PaymentRepository) CountOpenByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM payment_intents WHERE user_id=? AND state=?`,
		userID, string(models.LedgerOpen)).Scan(&n)
	return n, err
}

func (r PaymentRepository) MarkState(ctx context.Context, intentID string, from, to models.LedgerState, reservationID *int64, at time.Time) (bool, error) {
	var resID any
	if reservationID != nil {
		resID = *reservationID
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE payment_intents
		SET state=?, reservation_id=COALESCE(?, reservation_id), updated_at=?
		WHERE intent_id=? AND state=?`,
		string(to), resID, at, intentID, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
