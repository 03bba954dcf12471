package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intdb "flightbook/internal/db"
	"flightbook/internal/domain/models"
	"flightbook/internal/utils"
)

const flightColumns = `id, flight_code, departure_at, origin, destination, duration_minutes,
	international, arrival_local, base_price, status, created_at, updated_at`

// codeAssignAttempts bounds retries when the derived code collides with a
// hand-inserted row.
const codeAssignAttempts = 3

type FlightRepository struct {
	DB *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlight(sc rowScanner) (models.Flight, error) {
	var (
		f       models.Flight
		arrival sql.NullTime
		status  string
	)
	if err := sc.Scan(
		&f.ID,
		&f.FlightCode,
		&f.DepartureAt,
		&f.Origin,
		&f.Destination,
		&f.DurationMinutes,
		&f.International,
		&arrival,
		&f.BasePrice,
		&status,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return models.Flight{}, err
	}
	if arrival.Valid {
		t := arrival.Time
		f.ArrivalLocal = &t
	}
	f.Status = models.FlightStatus(status)
	return f, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// Create inserts the row under a placeholder code and swaps in the derived
// code inside the same transaction, guarded by the placeholder value.
func (r FlightRepository) Create(ctx context.Context, f *models.Flight) error {
	var lastErr error
	for attempt := 0; attempt < codeAssignAttempts; attempt++ {
		err := r.createOnce(ctx, f)
		if err == nil {
			return nil
		}
		if !intdb.IsDuplicateKey(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("assign flight code: %w", lastErr)
}

func (r FlightRepository) createOnce(ctx context.Context, f *models.Flight) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	placeholder := models.PlaceholderFlightCode()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO flights (flight_code, departure_at, origin, destination, duration_minutes,
			international, arrival_local, base_price, status, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		placeholder,
		f.DepartureAt.UTC(),
		f.Origin,
		f.Destination,
		f.DurationMinutes,
		f.International,
		nullTime(f.ArrivalLocal),
		f.BasePrice,
		string(f.Status),
		f.CreatedAt,
		f.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	code := models.FlightCode(id)
	res, err = tx.ExecContext(ctx, `UPDATE flights SET flight_code=? WHERE id=? AND flight_code=?`, code, id, placeholder)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n != 1 {
		return fmt.Errorf("flight %d lost its placeholder code", id)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	f.ID = id
	f.FlightCode = code
	return nil
}

func (r FlightRepository) GetByID(ctx context.Context, id int64) (models.Flight, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=? LIMIT 1`, id)
	f, err := scanFlight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Flight{}, ErrNotFound
	}
	return f, err
}

func buildFlightWhere(q models.FlightQuery) (string, []any) {
	clauses := []string{}
	args := []any{}
	if text := strings.TrimSpace(q.Text); text != "" {
		p := intdb.LikePattern(text)
		clauses = append(clauses, "(LOWER(flight_code) LIKE ? OR LOWER(origin) LIKE ? OR LOWER(destination) LIKE ?)")
		args = append(args, p, p, p)
	}
	if origin := strings.TrimSpace(q.Origin); origin != "" {
		clauses = append(clauses, "LOWER(origin) LIKE ?")
		args = append(args, intdb.LikePattern(origin))
	}
	if dest := strings.TrimSpace(q.Destination); dest != "" {
		clauses = append(clauses, "LOWER(destination) LIKE ?")
		args = append(args, intdb.LikePattern(dest))
	}
	if q.Date != nil {
		start, end := utils.DayBounds(*q.Date)
		clauses = append(clauses, "departure_at >= ? AND departure_at < ?")
		args = append(args, start, end)
	}
	if q.OnlyScheduled {
		clauses = append(clauses, "status = ?")
		args = append(args, string(models.FlightScheduled))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r FlightRepository) List(ctx context.Context, q models.FlightQuery) ([]models.Flight, int, error) {
	where, args := buildFlightWhere(q)

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM flights`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := " ORDER BY id DESC"
	if q.SortByDeparture {
		order = " ORDER BY departure_at ASC, id ASC"
	}
	pageArgs := append(append([]any{}, args...), q.Page.PageSize, q.Page.Offset())
	rows, err := r.DB.QueryContext(ctx, `SELECT `+flightColumns+` FROM flights`+where+order+` LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.Flight{}
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, f)
	}
	return out, total, rows.Err()
}

// Update performs PATCH-style updates based on key presence.
func (r FlightRepository) Update(ctx context.Context, id int64, upd models.FlightUpdate, at time.Time) error {
	sets := []string{}
	args := []any{}
	if upd.DepartureAt != nil {
		sets = append(sets, "departure_at=?")
		args = append(args, upd.DepartureAt.UTC())
	}
	if upd.Origin != nil {
		sets = append(sets, "origin=?")
		args = append(args, strings.TrimSpace(*upd.Origin))
	}
	if upd.Destination != nil {
		sets = append(sets, "destination=?")
		args = append(args, strings.TrimSpace(*upd.Destination))
	}
	if upd.DurationMinutes != nil {
		sets = append(sets, "duration_minutes=?")
		args = append(args, *upd.DurationMinutes)
	}
	if upd.International != nil {
		sets = append(sets, "international=?")
		args = append(args, *upd.International)
	}
	if upd.ArrivalLocal != nil {
		sets = append(sets, "arrival_local=?")
		args = append(args, *upd.ArrivalLocal)
	}
	if upd.BasePrice != nil {
		sets = append(sets, "base_price=?")
		args = append(args, *upd.BasePrice)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at=?")
	args = append(args, at, id)
	_, err := r.DB.ExecContext(ctx, `UPDATE flights SET `+strings.Join(sets, ",")+` WHERE id=?`, args...)
	return err
}

func (r FlightRepository) SetStatus(ctx context.Context, id int64, from, to models.FlightStatus, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE flights SET status=?, updated_at=? WHERE id=? AND status=?`,
		string(to), at, id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r FlightRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM flights WHERE id=?`, id)
	if err != nil {
		if intdb.IsForeignKeyViolation(err) {
			return ErrReferenced
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
