package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"flightbook/internal/domain/models"
)

type ReportRepository struct {
	DB *sql.DB
}

// FlightSales groups reservations per flight. Revenue counts active
// purchases; Pending counts active reservations not yet purchased.
func (r ReportRepository) FlightSales(ctx context.Context, f models.SalesFilter) ([]models.FlightSales, error) {
	cancelled := string(models.StatusCancelled)
	reserva, compra := string(models.KindReservation), string(models.KindPurchase)
	args := []any{
		reserva, cancelled,
		compra, cancelled,
		cancelled,
		cancelled,
		compra, cancelled,
		reserva, cancelled,
	}
	where := []string{"1=1"}
	if f.From != nil {
		where = append(where, "f.departure_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "f.departure_at < ?")
		args = append(args, f.To.UTC())
	}

	query := fmt.Sprintf(`SELECT f.id, f.flight_code, f.origin, f.destination, f.departure_at, f.status,
	COALESCE(SUM(r.kind=? AND r.status<>?),0),
	COALESCE(SUM(r.kind=? AND r.status<>?),0),
	COALESCE(SUM(r.status=?),0),
	COALESCE(SUM(CASE WHEN r.status<>? THEN r.passenger_count ELSE 0 END),0),
	COALESCE(SUM(CASE WHEN r.kind=? AND r.status<>? THEN r.total_price ELSE 0 END),0),
	COALESCE(SUM(CASE WHEN r.kind=? AND r.status<>? THEN r.total_price ELSE 0 END),0)
FROM flights f
LEFT JOIN reservations r ON r.flight_id = f.id
WHERE %s
GROUP BY f.id, f.flight_code, f.origin, f.destination, f.departure_at, f.status
ORDER BY f.departure_at ASC, f.id ASC`, strings.Join(where, " AND "))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.FlightSales{}
	for rows.Next() {
		var (
			rec    models.FlightSales
			status string
		)
		if err := rows.Scan(
			&rec.FlightID,
			&rec.FlightCode,
			&rec.Origin,
			&rec.Destination,
			&rec.DepartureAt,
			&status,
			&rec.Reservations,
			&rec.Purchases,
			&rec.Cancelled,
			&rec.Passengers,
			&rec.Revenue,
			&rec.Pending,
		); err != nil {
			return out, err
		}
		rec.Status = models.FlightStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
