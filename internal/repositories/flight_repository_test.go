package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"flightbook/internal/domain"
	"flightbook/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

func newFlight() *models.Flight {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.Flight{
		DepartureAt:     now.Add(72 * time.Hour),
		Origin:          "BOG",
		Destination:     "MDE",
		DurationMinutes: 55,
		BasePrice:       decimal.NewFromInt(150000),
		Status:          models.FlightScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestFlightCreateAssignsCodeInsideTransaction(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO flights").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("UPDATE flights SET flight_code=\\? WHERE id=\\? AND flight_code=\\?").
		WithArgs("AV007", int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	f := newFlight()
	if err := (FlightRepository{DB: conn}).Create(context.Background(), f); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if f.ID != 7 || f.FlightCode != "AV007" {
		t.Fatalf("unexpected id/code: %d %q", f.ID, f.FlightCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFlightCreateRetriesOnDuplicateCode(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'AV008'"}
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO flights").WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectExec("UPDATE flights SET flight_code").WillReturnError(dup)
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO flights").WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec("UPDATE flights SET flight_code").
		WithArgs("AV009", int64(9), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	f := newFlight()
	if err := (FlightRepository{DB: conn}).Create(context.Background(), f); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if f.FlightCode != "AV009" {
		t.Fatalf("expected AV009, got %q", f.FlightCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFlightGetByIDMissing(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	mock.ExpectQuery("SELECT .* FROM flights WHERE id=\\?").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = (FlightRepository{DB: conn}).GetByID(context.Background(), 3)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFlightListBuildsFiltersAndPaging(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	dep := day.Add(9 * time.Hour)
	cols := []string{"id", "flight_code", "departure_at", "origin", "destination", "duration_minutes",
		"international", "arrival_local", "base_price", "status", "created_at", "updated_at"}

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM flights WHERE LOWER\\(origin\\) LIKE \\? AND departure_at >= \\? AND departure_at < \\? AND status = \\?").
		WithArgs("%bog%", day, day.Add(24*time.Hour), "programado").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery("ORDER BY departure_at ASC, id ASC LIMIT \\? OFFSET \\?").
		WithArgs("%bog%", day, day.Add(24*time.Hour), "programado", 5, 5).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(12, "AV012", dep, "BOG", "MDE", 55, 0, nil, "150000.00", "programado", day, day))

	q := models.FlightQuery{
		Origin:          " Bog ",
		Date:            &day,
		OnlyScheduled:   true,
		SortByDeparture: true,
		Page:            domain.Pagination{Page: 2, PageSize: 5},
	}
	items, total, err := (FlightRepository{DB: conn}).List(context.Background(), q)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if total != 11 || len(items) != 1 {
		t.Fatalf("unexpected result: total=%d items=%d", total, len(items))
	}
	if items[0].FlightCode != "AV012" || !items[0].BasePrice.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("unexpected flight: %+v", items[0])
	}
	if items[0].ArrivalLocal != nil {
		t.Fatalf("arrival should be nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFlightSetStatusIsConditional(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec("UPDATE flights SET status=\\?, updated_at=\\? WHERE id=\\? AND status=\\?").
		WithArgs("cancelado", sqlmock.AnyArg(), int64(4), "programado").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := (FlightRepository{DB: conn}).SetStatus(context.Background(), 4, models.FlightScheduled, models.FlightCancelled, time.Now())
	if err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected no transition when status already changed")
	}
}

func TestFlightUpdateOnlyTouchesPresentFields(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	price := decimal.NewFromInt(99000)
	mock.ExpectExec("UPDATE flights SET base_price=\\?,updated_at=\\? WHERE id=\\?").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = (FlightRepository{DB: conn}).Update(context.Background(), 2, models.FlightUpdate{BasePrice: &price}, time.Now())
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFlightDeleteReferenced(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec("DELETE FROM flights WHERE id=\\?").WithArgs(int64(5)).
		WillReturnError(&mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"})

	err = (FlightRepository{DB: conn}).Delete(context.Background(), 5)
	if !errors.Is(err, ErrReferenced) {
		t.Fatalf("expected ErrReferenced, got %v", err)
	}
}
