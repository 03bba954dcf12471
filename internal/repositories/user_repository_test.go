package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var userCols = []string{"id", "name", "username", "email", "phone", "password_hash", "role", "status", "created_at", "updated_at"}

func TestUserGetByLoginMatchesEmailOrUsername(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("WHERE email = \\? OR username = \\?").WithArgs("ana@example.com", "ana@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(1, "Ana", "ana", "ana@example.com", "", "$2a$10$hash", "customer", "active", now, now))

	u, err := (UserRepository{DB: conn}).GetByLogin(context.Background(), "  ana@example.com ")
	if err != nil {
		t.Fatalf("GetByLogin returned error: %v", err)
	}
	if u.ID != 1 || u.Username != "ana" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestUserUpdateRoleMissing(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec("UPDATE users SET role=\\?").WithArgs("admin", sqlmock.AnyArg(), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = (UserRepository{DB: conn}).UpdateRole(context.Background(), 9, "admin", time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserDelete(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec("DELETE FROM users WHERE id=\\?").WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := (UserRepository{DB: conn}).Delete(context.Background(), 2); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
}
