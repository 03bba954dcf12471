package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	intdb "flightbook/internal/db"
	"flightbook/internal/domain/models"
)

const userColumns = `id, name, username, email, phone, password_hash, role, status, created_at, updated_at`

type UserRepository struct {
	DB *sql.DB
}

func scanUser(sc rowScanner) (models.User, error) {
	var u models.User
	err := sc.Scan(
		&u.ID,
		&u.Name,
		&u.Username,
		&u.Email,
		&u.Phone,
		&u.PasswordHash,
		&u.Role,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (r UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

// GetByLogin matches email or username exactly (the columns use a binary
// collation).
func (r UserRepository) GetByLogin(ctx context.Context, login string) (models.User, error) {
	login = strings.TrimSpace(login)
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users
		WHERE email = ? OR username = ? LIMIT 1`, login, login))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

func (r UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r UserRepository) UpdateRole(ctx context.Context, id int64, role string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET role=?, updated_at=? WHERE id=?`, role, at, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
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
