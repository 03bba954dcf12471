package models

import (
	"time"

	"flightbook/internal/domain"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u User) Identity() domain.Identity {
	role := domain.ParseRole(u.Role)
	return domain.Identity{
		UserID:   domain.ID(u.ID),
		Name:     u.Name,
		Email:    u.Email,
		Role:     role,
		RoleName: role.String(),
	}
}

type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
