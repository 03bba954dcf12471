package domain

import "strings"

// ID is used across domain entities.
type ID int64

// Role is the resolved authorization tier of a user.
type Role int

const (
	RoleUnknown Role = iota
	RoleCustomer
	RoleAdmin
	RoleRoot
)

func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "customer"
	case RoleAdmin:
		return "admin"
	case RoleRoot:
		return "root"
	default:
		return "unknown"
	}
}

// ParseRole resolves the stored role text. It is the only place role strings
// are interpreted.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer", "cliente", "user":
		return RoleCustomer
	case "admin", "administrador":
		return RoleAdmin
	case "root":
		return RoleRoot
	default:
		return RoleUnknown
	}
}

// Pagination carries paging params and totals.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

// Normalize clamps page and size into [1, max].
func (p Pagination) Normalize(defaultSize, max int) Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if p.PageSize > max {
		p.PageSize = max
	}
	return p
}

// Offset returns the row offset of the current page.
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Identity is the caller resolved from durable storage on each request.
type Identity struct {
	UserID   ID     `json:"userId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"-"`
	RoleName string `json:"role"`
}
