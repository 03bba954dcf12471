package services

import (
	"context"
	"errors"
	"fmt"

	"flightbook/internal/domain"
	"flightbook/internal/domain/models"
	"flightbook/internal/repositories"
	"flightbook/internal/utils"
)

// UserAdminService is root-only user administration.
type UserAdminService struct {
	Users    repositories.UserStore
	Payments repositories.PaymentLedger
	Log      utils.Logger
	Now      utils.Clock
}

func (s UserAdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.Users.List(ctx)
	if err != nil {
		return nil, storeError("user", err)
	}
	return users, nil
}

func (s UserAdminService) SetRole(ctx context.Context, actor domain.Identity, id int64, role string) (models.User, error) {
	target := domain.ParseRole(role)
	if target == domain.RoleUnknown {
		return models.User{}, domain.ValidationError{Field: "role", Msg: "must be customer, admin or root"}
	}
	if int64(actor.UserID) == id && target != domain.RoleRoot {
		return models.User{}, domain.ConflictError{Resource: "user", Msg: "root cannot demote itself"}
	}
	if err := s.Users.UpdateRole(ctx, id, target.String(), nowFrom(s.Now)); err != nil {
		return models.User{}, storeError("user", err)
	}
	logOrNop(s.Log).LogEvent(requestID(ctx), "users", "set_role", fmt.Sprintf("user %d is now %s", id, target))
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, storeError("user", err)
	}
	return u, nil
}

func (s UserAdminService) DeleteUser(ctx context.Context, actor domain.Identity, id int64) error {
	if int64(actor.UserID) == id {
		return domain.ConflictError{Resource: "user", Msg: "root cannot delete itself"}
	}
	if s.Payments != nil {
		open, err := s.Payments.CountOpenByUser(ctx, id)
		if err != nil {
			return storeError("payment intent", err)
		}
		if open > 0 {
			return domain.ConflictError{Resource: "user", Msg: fmt.Sprintf("user has %d unsettled payments", open)}
		}
	}
	if err := s.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrReferenced) {
			return domain.ConflictError{Resource: "user", Msg: "user has reservations", Err: err}
		}
		return storeError("user", err)
	}
	logOrNop(s.Log).LogEvent(requestID(ctx), "users", "delete", fmt.Sprintf("user %d deleted", id))
	return nil
}
