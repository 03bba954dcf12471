package services

import (
	"context"
	"testing"

	"flightbook/internal/domain"
	"flightbook/internal/domain/models"
)

func TestSetRole(t *testing.T) {
	w := newWorld(t)
	actor := w.root.Identity()
	ctx := context.Background()

	u, err := w.admin.SetRole(ctx, actor, w.customer.ID, "Admin")
	if err != nil {
		t.Fatalf("SetRole returned error: %v", err)
	}
	if u.Role != "admin" {
		t.Fatalf("role = %q", u.Role)
	}
	if _, err := w.admin.SetRole(ctx, actor, w.customer.ID, "pilot"); !domain.IsValidation(err) {
		t.Fatalf("unknown role: expected validation, got %v", err)
	}
	if _, err := w.admin.SetRole(ctx, actor, 404, "admin"); !domain.IsNotFound(err) {
		t.Fatalf("unknown user: expected not found, got %v", err)
	}
	_, err = w.admin.SetRole(ctx, actor, w.root.ID, "customer")
	assertConflict(t, err, "root cannot demote itself")
}

func TestDeleteUser(t *testing.T) {
	w := newWorld(t)
	actor := w.root.Identity()
	f := w.flight(0, 1000)
	w.book(t, w.customer.ID, f.ID, "reserva", 1)
	ctx := context.Background()

	assertConflict(t, w.admin.DeleteUser(ctx, actor, w.customer.ID), "user has reservations")
	assertConflict(t, w.admin.DeleteUser(ctx, actor, w.root.ID), "root cannot delete itself")
	if err := w.admin.DeleteUser(ctx, actor, w.other.ID); err != nil {
		t.Fatalf("DeleteUser returned error: %v", err)
	}
	if err := w.admin.DeleteUser(ctx, actor, w.other.ID); !domain.IsNotFound(err) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}

	users, err := w.admin.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users left, got %d", len(users))
	}
}

func TestDeleteUserWaitsForOpenPayments(t *testing.T) {
	w := newWorld(t)
	actor := w.root.Identity()
	f := w.flight(0, 1000)
	ctx := context.Background()
	ci, err := w.payments.CreateChargeIntent(ctx, w.other.ID, ChargeIntentInput{FlightID: f.ID, PassengerCount: 1, Kind: "reserva"})
	if err != nil {
		t.Fatalf("CreateChargeIntent: %v", err)
	}

	assertConflict(t, w.admin.DeleteUser(ctx, actor, w.other.ID), "user has 1 unsettled payments")
	if _, err := w.store.Users().GetByID(ctx, w.other.ID); err != nil {
		t.Fatalf("blocked delete must keep the user: %v", err)
	}

	if ok, err := w.store.Payments().MarkState(ctx, ci.PaymentIntentID, models.LedgerOpen, models.LedgerAbandoned, nil, w.now); err != nil || !ok {
		t.Fatalf("MarkState ok=%v err=%v", ok, err)
	}
	if err := w.admin.DeleteUser(ctx, actor, w.other.ID); err != nil {
		t.Fatalf("DeleteUser after settlement: %v", err)
	}
}
