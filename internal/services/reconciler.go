package services

import (
	"context"
	"errors"
	"time"

	"flightbook/internal/domain/models"
	"flightbook/internal/gateway"
	"flightbook/internal/metrics"
	"flightbook/internal/repositories"
	"flightbook/internal/utils"
)

const (
	defaultReconcileGrace = 15 * time.Minute
	reconcileBatch        = 100
)

type ReconcileReport struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
	Refunded  int `json:"refunded"`
	Abandoned int `json:"abandoned"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Reconciler settles ledger intents the client never turned into a
// reservation.
type Reconciler struct {
	Payments     repositories.PaymentLedger
	Reservations repositories.ReservationStore
	Flights      repositories.FlightStore
	Users        repositories.UserStore
	Gateway      gateway.Gateway
	Engine       ReservationService
	Grace        time.Duration
	Metrics      *metrics.Metrics
	Log          utils.Logger
	Now          utils.Clock
}

func (r Reconciler) grace() time.Duration {
	if r.Grace > 0 {
		return r.Grace
	}
	return defaultReconcileGrace
}

// Sweep handles at most one batch of open intents older than the grace period.
func (r Reconciler) Sweep(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	now := nowFrom(r.Now)
	open, err := r.Payments.ListOpen(ctx, now.Add(-r.grace()), reconcileBatch)
	if err != nil {
		return report, storeError("payment intent", err)
	}

	log := logOrNop(r.Log)
	for _, rec := range open {
		if ctx.Err() != nil {
			break
		}
		report.Checked++
		outcome, err := r.settle(ctx, rec, now)
		if err != nil {
			outcome = "error"
			log.Warn("reconcile intent failed", "intent_id", rec.IntentID, "error", err)
		}
		r.Metrics.Reconciled(outcome)
		switch outcome {
		case "completed":
			report.Completed++
		case "refunded":
			report.Refunded++
		case "abandoned":
			report.Abandoned++
		case "skipped":
			report.Skipped++
		default:
			report.Errors++
		}
	}
	if report.Checked > 0 {
		log.Info("reconcile sweep finished",
			"checked", report.Checked,
			"completed", report.Completed,
			"refunded", report.Refunded,
			"abandoned", report.Abandoned,
			"errors", report.Errors,
		)
	}
	return report, nil
}

func (r Reconciler) settle(ctx context.Context, rec models.PaymentIntentRecord, now time.Time) (string, error) {
	if existing, err := r.Reservations.GetByPaymentIntent(ctx, rec.IntentID); err == nil {
		id := existing.ID
		if _, err := r.Payments.MarkState(ctx, rec.IntentID, models.LedgerOpen, models.LedgerReserved, &id, now); err != nil {
			return "", err
		}
		return "completed", nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return "", err
	}

	intent, err := r.Gateway.RetrieveIntent(ctx, rec.IntentID)
	if errors.Is(err, gateway.ErrIntentNotFound) {
		return r.mark(ctx, rec, models.LedgerAbandoned, "abandoned", now)
	}
	if err != nil {
		return "", err
	}

	switch intent.Status {
	case gateway.StatusCanceled:
		return r.mark(ctx, rec, models.LedgerAbandoned, "abandoned", now)
	case gateway.StatusSucceeded:
	default:
		return "skipped", nil
	}

	f, err := r.Flights.GetByID(ctx, rec.FlightID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return r.refund(ctx, rec, now)
	case err != nil:
		return "", err
	case f.Cancelled(), f.Departed(now):
		return r.refund(ctx, rec, now)
	}

	if r.Users != nil {
		_, err := r.Users.GetByID(ctx, rec.UserID)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return r.refund(ctx, rec, now)
		case err != nil:
			return "", err
		}
	}

	if _, err := r.Engine.CreateFromIntent(ctx, intent, nil); err != nil {
		return "", err
	}
	return "completed", nil
}

func (r Reconciler) refund(ctx context.Context, rec models.PaymentIntentRecord, now time.Time) (string, error) {
	if err := r.Gateway.Refund(ctx, rec.IntentID); err != nil {
		return "", err
	}
	logOrNop(r.Log).LogEvent("", "payments", "refund", "refunded orphaned intent "+rec.IntentID)
	return r.mark(ctx, rec, models.LedgerRefunded, "refunded", now)
}

func (r Reconciler) mark(ctx context.Context, rec models.PaymentIntentRecord, to models.LedgerState, outcome string, now time.Time) (string, error) {
	if _, err := r.Payments.MarkState(ctx, rec.IntentID, models.LedgerOpen, to, nil, now); err != nil {
		return "", err
	}
	return outcome, nil
}

// Run sweeps on every tick until ctx is done. A zero interval disables it.
func (r Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				logOrNop(r.Log).Error("reconcile sweep failed", "error", err)
			}
		}
	}
}
