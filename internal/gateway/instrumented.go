package gateway

import (
	"context"

	"flightbook/internal/metrics"
)

// Instrumented counts calls per operation and outcome.
type Instrumented struct {
	Next    Gateway
	Metrics *metrics.Metrics
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

func (g Instrumented) CreateIntent(ctx context.Context, req CreateIntentRequest) (Intent, error) {
	in, err := g.Next.CreateIntent(ctx, req)
	g.Metrics.Gateway("create_intent", outcome(err))
	return in, err
}

func (g Instrumented) RetrieveIntent(ctx context.Context, id string) (Intent, error) {
	in, err := g.Next.RetrieveIntent(ctx, id)
	g.Metrics.Gateway("retrieve_intent", outcome(err))
	return in, err
}

func (g Instrumented) Refund(ctx context.Context, intentID string) error {
	err := g.Next.Refund(ctx, intentID)
	g.Metrics.Gateway("refund", outcome(err))
	return err
}
