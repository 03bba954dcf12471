package gateway

import (
	"context"
	"strings"
	"sync"

	"flightbook/internal/domain"

	"github.com/google/uuid"
)

// Fake is an in-process processor. Intents start in StatusPending and move
// only through SetStatus. Used by tests and by serve when no secret key is set.
type Fake struct {
	mu      sync.Mutex
	intents map[string]Intent
	byKey   map[string]string
	refunds []string

	// ops whose next call fails with a retryable error
	failNext map[string]bool
}

func NewFake() *Fake {
	return &Fake{
		intents:  map[string]Intent{},
		byKey:    map[string]string{},
		failNext: map[string]bool{},
	}
}

func (f *Fake) CreateIntent(ctx context.Context, req CreateIntentRequest) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(ctx, "create_intent"); err != nil {
		return Intent{}, err
	}
	if req.IdempotencyKey != "" {
		if id, ok := f.byKey[req.IdempotencyKey]; ok {
			return f.intents[id], nil
		}
	}
	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	in := Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.NewString()[:8],
		Status:       StatusPending,
		AmountMinor:  req.AmountMinor,
		Currency:     strings.ToLower(req.Currency),
		Metadata:     req.Metadata.Map(),
	}
	f.intents[id] = in
	if req.IdempotencyKey != "" {
		f.byKey[req.IdempotencyKey] = id
	}
	return in, nil
}

func (f *Fake) RetrieveIntent(ctx context.Context, id string) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(ctx, "retrieve_intent"); err != nil {
		return Intent{}, err
	}
	in, ok := f.intents[id]
	if !ok {
		return Intent{}, ErrIntentNotFound
	}
	return in, nil
}

func (f *Fake) Refund(ctx context.Context, intentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(ctx, "refund"); err != nil {
		return err
	}
	if _, ok := f.intents[intentID]; !ok {
		return ErrIntentNotFound
	}
	f.refunds = append(f.refunds, intentID)
	return nil
}

// SetStatus simulates client-side confirmation or cancellation.
func (f *Fake) SetStatus(id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in, ok := f.intents[id]; ok {
		in.Status = status
		f.intents[id] = in
	}
}

// Put stores an intent directly, e.g. one with hand-crafted metadata.
func (f *Fake) Put(in Intent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents[in.ID] = in
}

func (f *Fake) FailNext(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext[op] = true
}

func (f *Fake) Refunds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refunds...)
}

func (f *Fake) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.intents)
}

func (f *Fake) takeFailure(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return domain.GatewayError{Op: op, Retryable: true, Err: err}
	}
	if f.failNext[op] {
		delete(f.failNext, op)
		return domain.GatewayError{Op: op, Retryable: true, Err: context.DeadlineExceeded}
	}
	return nil
}
