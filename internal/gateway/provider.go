package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeStatus is the provider's view of a charge keyed by idempotency key.
type ChargeStatus struct {
	Paid      bool
	Reference string
}

// Provider is the payment-provider boundary. Charges are idempotent on the
// caller-supplied key: replaying a key returns the recorded outcome instead
// of charging twice. The payment id doubles as the idempotency key.
type Provider interface {
	Charge(ctx context.Context, amount decimal.Decimal, idempotencyKey uuid.UUID) (ChargeStatus, error)
	CheckStatus(ctx context.Context, idempotencyKey uuid.UUID) (ChargeStatus, error)
}

type memoryProvider struct {
	mu      sync.RWMutex
	charges map[string]ChargeStatus
}

// NewMemoryProvider returns an in-process Provider for development and tests.
func NewMemoryProvider() Provider {
	return &memoryProvider{charges: make(map[string]ChargeStatus)}
}

func (p *memoryProvider) Charge(ctx context.Context, amount decimal.Decimal, idempotencyKey uuid.UUID) (ChargeStatus, error) {
	key := idempotencyKey.String()

	p.mu.RLock()
	if status, exists := p.charges[key]; exists {
		p.mu.RUnlock()
		return status, nil
	}
	p.mu.RUnlock()

	status := ChargeStatus{Paid: true, Reference: "ch_" + uuid.NewString()}
	p.mu.Lock()
	p.charges[key] = status
	p.mu.Unlock()
	return status, nil
}

func (p *memoryProvider) CheckStatus(ctx context.Context, idempotencyKey uuid.UUID) (ChargeStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if status, exists := p.charges[idempotencyKey.String()]; exists {
		return status, nil
	}
	return ChargeStatus{}, nil
}
