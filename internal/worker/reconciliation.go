package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DevMad123/enma-commerce-core/internal/gateway"
	"github.com/DevMad123/enma-commerce-core/internal/repo"
	"github.com/DevMad123/enma-commerce-core/internal/service"
)

const reconcileBatchSize = 50

// Reconciler resolves payments stuck in PENDING: the provider charged (or
// declined) but the confirmation callback never arrived. It asks the provider
// for the truth and drives the payment through the ledger, never through raw
// updates, so the order's cached totals stay consistent.
type Reconciler struct {
	paymentRepo repo.PaymentRepo
	ledger      service.PaymentLedger
	provider    gateway.Provider
	interval    time.Duration
	staleAfter  time.Duration
	actor       uuid.UUID
}

func NewReconciler(
	paymentRepo repo.PaymentRepo,
	ledger service.PaymentLedger,
	provider gateway.Provider,
	interval time.Duration,
	staleAfter time.Duration,
	actor uuid.UUID,
) *Reconciler {
	return &Reconciler{
		paymentRepo: paymentRepo,
		ledger:      ledger,
		provider:    provider,
		interval:    interval,
		staleAfter:  staleAfter,
		actor:       actor,
	}
}

func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("payment reconciler started", "interval", r.interval, "stale_after", r.staleAfter)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Process(ctx); err != nil {
				slog.Error("payment reconciliation failed", "err", err)
			}
		}
	}
}

// Process runs one reconciliation sweep.
func (r *Reconciler) Process(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-r.staleAfter)
	stuck, err := r.paymentRepo.FindStuckPending(ctx, cutoff, reconcileBatchSize)
	if err != nil {
		return err
	}
	if len(stuck) == 0 {
		return nil
	}

	slog.Info("reconciling stuck payments", "count", len(stuck))

	for _, p := range stuck {
		status, err := r.provider.CheckStatus(ctx, p.ID)
		if err != nil {
			slog.Error("provider status check failed", "payment_id", p.ID, "err", err)
			continue
		}

		if status.Paid {
			// Provider charged but we never heard back: confirm through the
			// ledger so the idempotency guard and payment bound both apply.
			if _, err := r.ledger.MarkSuccess(ctx, r.actor, p.ID, status.Reference); err != nil {
				slog.Error("reconcile mark success failed", "payment_id", p.ID, "err", err)
			} else {
				slog.Info("reconciled stuck payment as paid", "payment_id", p.ID, "order_id", p.OrderID)
			}
			continue
		}

		if _, err := r.ledger.MarkFailed(ctx, r.actor, p.ID, "provider reported no charge"); err != nil {
			slog.Error("reconcile mark failed failed", "payment_id", p.ID, "err", err)
		} else {
			slog.Info("reconciled stuck payment as failed", "payment_id", p.ID, "order_id", p.OrderID)
		}
	}
	return nil
}
