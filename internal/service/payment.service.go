package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DevMad123/enma-commerce-core/internal/database"
	"github.com/DevMad123/enma-commerce-core/internal/domain"
	"github.com/DevMad123/enma-commerce-core/internal/repo"
)

// PaymentLedger owns the payments attached to an order, enforces the payment
// state machine, and keeps the order's cached paid/due totals in step with
// the payment set. Every mutation recomputes the order's settlement inside
// the same transaction.
type PaymentLedger interface {
	// Record creates a payment against the order. confirmed=true is the
	// manual admin entry path: the payment is created directly in SUCCESS.
	Record(ctx context.Context, actor uuid.UUID, orderID uuid.UUID, amount decimal.Decimal, method domain.PaymentMethod, confirmed bool) (*domain.Payment, error)
	MarkSuccess(ctx context.Context, actor uuid.UUID, paymentID uuid.UUID, transactionRef string) (*domain.Payment, error)
	MarkFailed(ctx context.Context, actor uuid.UUID, paymentID uuid.UUID, reason string) (*domain.Payment, error)
	Refund(ctx context.Context, actor uuid.UUID, paymentID uuid.UUID, amount decimal.Decimal, reason string) (*domain.Payment, error)
	Cancel(ctx context.Context, actor uuid.UUID, paymentID uuid.UUID) (*domain.Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Payment, error)
}

type paymentLedger struct {
	db          *sql.DB
	orderRepo   repo.OrderRepo
	paymentRepo repo.PaymentRepo
	currency    string
}

func NewPaymentLedger(db *sql.DB, orderRepo repo.OrderRepo, paymentRepo repo.PaymentRepo, currency string) PaymentLedger {
	return &paymentLedger{db: db, orderRepo: orderRepo, paymentRepo: paymentRepo, currency: currency}
}

func (s *paymentLedger) Record(ctx context.Context, actor uuid.UUID, orderID uuid.UUID, amount decimal.Decimal, method domain.PaymentMethod, confirmed bool) (*domain.Payment, error) {
	if !method.Valid() {
		return nil, &domain.ValidationError{Field: "method", Reason: "unknown payment method"}
	}
	if !amount.IsPositive() {
		return nil, &domain.ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}

	var payment *domain.Payment
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		order, err := s.orderRepo.FindByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return &domain.NotFoundError{Entity: "order", ID: orderID}
		}
		if amount.GreaterThan(order.TotalDue) {
			return &domain.ValidationError{
				Field:  "amount",
				Reason: fmt.Sprintf("exceeds amount due (%s)", order.TotalDue),
			}
		}

		now := time.Now().UTC()
		payment = &domain.Payment{
			ID:             uuid.New(),
			OrderID:        order.ID,
			Method:         method,
			Amount:         amount,
			Currency:       s.currency,
			Status:         domain.PaymentPending,
			RefundedAmount: decimal.Zero,
			CreatedBy:      actor,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if confirmed {
			payment.Status = domain.PaymentSuccess
			payment.TransactionRef = "manual:" + payment.ID.String()
		}

		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return err
		}
		return s.recompute(ctx, tx, actor, order)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("payment recorded", "payment_id", payment.ID, "order_id", orderID, "amount", amount, "status", payment.Status)
	return payment, nil
}

func (s *paymentLedger) MarkSuccess(ctx context.Context, actor uuid.UUID, paymentID uuid.UUID, transactionRef string) (*domain.Payment, error) {
	var payment *domain.Payment
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		payment, err = s.paymentRepo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return &domain.NotFoundError{Entity: "payment", ID: paymentID}
		}

		switch payment.Status {
		case domain.PaymentSuccess:
			// Duplicate confirmation callback: replaying the same transaction
			// reference is a no-op success, never a double credit.
			if transactionRef == "" || payment.TransactionRef == transactionRef {
				return nil
			}
			return &domain.ValidationError{Field: "transaction_ref", Reason: "does not match the confirmed payment"}
		case domain.PaymentPending:
			// fall through below
		default:
			return &domain.InvalidStateTransitionError{
				Entity: "payment", ID: payment.ID,
				From: string(payment.Status), To: string(domain.PaymentSuccess),
			}
		}

		order, err := s.orderRepo.FindByIDForUpdate(ctx, tx, payment.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return &domain.NotFoundError{Entity: "order", ID: payment.OrderID}
		}
		paid, _, err := s.paymentRepo.SettlementSums(ctx, tx, payment.OrderID)
		if err != nil {
			return err
		}
		if paid.Add(payment.Amount).GreaterThan(order.TotalPayable) {
			return &domain.ValidationError{Field: "amount", Reason: "confirmation would exceed the order total"}
		}

		payment.Status = domain.PaymentSuccess
		payment.TransactionRef = transactionRef
		if err := s.paymentRepo.Update(ctx, tx, payment); err != nil {
			return err
		}
		slog.Info("payment confirmed", "payment_id", payment.ID, "order_id", payment.OrderID, "transaction_ref", transactionRef)
		return s.recompute(ctx, tx, actor, order)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *paymentLedger) MarkFailed(ctx context.Context, actor uuid.UUID, paymentID uuid.UUID, reason string) (*domain.Payment, error) {
	var payment *domain.Payment
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		payment, err = s.paymentRepo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return &domain.NotFoundError{Entity: "payment", ID: paymentID}
		}
		if payment.Status != domain.PaymentPending {
			return &domain.InvalidStateTransitionError{
				Entity: "payment", ID: payment.ID,
				From: string(payment.Status), To: string(domain.PaymentFailed),
			}
		}
		payment.Status = domain.PaymentFailed
		payment.FailureReason = reason
		if err := s.paymentRepo.Update(ctx, tx, payment); err != nil {
			return err
		}
		slog.Info("payment failed", "payment_id", payment.ID, "order_id", payment.OrderID, "reason", reason)
		return s.recomputeByOrderID(ctx, tx, actor, payment.OrderID)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *paymentLedger) Refund(ctx context.Context, actor uuid.UUID, paymentID uuid.UUID, amount decimal.Decimal, reason string) (*domain.Payment, error) {
	if !amount.IsPositive() {
		return nil, &domain.ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}

	var payment *domain.Payment
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		payment, err = s.paymentRepo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return &domain.NotFoundError{Entity: "payment", ID: paymentID}
		}
		if payment.Status != domain.PaymentSuccess {
			return &domain.InvalidStateTransitionError{
				Entity: "payment", ID: payment.ID,
				From: string(payment.Status), To: string(domain.PaymentRefunded),
			}
		}
		remaining := payment.Amount.Sub(payment.RefundedAmount)
		if amount.GreaterThan(remaining) {
			return &domain.ValidationError{
				Field:  "amount",
				Reason: fmt.Sprintf("exceeds refundable amount (%s)", remaining),
			}
		}

		refund := &domain.Refund{
			ID:        uuid.New(),
			PaymentID: payment.ID,
			Amount:    amount,
			Reason:    reason,
			CreatedBy: actor,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.paymentRepo.CreateRefund(ctx, tx, refund); err != nil {
			return err
		}

		payment.RefundedAmount = payment.RefundedAmount.Add(amount)
		// A fully refunded payment flips to REFUNDED; a partial refund keeps
		// SUCCESS and only reduces the effective paid amount.
		if payment.RefundedAmount.Equal(payment.Amount) {
			payment.Status = domain.PaymentRefunded
		}
		if err := s.paymentRepo.Update(ctx, tx, payment); err != nil {
			return err
		}
		slog.Info("payment refunded", "payment_id", payment.ID, "order_id", payment.OrderID, "amount", amount, "status", payment.Status)
		return s.recomputeByOrderID(ctx, tx, actor, payment.OrderID)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *paymentLedger) Cancel(ctx context.Context, actor uuid.UUID, paymentID uuid.UUID) (*domain.Payment, error) {
	var payment *domain.Payment
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		payment, err = s.paymentRepo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return &domain.NotFoundError{Entity: "payment", ID: paymentID}
		}
		if payment.Status.Settled() {
			return &domain.ImmutableRecordError{
				Entity: "payment", ID: payment.ID,
				Reason: "settled payments must be refunded, not cancelled",
			}
		}
		if payment.Status == domain.PaymentCancelled {
			return nil
		}
		payment.Status = domain.PaymentCancelled
		if err := s.paymentRepo.Update(ctx, tx, payment); err != nil {
			return err
		}
		return s.recomputeByOrderID(ctx, tx, actor, payment.OrderID)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *paymentLedger) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Payment, error) {
	return s.paymentRepo.ListByOrder(ctx, orderID)
}

func (s *paymentLedger) recomputeByOrderID(ctx context.Context, tx *sql.Tx, actor uuid.UUID, orderID uuid.UUID) error {
	order, err := s.orderRepo.FindByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return &domain.NotFoundError{Entity: "order", ID: orderID}
	}
	return s.recompute(ctx, tx, actor, order)
}

// recompute rebuilds the order's cached settlement columns from the payment
// set. It must run in the same transaction as the payment mutation so the
// cached totals can never diverge from the payments they summarize.
func (s *paymentLedger) recompute(ctx context.Context, tx *sql.Tx, actor uuid.UUID, order *domain.Order) error {
	paid, hasRefund, err := s.paymentRepo.SettlementSums(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	order.ApplySettlement(paid, hasRefund)
	order.UpdatedBy = actor
	return s.orderRepo.UpdateSettlement(ctx, tx, order)
}
