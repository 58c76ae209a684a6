package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DevMad123/enma-commerce-core/internal/database"
	"github.com/DevMad123/enma-commerce-core/internal/domain"
	"github.com/DevMad123/enma-commerce-core/internal/repo"
)

type DraftLine struct {
	ProductID uuid.UUID
	Quantity  int
}

type OrderDraft struct {
	CustomerID       uuid.UUID
	ShippingMethodID uuid.UUID
	PaymentMethodID  uuid.UUID
	ShippingAddress  string
	ShippingCost     decimal.Decimal
	Discount         decimal.Decimal
	Tax              decimal.Decimal
	Lines            []DraftLine
}

type OrderPatch struct {
	ShippingAddress *string
	Discount        *decimal.Decimal
}

// OrderLifecycle owns the order aggregate and its status state machine, and
// orchestrates the stock ledger inside the same unit of work.
type OrderLifecycle interface {
	CreateOrder(ctx context.Context, actor uuid.UUID, draft OrderDraft) (*domain.Order, error)
	// CreateOrderTx is CreateOrder running inside a caller-owned transaction;
	// the checkout flow uses it so customer resolution and order creation
	// commit or roll back together.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, actor uuid.UUID, draft OrderDraft) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateStatus(ctx context.Context, actor uuid.UUID, id uuid.UUID, newStatus domain.OrderStatus) (*domain.Order, error)
	CancelOrder(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*domain.Order, error)
	UpdateOrder(ctx context.Context, actor uuid.UUID, id uuid.UUID, patch OrderPatch) (*domain.Order, error)
	Statistics(ctx context.Context, f domain.StatisticsFilter) (*domain.OrderStatistics, error)
}

type orderLifecycle struct {
	db          *sql.DB
	orderRepo   repo.OrderRepo
	paymentRepo repo.PaymentRepo
	stockRepo   repo.StockRepo
	stock       StockLedger
	requirePaid bool
}

func NewOrderLifecycle(
	db *sql.DB,
	orderRepo repo.OrderRepo,
	paymentRepo repo.PaymentRepo,
	stockRepo repo.StockRepo,
	stock StockLedger,
	requirePaidToComplete bool,
) OrderLifecycle {
	return &orderLifecycle{
		db:          db,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		stockRepo:   stockRepo,
		stock:       stock,
		requirePaid: requirePaidToComplete,
	}
}

func newOrderReference(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

func (s *orderLifecycle) CreateOrder(ctx context.Context, actor uuid.UUID, draft OrderDraft) (*domain.Order, error) {
	var order *domain.Order
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		order, err = s.CreateOrderTx(ctx, tx, actor, draft)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderLifecycle) CreateOrderTx(ctx context.Context, tx *sql.Tx, actor uuid.UUID, draft OrderDraft) (*domain.Order, error) {
	if len(draft.Lines) == 0 {
		return nil, &domain.ValidationError{Field: "items", Reason: "order must contain at least one line item"}
	}
	if draft.Discount.IsNegative() || draft.Tax.IsNegative() || draft.ShippingCost.IsNegative() {
		return nil, &domain.ValidationError{Field: "amounts", Reason: "shipping, discount and tax must not be negative"}
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:               uuid.New(),
		Reference:        newOrderReference(now),
		CustomerID:       draft.CustomerID,
		ShippingMethodID: draft.ShippingMethodID,
		PaymentMethodID:  draft.PaymentMethodID,
		ShippingAddress:  draft.ShippingAddress,
		Status:           domain.OrderPending,
		Settlement:       domain.SettlementUnpaid,
		ShippingCost:     draft.ShippingCost,
		Discount:         draft.Discount,
		Tax:              draft.Tax,
		CreatedBy:        actor,
		UpdatedBy:        actor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	for _, line := range draft.Lines {
		if line.Quantity <= 0 {
			return nil, &domain.ValidationError{Field: "quantity", Reason: "must be greater than zero"}
		}
		product, err := s.stockRepo.FindProduct(ctx, tx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, &domain.NotFoundError{Entity: "product", ID: line.ProductID}
		}
		// Reserving every line inside this transaction makes the whole
		// reservation all-or-nothing: one short line rolls back the rest.
		if err := s.stock.Reserve(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		order.Items = append(order.Items, domain.OrderLineItem{
			ID:               uuid.New(),
			OrderID:          order.ID,
			ProductID:        product.ID,
			Quantity:         line.Quantity,
			ReservedQuantity: line.Quantity,
			UnitPrice:        product.Price,
			LineTotal:        product.Price.Mul(qty),
		})
	}

	order.RecomputeTotals()
	if order.TotalPayable.IsNegative() {
		return nil, &domain.ValidationError{Field: "discount", Reason: "exceeds the order total"}
	}

	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, err
	}

	slog.Info("order created",
		"order_id", order.ID, "reference", order.Reference,
		"items", len(order.Items), "total_payable", order.TotalPayable)
	return order, nil
}

func (s *orderLifecycle) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &domain.NotFoundError{Entity: "order", ID: id}
	}
	return order, nil
}

func (s *orderLifecycle) UpdateStatus(ctx context.Context, actor uuid.UUID, id uuid.UUID, newStatus domain.OrderStatus) (*domain.Order, error) {
	var order *domain.Order
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		order, err = s.transition(ctx, tx, actor, id, newStatus)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderLifecycle) transition(ctx context.Context, tx *sql.Tx, actor uuid.UUID, id uuid.UUID, newStatus domain.OrderStatus) (*domain.Order, error) {
	order, err := s.orderRepo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &domain.NotFoundError{Entity: "order", ID: id}
	}

	if !order.Status.CanTransitionTo(newStatus) {
		return nil, &domain.InvalidStateTransitionError{
			Entity: "order", ID: order.ID,
			From: order.Status.String(), To: newStatus.String(),
		}
	}
	if newStatus == domain.OrderCompleted && s.requirePaid && order.Settlement != domain.SettlementPaid {
		return nil, &domain.InvalidStateTransitionError{
			Entity: "order", ID: order.ID,
			From: order.Status.String(), To: newStatus.String(),
		}
	}

	if newStatus == domain.OrderCancellationFinalized {
		if err := s.releaseReservations(ctx, tx, order); err != nil {
			return nil, err
		}
	}

	order.Status = newStatus
	order.UpdatedBy = actor
	if err := s.orderRepo.UpdateStatus(ctx, tx, order); err != nil {
		return nil, err
	}

	slog.Info("order status changed", "order_id", order.ID, "status", newStatus.String())
	return order, nil
}

// releaseReservations returns every still-reserved quantity to stock and
// zeroes the per-line reservation counters, so a second finalization attempt
// has nothing left to release.
func (s *orderLifecycle) releaseReservations(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	for i := range order.Items {
		it := &order.Items[i]
		if it.ReservedQuantity <= 0 {
			continue
		}
		if err := s.stock.Release(ctx, tx, it.ProductID, it.ReservedQuantity); err != nil {
			return err
		}
		it.ReservedQuantity = 0
	}
	return s.orderRepo.ZeroReservations(ctx, tx, order.ID)
}

func (s *orderLifecycle) CancelOrder(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*domain.Order, error) {
	var order *domain.Order
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		order, err = s.orderRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return &domain.NotFoundError{Entity: "order", ID: id}
		}
		if order.Status.Terminal() {
			return &domain.InvalidStateTransitionError{
				Entity: "order", ID: order.ID,
				From: order.Status.String(), To: domain.OrderCancellationFinalized.String(),
			}
		}
		if err := s.releaseReservations(ctx, tx, order); err != nil {
			return err
		}
		order.Status = domain.OrderCancellationFinalized
		order.UpdatedBy = actor
		if err := s.orderRepo.UpdateStatus(ctx, tx, order); err != nil {
			return err
		}
		slog.Info("order cancelled", "order_id", order.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderLifecycle) UpdateOrder(ctx context.Context, actor uuid.UUID, id uuid.UUID, patch OrderPatch) (*domain.Order, error) {
	var order *domain.Order
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		order, err = s.orderRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return &domain.NotFoundError{Entity: "order", ID: id}
		}
		if !order.Editable() {
			return &domain.ImmutableRecordError{Entity: "order", ID: order.ID, Reason: "order has shipped"}
		}
		settled, err := s.paymentRepo.HasSettled(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if settled {
			return &domain.ImmutableRecordError{Entity: "order", ID: order.ID, Reason: "a settled payment exists"}
		}

		if patch.ShippingAddress != nil {
			order.ShippingAddress = *patch.ShippingAddress
		}
		if patch.Discount != nil {
			if patch.Discount.IsNegative() {
				return &domain.ValidationError{Field: "discount", Reason: "must not be negative"}
			}
			order.Discount = *patch.Discount
		}
		order.RecomputeTotals()
		if order.TotalPayable.IsNegative() {
			return &domain.ValidationError{Field: "discount", Reason: "exceeds the order total"}
		}
		order.UpdatedBy = actor
		return s.orderRepo.UpdateDetails(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderLifecycle) Statistics(ctx context.Context, f domain.StatisticsFilter) (*domain.OrderStatistics, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Reason: "unknown order status"}
	}
	return s.orderRepo.Statistics(ctx, f)
}
