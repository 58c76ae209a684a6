package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DevMad123/enma-commerce-core/internal/database"
	"github.com/DevMad123/enma-commerce-core/internal/domain"
	"github.com/DevMad123/enma-commerce-core/internal/repo"
)

type ContactInfo struct {
	Name  string
	Email string
	Phone string
}

type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type CheckoutRequest struct {
	Contact          ContactInfo
	Items            []CartItem
	ShippingMethodID uuid.UUID
	PaymentMethodID  uuid.UUID
	ShippingAddress  string
}

// CheckoutOrchestrator is the storefront entry point: it resolves or creates
// the customer, validates the method references, and creates the order — all
// in one transaction, so a failed checkout leaves no partial customer, order,
// or stock mutation behind.
type CheckoutOrchestrator interface {
	Checkout(ctx context.Context, actor uuid.UUID, req CheckoutRequest) (*domain.Order, error)
}

type checkoutOrchestrator struct {
	db           *sql.DB
	customerRepo repo.CustomerRepo
	methodRepo   repo.MethodRepo
	orders       OrderLifecycle
}

func NewCheckoutOrchestrator(
	db *sql.DB,
	customerRepo repo.CustomerRepo,
	methodRepo repo.MethodRepo,
	orders OrderLifecycle,
) CheckoutOrchestrator {
	return &checkoutOrchestrator{
		db:           db,
		customerRepo: customerRepo,
		methodRepo:   methodRepo,
		orders:       orders,
	}
}

func (s *checkoutOrchestrator) Checkout(ctx context.Context, actor uuid.UUID, req CheckoutRequest) (*domain.Order, error) {
	if req.Contact.Email == "" {
		return nil, &domain.ValidationError{Field: "email", Reason: "is required"}
	}
	if len(req.Items) == 0 {
		return nil, &domain.ValidationError{Field: "items", Reason: "cart is empty"}
	}

	var order *domain.Order
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		customer, err := s.customerRepo.FindByEmail(ctx, tx, req.Contact.Email)
		if err != nil {
			return err
		}
		if customer == nil {
			customer = &domain.Customer{
				ID:        uuid.New(),
				Name:      req.Contact.Name,
				Email:     req.Contact.Email,
				Phone:     req.Contact.Phone,
				CreatedAt: time.Now().UTC(),
			}
			if err := s.customerRepo.Create(ctx, tx, customer); err != nil {
				return err
			}
			slog.Info("customer created", "customer_id", customer.ID)
		}

		shipping, err := s.methodRepo.FindShippingMethod(ctx, tx, req.ShippingMethodID)
		if err != nil {
			return err
		}
		if shipping == nil {
			return &domain.NotFoundError{Entity: "shipping_method", ID: req.ShippingMethodID}
		}
		payMethod, err := s.methodRepo.FindPaymentMethod(ctx, tx, req.PaymentMethodID)
		if err != nil {
			return err
		}
		if payMethod == nil {
			return &domain.NotFoundError{Entity: "payment_method", ID: req.PaymentMethodID}
		}
		if !payMethod.Enabled {
			return &domain.ValidationError{Field: "payment_method", Reason: "is disabled"}
		}

		draft := OrderDraft{
			CustomerID:       customer.ID,
			ShippingMethodID: shipping.ID,
			PaymentMethodID:  payMethod.ID,
			ShippingAddress:  req.ShippingAddress,
			ShippingCost:     shipping.Cost,
		}
		for _, item := range req.Items {
			draft.Lines = append(draft.Lines, DraftLine{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		order, err = s.orders.CreateOrderTx(ctx, tx, actor, draft)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("checkout completed", "order_id", order.ID, "reference", order.Reference)
	return order, nil
}
