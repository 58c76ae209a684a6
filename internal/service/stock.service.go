package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/DevMad123/enma-commerce-core/internal/domain"
	"github.com/DevMad123/enma-commerce-core/internal/repo"
)

// StockLedger owns the per-product available-quantity counters. Both
// operations run inside the caller's transaction: an order reserves all of
// its lines in one unit of work, so a failed line rolls back every decrement
// made before it.
type StockLedger interface {
	Reserve(ctx context.Context, tx *sql.Tx, productID uuid.UUID, qty int) error
	Release(ctx context.Context, tx *sql.Tx, productID uuid.UUID, qty int) error
}

type stockLedger struct {
	stockRepo repo.StockRepo
}

func NewStockLedger(stockRepo repo.StockRepo) StockLedger {
	return &stockLedger{stockRepo: stockRepo}
}

func (s *stockLedger) Reserve(ctx context.Context, tx *sql.Tx, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return &domain.ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}

	ok, err := s.stockRepo.TryReserve(ctx, tx, productID, qty)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	product, err := s.stockRepo.FindProduct(ctx, tx, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return &domain.NotFoundError{Entity: "product", ID: productID}
	}
	return &domain.InsufficientStockError{
		ProductID:   product.ID,
		ProductName: product.Name,
		Requested:   qty,
		Available:   product.AvailableQuantity,
	}
}

func (s *stockLedger) Release(ctx context.Context, tx *sql.Tx, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return &domain.ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}
	if err := s.stockRepo.Release(ctx, tx, productID, qty); err != nil {
		return err
	}
	slog.Debug("stock released", "product_id", productID, "quantity", qty)
	return nil
}
