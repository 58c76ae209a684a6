package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/DevMad123/enma-commerce-core/internal/domain"
)

type StockRepo interface {
	CreateProduct(ctx context.Context, tx *sql.Tx, p *domain.Product) error
	FindProduct(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Product, error)
	// TryReserve decrements the available quantity if, and only if, at least
	// qty units are available. The conditional UPDATE takes the row lock, so
	// concurrent reservations on the same product serialize on it.
	TryReserve(ctx context.Context, tx *sql.Tx, id uuid.UUID, qty int) (bool, error)
	Release(ctx context.Context, tx *sql.Tx, id uuid.UUID, qty int) error
}

type stockRepo struct {
	db *sql.DB
}

func NewStockRepo(db *sql.DB) StockRepo {
	return &stockRepo{db: db}
}

func (r *stockRepo) CreateProduct(ctx context.Context, tx *sql.Tx, p *domain.Product) error {
	query := `INSERT INTO products (id, name, sku, price, available_quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := tx.ExecContext(ctx, query, p.ID, p.Name, p.SKU, p.Price, p.AvailableQuantity, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *stockRepo) FindProduct(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT id, name, sku, price, available_quantity, created_at, updated_at FROM products WHERE id = $1`
	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, id)
	} else {
		row = r.db.QueryRowContext(ctx, query, id)
	}
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.AvailableQuantity, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *stockRepo) TryReserve(ctx context.Context, tx *sql.Tx, id uuid.UUID, qty int) (bool, error) {
	query := `
		UPDATE products
		SET available_quantity = available_quantity - $2,
		    updated_at = now()
		WHERE id = $1 AND available_quantity >= $2
	`
	res, err := tx.ExecContext(ctx, query, id, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *stockRepo) Release(ctx context.Context, tx *sql.Tx, id uuid.UUID, qty int) error {
	query := `
		UPDATE products
		SET available_quantity = available_quantity + $2,
		    updated_at = now()
		WHERE id = $1
	`
	_, err := tx.ExecContext(ctx, query, id, qty)
	return err
}
