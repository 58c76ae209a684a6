package repo

import (
	"context"
	"database/sql"

	"github.com/DevMad123/enma-commerce-core/internal/domain"
)

type CustomerRepo interface {
	Create(ctx context.Context, tx *sql.Tx, c *domain.Customer) error
	FindByEmail(ctx context.Context, tx *sql.Tx, email string) (*domain.Customer, error)
}

type customerRepo struct {
	db *sql.DB
}

func NewCustomerRepo(db *sql.DB) CustomerRepo {
	return &customerRepo{db: db}
}

func (r *customerRepo) Create(ctx context.Context, tx *sql.Tx, c *domain.Customer) error {
	query := `INSERT INTO customers (id, name, email, phone, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.ExecContext(ctx, query, c.ID, c.Name, c.Email, c.Phone, c.CreatedAt)
	return err
}

func (r *customerRepo) FindByEmail(ctx context.Context, tx *sql.Tx, email string) (*domain.Customer, error) {
	query := `SELECT id, name, email, phone, created_at FROM customers WHERE email = $1`
	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, email)
	} else {
		row = r.db.QueryRowContext(ctx, query, email)
	}
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
