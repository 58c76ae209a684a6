package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/DevMad123/enma-commerce-core/internal/domain"
)

// MethodRepo resolves the shipping-method and payment-method references a
// checkout names. Both are maintained by the back office outside this core.
type MethodRepo interface {
	CreateShippingMethod(ctx context.Context, tx *sql.Tx, m *domain.ShippingMethod) error
	CreatePaymentMethod(ctx context.Context, tx *sql.Tx, m *domain.PaymentMethodRef) error
	FindShippingMethod(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.ShippingMethod, error)
	FindPaymentMethod(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.PaymentMethodRef, error)
}

type methodRepo struct {
	db *sql.DB
}

func NewMethodRepo(db *sql.DB) MethodRepo {
	return &methodRepo{db: db}
}

func (r *methodRepo) CreateShippingMethod(ctx context.Context, tx *sql.Tx, m *domain.ShippingMethod) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO shipping_methods (id, name, cost) VALUES ($1, $2, $3)`, m.ID, m.Name, m.Cost)
	return err
}

func (r *methodRepo) CreatePaymentMethod(ctx context.Context, tx *sql.Tx, m *domain.PaymentMethodRef) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payment_methods (id, name, enabled) VALUES ($1, $2, $3)`, m.ID, m.Name, m.Enabled)
	return err
}

func (r *methodRepo) FindShippingMethod(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.ShippingMethod, error) {
	query := `SELECT id, name, cost FROM shipping_methods WHERE id = $1`
	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, id)
	} else {
		row = r.db.QueryRowContext(ctx, query, id)
	}
	var m domain.ShippingMethod
	err := row.Scan(&m.ID, &m.Name, &m.Cost)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *methodRepo) FindPaymentMethod(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.PaymentMethodRef, error) {
	query := `SELECT id, name, enabled FROM payment_methods WHERE id = $1`
	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, id)
	} else {
		row = r.db.QueryRowContext(ctx, query, id)
	}
	var m domain.PaymentMethodRef
	err := row.Scan(&m.ID, &m.Name, &m.Enabled)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
