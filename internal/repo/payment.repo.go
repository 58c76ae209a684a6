package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DevMad123/enma-commerce-core/internal/domain"
)

type PaymentRepo interface {
	Create(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Payment, error)
	Update(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Payment, error)
	CreateRefund(ctx context.Context, tx *sql.Tx, refund *domain.Refund) error
	// SettlementSums aggregates the order's net paid amount (successful
	// captures minus refunds) and whether any refund has been taken.
	SettlementSums(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (decimal.Decimal, bool, error)
	// HasSettled reports whether any payment on the order reached a settled
	// (SUCCESS or REFUNDED) state.
	HasSettled(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (bool, error)
	FindStuckPending(ctx context.Context, before time.Time, limit int) ([]domain.Payment, error)
}

type paymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepo {
	return &paymentRepo{db: db}
}

const paymentColumns = `id, order_id, method, amount, currency, status, transaction_ref,
	refunded_amount, failure_reason, created_by, created_at, updated_at`

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Currency, &p.Status, &p.TransactionRef,
		&p.RefundedAmount, &p.FailureReason, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) Create(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := tx.ExecContext(ctx, query,
		payment.ID, payment.OrderID, payment.Method, payment.Amount, payment.Currency,
		payment.Status, payment.TransactionRef, payment.RefundedAmount, payment.FailureReason,
		payment.CreatedBy, payment.CreatedAt, payment.UpdatedAt,
	)
	return err
}

func (r *paymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

func (r *paymentRepo) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Payment, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id)
	return scanPayment(row)
}

func (r *paymentRepo) Update(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $2,
		    transaction_ref = $3,
		    refunded_amount = $4,
		    failure_reason = $5,
		    updated_at = now()
		WHERE id = $1
	`
	_, err := tx.ExecContext(ctx, query,
		payment.ID, payment.Status, payment.TransactionRef, payment.RefundedAmount, payment.FailureReason,
	)
	return err
}

func (r *paymentRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *paymentRepo) CreateRefund(ctx context.Context, tx *sql.Tx, refund *domain.Refund) error {
	query := `INSERT INTO refunds (id, payment_id, amount, reason, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.ExecContext(ctx, query,
		refund.ID, refund.PaymentID, refund.Amount, refund.Reason, refund.CreatedBy, refund.CreatedAt)
	return err
}

func (r *paymentRepo) SettlementSums(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (decimal.Decimal, bool, error) {
	query := `
		SELECT
			COALESCE(SUM(amount - refunded_amount) FILTER (WHERE status IN ($2, $3)), 0),
			COUNT(*) FILTER (WHERE refunded_amount > 0)
		FROM payments
		WHERE order_id = $1
	`
	var paid decimal.Decimal
	var refunds int
	err := tx.QueryRowContext(ctx, query, orderID, domain.PaymentSuccess, domain.PaymentRefunded).
		Scan(&paid, &refunds)
	if err != nil {
		return decimal.Zero, false, err
	}
	return paid, refunds > 0, nil
}

func (r *paymentRepo) HasSettled(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE order_id = $1 AND status IN ($2, $3))`,
		orderID, domain.PaymentSuccess, domain.PaymentRefunded,
	).Scan(&exists)
	return exists, err
}

func (r *paymentRepo) FindStuckPending(ctx context.Context, before time.Time, limit int) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE status = $1 AND created_at < $2 ORDER BY created_at LIMIT $3`,
		domain.PaymentPending, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}
