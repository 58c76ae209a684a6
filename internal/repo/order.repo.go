package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/DevMad123/enma-commerce-core/internal/domain"
)

type OrderRepo interface {
	Create(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// FindByIDForUpdate locks the order row for the remainder of the
	// transaction so concurrent status/payment mutations serialize.
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	UpdateSettlement(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	UpdateDetails(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	ZeroReservations(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) error
	Statistics(ctx context.Context, f domain.StatisticsFilter) (*domain.OrderStatistics, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, reference, customer_id, shipping_method_id, payment_method_id, shipping_address,
	order_status, payment_status, subtotal, shipping_cost, discount, tax,
	total_payable, total_paid, total_due, created_by, updated_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.Reference, &o.CustomerID, &o.ShippingMethodID, &o.PaymentMethodID, &o.ShippingAddress,
		&o.Status, &o.Settlement, &o.Subtotal, &o.ShippingCost, &o.Discount, &o.Tax,
		&o.TotalPayable, &o.TotalPaid, &o.TotalDue, &o.CreatedBy, &o.UpdatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) Create(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := tx.ExecContext(ctx, query,
		order.ID, order.Reference, order.CustomerID, order.ShippingMethodID, order.PaymentMethodID, order.ShippingAddress,
		order.Status, order.Settlement, order.Subtotal, order.ShippingCost, order.Discount, order.Tax,
		order.TotalPayable, order.TotalPaid, order.TotalDue, order.CreatedBy, order.UpdatedBy, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (id, order_id, product_id, quantity, reserved_quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, it := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			it.ID, it.OrderID, it.ProductID, it.Quantity, it.ReservedQuantity, it.UnitPrice, it.LineTotal,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil || order == nil {
		return order, err
	}
	order.Items, err = r.loadItems(ctx, r.db.QueryContext, id)
	return order, err
}

func (r *orderRepo) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	order, err := scanOrder(row)
	if err != nil || order == nil {
		return order, err
	}
	order.Items, err = r.loadItems(ctx, tx.QueryContext, id)
	return order, err
}

type queryFunc func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func (r *orderRepo) loadItems(ctx context.Context, query queryFunc, orderID uuid.UUID) ([]domain.OrderLineItem, error) {
	rows, err := query(ctx,
		`SELECT id, order_id, product_id, quantity, reserved_quantity, unit_price, line_total
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderLineItem
	for rows.Next() {
		var it domain.OrderLineItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.ReservedQuantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *orderRepo) UpdateStatus(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE orders SET order_status = $2, updated_by = $3, updated_at = now() WHERE id = $1`,
		order.ID, order.Status, order.UpdatedBy,
	)
	return err
}

func (r *orderRepo) UpdateSettlement(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE orders SET payment_status = $2, total_paid = $3, total_due = $4, updated_by = $5, updated_at = now()
		 WHERE id = $1`,
		order.ID, order.Settlement, order.TotalPaid, order.TotalDue, order.UpdatedBy,
	)
	return err
}

func (r *orderRepo) UpdateDetails(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE orders SET shipping_address = $2, discount = $3, subtotal = $4, total_payable = $5,
		        total_due = $6, payment_status = $7, updated_by = $8, updated_at = now()
		 WHERE id = $1`,
		order.ID, order.ShippingAddress, order.Discount, order.Subtotal, order.TotalPayable,
		order.TotalDue, order.Settlement, order.UpdatedBy,
	)
	return err
}

func (r *orderRepo) ZeroReservations(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE order_items SET reserved_quantity = 0 WHERE order_id = $1`, orderID)
	return err
}

func (r *orderRepo) Statistics(ctx context.Context, f domain.StatisticsFilter) (*domain.OrderStatistics, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if f.From != nil {
		args = append(args, *f.From)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		where += fmt.Sprintf(" AND order_status = $%d", len(args))
	}

	stats := &domain.OrderStatistics{ByStatus: map[string]int{}}
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_payable), 0), COALESCE(AVG(total_payable), 0) FROM orders`+where, args...)
	if err := row.Scan(&stats.Total, &stats.TotalAmount, &stats.AverageAmount); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT order_status, COUNT(*) FROM orders`+where+` GROUP BY order_status`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status domain.OrderStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status.String()] = count
	}
	return stats, rows.Err()
}
