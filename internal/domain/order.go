package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus int

const (
	OrderPending OrderStatus = iota
	OrderProcessing
	OrderInTransit
	OrderCancellationRequested
	OrderCancellationAccepted
	OrderCancellationFinalized
	OrderCompleted
)

var orderStatusNames = map[OrderStatus]string{
	OrderPending:               "pending",
	OrderProcessing:            "processing",
	OrderInTransit:             "in_transit",
	OrderCancellationRequested: "cancellation_requested",
	OrderCancellationAccepted:  "cancellation_accepted",
	OrderCancellationFinalized: "cancellation_finalized",
	OrderCompleted:             "completed",
}

func (s OrderStatus) String() string {
	if name, ok := orderStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusNames[s]
	return ok
}

// ParseOrderStatus resolves a status name as used on the wire.
func ParseOrderStatus(name string) (OrderStatus, bool) {
	for status, n := range orderStatusNames {
		if n == name {
			return status, true
		}
	}
	return 0, false
}

// Terminal reports whether no transition out of s is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancellationFinalized
}

// CanTransitionTo encodes the order state machine. Forward moves among
// pending/processing/in_transit may skip steps, completed is reachable from
// any of those three, and the cancellation chain is strict:
// requested -> accepted -> finalized.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	if !to.Valid() || s.Terminal() || s == to {
		return false
	}
	switch s {
	case OrderPending, OrderProcessing, OrderInTransit:
		return (to > s && to <= OrderInTransit) ||
			to == OrderCompleted ||
			to == OrderCancellationRequested
	case OrderCancellationRequested:
		return to == OrderCancellationAccepted
	case OrderCancellationAccepted:
		return to == OrderCancellationFinalized
	}
	return false
}

// SettlementStatus is the payment axis cached on the order row. It is a
// materialized view over the order's payments, recomputed transactionally
// after every payment mutation and never written independently.
type SettlementStatus int

const (
	SettlementUnpaid SettlementStatus = iota
	SettlementPaid
	SettlementPartiallyPaid
	SettlementRefunded
)

func (s SettlementStatus) String() string {
	switch s {
	case SettlementUnpaid:
		return "unpaid"
	case SettlementPaid:
		return "paid"
	case SettlementPartiallyPaid:
		return "partially_paid"
	case SettlementRefunded:
		return "refunded"
	}
	return "unknown"
}

// DeriveSettlement classifies the net paid amount against the payable total.
// A refund only surfaces as "refunded" once it has taken the net paid amount
// back to zero; a partial refund that leaves money on the order reads as
// partially paid.
func DeriveSettlement(paid, payable decimal.Decimal, hasRefund bool) SettlementStatus {
	switch {
	case paid.GreaterThanOrEqual(payable) && payable.IsPositive():
		return SettlementPaid
	case paid.IsPositive():
		return SettlementPartiallyPaid
	case hasRefund:
		return SettlementRefunded
	default:
		return SettlementUnpaid
	}
}

type OrderLineItem struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	// ReservedQuantity tracks how much stock this line still holds. It is set
	// to Quantity when the order reserves stock and zeroed when the stock is
	// released, so a release can never return more than was taken.
	ReservedQuantity int             `json:"reserved_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	LineTotal        decimal.Decimal `json:"line_total"`
}

type Order struct {
	ID               uuid.UUID        `json:"id"`
	Reference        string           `json:"reference"`
	CustomerID       uuid.UUID        `json:"customer_id"`
	ShippingMethodID uuid.UUID        `json:"shipping_method_id"`
	PaymentMethodID  uuid.UUID        `json:"payment_method_id"`
	ShippingAddress  string           `json:"shipping_address"`
	Status           OrderStatus      `json:"order_status"`
	Settlement       SettlementStatus `json:"payment_status"`
	Items            []OrderLineItem  `json:"items"`

	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Discount     decimal.Decimal `json:"discount"`
	Tax          decimal.Decimal `json:"tax"`
	TotalPayable decimal.Decimal `json:"total_payable"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	TotalDue     decimal.Decimal `json:"total_due"`

	CreatedBy uuid.UUID `json:"created_by"`
	UpdatedBy uuid.UUID `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecomputeTotals rebuilds the monetary columns from the line items and the
// shipping/discount/tax figures.
func (o *Order) RecomputeTotals() {
	subtotal := decimal.Zero
	for _, it := range o.Items {
		subtotal = subtotal.Add(it.LineTotal)
	}
	o.Subtotal = subtotal
	o.TotalPayable = subtotal.Add(o.ShippingCost).Add(o.Tax).Sub(o.Discount)
	o.ApplySettlement(o.TotalPaid, o.Settlement == SettlementRefunded)
}

// ApplySettlement updates the cached paid/due totals and the settlement
// status from the given net paid amount. TotalDue is clamped at zero so an
// overpaid order never reports negative dues.
func (o *Order) ApplySettlement(paid decimal.Decimal, hasRefund bool) {
	o.TotalPaid = paid
	due := o.TotalPayable.Sub(paid)
	if due.IsNegative() {
		due = decimal.Zero
	}
	o.TotalDue = due
	o.Settlement = DeriveSettlement(paid, o.TotalPayable, hasRefund)
}

// Editable reports whether the order header and lines may still change.
// Orders that have shipped are frozen outside the cancellation workflow.
func (o *Order) Editable() bool {
	return o.Status < OrderInTransit
}

type OrderStatistics struct {
	Total         int             `json:"total"`
	ByStatus      map[string]int  `json:"by_status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AverageAmount decimal.Decimal `json:"average_amount"`
}

type StatisticsFilter struct {
	From   *time.Time
	To     *time.Time
	Status *OrderStatus
}
