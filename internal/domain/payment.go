package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSuccess   PaymentStatus = "SUCCESS"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentSuccess, PaymentFailed, PaymentRefunded, PaymentCancelled:
		return true
	}
	return false
}

// Settled reports whether the payment has reached a state where its amount is
// immutable. Settled payments can only be altered through the refund flow.
func (s PaymentStatus) Settled() bool {
	return s == PaymentSuccess || s == PaymentRefunded
}

type PaymentMethod string

const (
	MethodCard           PaymentMethod = "card"
	MethodMobileMoney    PaymentMethod = "mobile_money"
	MethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	MethodBankTransfer   PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodMobileMoney, MethodCashOnDelivery, MethodBankTransfer:
		return true
	}
	return false
}

type Payment struct {
	ID             uuid.UUID       `json:"id"`
	OrderID        uuid.UUID       `json:"order_id"`
	Method         PaymentMethod   `json:"method"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         PaymentStatus   `json:"status"`
	TransactionRef string          `json:"transaction_ref"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	CreatedBy      uuid.UUID       `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// EffectivePaid is the amount this payment still contributes to the order's
// paid total: the captured amount minus anything refunded off it.
func (p *Payment) EffectivePaid() decimal.Decimal {
	if p.Status != PaymentSuccess && p.Status != PaymentRefunded {
		return decimal.Zero
	}
	return p.Amount.Sub(p.RefundedAmount)
}

type Refund struct {
	ID        uuid.UUID       `json:"id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	CreatedBy uuid.UUID       `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}
