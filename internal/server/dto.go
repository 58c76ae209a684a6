package server

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DevMad123/enma-commerce-core/internal/domain"
)

type contactInfo struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
}

type cartItem struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,gt=0"`
}

type checkoutRequest struct {
	Contact          contactInfo `json:"contact" binding:"required"`
	Items            []cartItem  `json:"items" binding:"required,min=1,dive"`
	ShippingMethodID uuid.UUID   `json:"shipping_method_id" binding:"required"`
	PaymentMethodID  uuid.UUID   `json:"payment_method_id" binding:"required"`
	ShippingAddress  string      `json:"shipping_address"`
}

type createOrderRequest struct {
	CustomerID       uuid.UUID       `json:"customer_id" binding:"required"`
	ShippingMethodID uuid.UUID       `json:"shipping_method_id" binding:"required"`
	PaymentMethodID  uuid.UUID       `json:"payment_method_id" binding:"required"`
	ShippingAddress  string          `json:"shipping_address"`
	ShippingCost     decimal.Decimal `json:"shipping_cost"`
	Discount         decimal.Decimal `json:"discount"`
	Tax              decimal.Decimal `json:"tax"`
	Items            []cartItem      `json:"items" binding:"required,min=1,dive"`
}

type updateOrderRequest struct {
	ShippingAddress *string          `json:"shipping_address"`
	Discount        *decimal.Decimal `json:"discount"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type recordPaymentRequest struct {
	Amount    decimal.Decimal      `json:"amount" binding:"required"`
	Method    domain.PaymentMethod `json:"method" binding:"required"`
	Confirmed bool                 `json:"confirmed"`
}

type markSuccessRequest struct {
	TransactionRef string `json:"transaction_ref" binding:"required"`
}

type markFailedRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type refundRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason"`
}

type errorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
