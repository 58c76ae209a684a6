package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product carries the stock counter alongside catalog basics. The counter is
// mutated only through the stock ledger's reserve/release operations.
type Product struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	SKU               string          `json:"sku"`
	Price             decimal.Decimal `json:"price"`
	AvailableQuantity int             `json:"available_quantity"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type ShippingMethod struct {
	ID   uuid.UUID       `json:"id"`
	Name string          `json:"name"`
	Cost decimal.Decimal `json:"cost"`
}

// PaymentMethodRef is a storefront-selectable payment method. Its name maps
// onto the PaymentMethod enum recorded on payments.
type PaymentMethodRef struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Enabled bool      `json:"enabled"`
}
