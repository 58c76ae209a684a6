package service_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevMad123/enma-commerce-core/internal/domain"
	"github.com/DevMad123/enma-commerce-core/internal/service"
)

func TestCheckoutCreatesCustomerAndOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	productID := h.seedProduct(t, "Widget", 1000, 5)
	shippingID, payMethodID := h.seedMethods(t, 500)

	req := service.CheckoutRequest{
		Contact:          service.ContactInfo{Name: "Ama Diallo", Email: "ama@example.com", Phone: "+22991234567"},
		Items:            []service.CartItem{{ProductID: productID, Quantity: 2}},
		ShippingMethodID: shippingID,
		PaymentMethodID:  payMethodID,
		ShippingAddress:  "12 Rue des Cocotiers, Cotonou",
	}

	order, err := h.checkout.Checkout(ctx, h.actor, req)
	require.NoError(t, err)
	// Shipping cost comes from the method, not the request.
	assert.True(t, order.TotalPayable.Equal(decimal.NewFromInt(2500)), "payable = %s", order.TotalPayable)
	assert.Equal(t, 3, h.available(t, productID))
	assert.Equal(t, 1, h.count(t, `SELECT COUNT(*) FROM customers WHERE email = $1`, "ama@example.com"))

	// A returning customer is matched by email, not duplicated.
	_, err = h.checkout.Checkout(ctx, h.actor, req)
	require.NoError(t, err)
	assert.Equal(t, 1, h.count(t, `SELECT COUNT(*) FROM customers WHERE email = $1`, "ama@example.com"))
	assert.Equal(t, 2, h.count(t, `SELECT COUNT(*) FROM orders`))
}

func TestCheckoutRollsBackEverythingOnStockFailure(t *testing.T) {
	h := newHarness(t)
	productID := h.seedProduct(t, "Widget", 1000, 5)
	shippingID, payMethodID := h.seedMethods(t, 500)

	_, err := h.checkout.Checkout(context.Background(), h.actor, service.CheckoutRequest{
		Contact:          service.ContactInfo{Name: "New Buyer", Email: "new@example.com"},
		Items:            []service.CartItem{{ProductID: productID, Quantity: 9}},
		ShippingMethodID: shippingID,
		PaymentMethodID:  payMethodID,
	})

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	// The customer created earlier in the same transaction rolls back too.
	assert.Equal(t, 0, h.count(t, `SELECT COUNT(*) FROM customers`))
	assert.Equal(t, 0, h.count(t, `SELECT COUNT(*) FROM orders`))
	assert.Equal(t, 5, h.available(t, productID))
}

func TestCheckoutRejectsDisabledPaymentMethod(t *testing.T) {
	h := newHarness(t)
	productID := h.seedProduct(t, "Widget", 1000, 5)
	shippingID, _ := h.seedMethods(t, 0)

	disabled := &domain.PaymentMethodRef{ID: uuid.New(), Name: "legacy", Enabled: false}
	h.inTx(t, func(tx *sql.Tx) error {
		return h.methodRepo.CreatePaymentMethod(context.Background(), tx, disabled)
	})

	_, err := h.checkout.Checkout(context.Background(), h.actor, service.CheckoutRequest{
		Contact:          service.ContactInfo{Name: "Buyer", Email: "buyer@example.com"},
		Items:            []service.CartItem{{ProductID: productID, Quantity: 1}},
		ShippingMethodID: shippingID,
		PaymentMethodID:  disabled.ID,
	})

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "payment_method", validationErr.Field)
}

func TestCheckoutUnknownMethods(t *testing.T) {
	h := newHarness(t)
	productID := h.seedProduct(t, "Widget", 1000, 5)
	shippingID, payMethodID := h.seedMethods(t, 0)
	items := []service.CartItem{{ProductID: productID, Quantity: 1}}
	contact := service.ContactInfo{Name: "Buyer", Email: "buyer@example.com"}
	var notFound *domain.NotFoundError

	_, err := h.checkout.Checkout(context.Background(), h.actor, service.CheckoutRequest{
		Contact: contact, Items: items,
		ShippingMethodID: uuid.New(), PaymentMethodID: payMethodID,
	})
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "shipping_method", notFound.Entity)

	_, err = h.checkout.Checkout(context.Background(), h.actor, service.CheckoutRequest{
		Contact: contact, Items: items,
		ShippingMethodID: shippingID, PaymentMethodID: uuid.New(),
	})
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "payment_method", notFound.Entity)
}

func TestCheckoutValidation(t *testing.T) {
	h := newHarness(t)
	var validationErr *domain.ValidationError

	_, err := h.checkout.Checkout(context.Background(), h.actor, service.CheckoutRequest{
		Items: []service.CartItem{{ProductID: uuid.New(), Quantity: 1}},
	})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "email", validationErr.Field)

	_, err = h.checkout.Checkout(context.Background(), h.actor, service.CheckoutRequest{
		Contact: service.ContactInfo{Email: "buyer@example.com"},
	})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "items", validationErr.Field)
}
