package service_test

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/DevMad123/enma-commerce-core/internal/database"
	"github.com/DevMad123/enma-commerce-core/internal/domain"
	"github.com/DevMad123/enma-commerce-core/internal/repo"
	"github.com/DevMad123/enma-commerce-core/internal/service"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("commerce_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Fatalf("start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}
	testDB, err = sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if err := database.EnsureSchema(ctx, testDB); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	code := m.Run()

	testDB.Close()
	if err := testcontainers.TerminateContainer(container); err != nil {
		log.Printf("terminate container: %v", err)
	}
	os.Exit(code)
}

// harness wires the full service stack against the shared test database and
// starts every test from empty tables.
type harness struct {
	orderRepo    repo.OrderRepo
	paymentRepo  repo.PaymentRepo
	stockRepo    repo.StockRepo
	customerRepo repo.CustomerRepo
	methodRepo   repo.MethodRepo

	stock     service.StockLedger
	lifecycle service.OrderLifecycle
	ledger    service.PaymentLedger
	checkout  service.CheckoutOrchestrator

	actor uuid.UUID
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithPolicy(t, true)
}

func newHarnessWithPolicy(t *testing.T, requirePaidToComplete bool) *harness {
	t.Helper()

	_, err := testDB.Exec(`TRUNCATE refunds, payments, order_items, orders, customers, products, shipping_methods, payment_methods`)
	require.NoError(t, err)

	orderRepo := repo.NewOrderRepo(testDB)
	paymentRepo := repo.NewPaymentRepo(testDB)
	stockRepo := repo.NewStockRepo(testDB)
	customerRepo := repo.NewCustomerRepo(testDB)
	methodRepo := repo.NewMethodRepo(testDB)

	stock := service.NewStockLedger(stockRepo)
	lifecycle := service.NewOrderLifecycle(testDB, orderRepo, paymentRepo, stockRepo, stock, requirePaidToComplete)

	return &harness{
		orderRepo:    orderRepo,
		paymentRepo:  paymentRepo,
		stockRepo:    stockRepo,
		customerRepo: customerRepo,
		methodRepo:   methodRepo,
		stock:        stock,
		lifecycle:    lifecycle,
		ledger:       service.NewPaymentLedger(testDB, orderRepo, paymentRepo, "XOF"),
		checkout:     service.NewCheckoutOrchestrator(testDB, customerRepo, methodRepo, lifecycle),
		actor:        uuid.New(),
	}
}

func (h *harness) inTx(t *testing.T, fn func(tx *sql.Tx) error) {
	t.Helper()
	require.NoError(t, database.WithTx(context.Background(), testDB, fn))
}

func (h *harness) seedProduct(t *testing.T, name string, price int64, qty int) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	p := &domain.Product{
		ID:                uuid.New(),
		Name:              name,
		SKU:               "SKU-" + uuid.NewString()[:8],
		Price:             decimal.NewFromInt(price),
		AvailableQuantity: qty,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	h.inTx(t, func(tx *sql.Tx) error {
		return h.stockRepo.CreateProduct(context.Background(), tx, p)
	})
	return p.ID
}

func (h *harness) seedCustomer(t *testing.T, email string) uuid.UUID {
	t.Helper()
	c := &domain.Customer{
		ID:        uuid.New(),
		Name:      "Test Customer",
		Email:     email,
		Phone:     "+22990000000",
		CreatedAt: time.Now().UTC(),
	}
	h.inTx(t, func(tx *sql.Tx) error {
		return h.customerRepo.Create(context.Background(), tx, c)
	})
	return c.ID
}

func (h *harness) seedMethods(t *testing.T, shippingCost int64) (shipping, payment uuid.UUID) {
	t.Helper()
	sm := &domain.ShippingMethod{ID: uuid.New(), Name: "standard", Cost: decimal.NewFromInt(shippingCost)}
	pm := &domain.PaymentMethodRef{ID: uuid.New(), Name: "card", Enabled: true}
	h.inTx(t, func(tx *sql.Tx) error {
		if err := h.methodRepo.CreateShippingMethod(context.Background(), tx, sm); err != nil {
			return err
		}
		return h.methodRepo.CreatePaymentMethod(context.Background(), tx, pm)
	})
	return sm.ID, pm.ID
}

func (h *harness) available(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	p, err := h.stockRepo.FindProduct(context.Background(), nil, productID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.AvailableQuantity
}

func (h *harness) reloadOrder(t *testing.T, id uuid.UUID) *domain.Order {
	t.Helper()
	order, err := h.orderRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, order)
	return order
}

func (h *harness) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, testDB.QueryRow(query, args...).Scan(&n))
	return n
}

// placeOrder seeds a customer plus methods and creates an order through the
// lifecycle service. Most scenarios start here.
func (h *harness) placeOrder(t *testing.T, shippingCost int64, lines ...service.DraftLine) *domain.Order {
	t.Helper()
	customerID := h.seedCustomer(t, uuid.NewString()[:8]+"@example.com")
	shippingID, payMethodID := h.seedMethods(t, shippingCost)

	order, err := h.lifecycle.CreateOrder(context.Background(), h.actor, service.OrderDraft{
		CustomerID:       customerID,
		ShippingMethodID: shippingID,
		PaymentMethodID:  payMethodID,
		ShippingAddress:  "12 Rue des Cocotiers, Cotonou",
		ShippingCost:     decimal.NewFromInt(shippingCost),
		Lines:            lines,
	})
	require.NoError(t, err)
	return order
}
