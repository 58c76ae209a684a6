package worker_test

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/DevMad123/enma-commerce-core/internal/database"
	"github.com/DevMad123/enma-commerce-core/internal/domain"
	"github.com/DevMad123/enma-commerce-core/internal/gateway"
	"github.com/DevMad123/enma-commerce-core/internal/repo"
	"github.com/DevMad123/enma-commerce-core/internal/service"
	"github.com/DevMad123/enma-commerce-core/internal/worker"
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

// seedPendingOrder builds an order with the given payable total plus a pending
// payment over the full amount, backdated so the reconciler picks it up.
func seedPendingOrder(t *testing.T, ledger service.PaymentLedger, lifecycle service.OrderLifecycle,
	stockRepo repo.StockRepo, customerRepo repo.CustomerRepo, methodRepo repo.MethodRepo,
	actor uuid.UUID) (*domain.Order, *domain.Payment) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	product := &domain.Product{
		ID: uuid.New(), Name: "Widget", SKU: "SKU-" + uuid.NewString()[:8],
		Price: decimal.NewFromInt(1000), AvailableQuantity: 10,
		CreatedAt: now, UpdatedAt: now,
	}
	customer := &domain.Customer{
		ID: uuid.New(), Name: "Buyer", Email: uuid.NewString()[:8] + "@example.com", CreatedAt: now,
	}
	shipping := &domain.ShippingMethod{ID: uuid.New(), Name: "standard", Cost: decimal.NewFromInt(500)}
	payMethod := &domain.PaymentMethodRef{ID: uuid.New(), Name: "card", Enabled: true}
	require.NoError(t, database.WithTx(ctx, testDB, func(tx *sql.Tx) error {
		if err := stockRepo.CreateProduct(ctx, tx, product); err != nil {
			return err
		}
		if err := customerRepo.Create(ctx, tx, customer); err != nil {
			return err
		}
		if err := methodRepo.CreateShippingMethod(ctx, tx, shipping); err != nil {
			return err
		}
		return methodRepo.CreatePaymentMethod(ctx, tx, payMethod)
	}))

	order, err := lifecycle.CreateOrder(ctx, actor, service.OrderDraft{
		CustomerID:       customer.ID,
		ShippingMethodID: shipping.ID,
		PaymentMethodID:  payMethod.ID,
		ShippingCost:     shipping.Cost,
		Lines:            []service.DraftLine{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	payment, err := ledger.Record(ctx, actor, order.ID, order.TotalPayable, domain.MethodCard, false)
	require.NoError(t, err)

	_, err = testDB.Exec(`UPDATE payments SET created_at = created_at - interval '1 hour' WHERE id = $1`, payment.ID)
	require.NoError(t, err)
	return order, payment
}

func TestProcessResolvesStuckPayments(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	orderRepo := repo.NewOrderRepo(testDB)
	paymentRepo := repo.NewPaymentRepo(testDB)
	stockRepo := repo.NewStockRepo(testDB)
	customerRepo := repo.NewCustomerRepo(testDB)
	methodRepo := repo.NewMethodRepo(testDB)
	stock := service.NewStockLedger(stockRepo)
	lifecycle := service.NewOrderLifecycle(testDB, orderRepo, paymentRepo, stockRepo, stock, true)
	ledger := service.NewPaymentLedger(testDB, orderRepo, paymentRepo, "XOF")
	provider := gateway.NewMemoryProvider()

	// The provider charged this one but the confirmation never arrived.
	chargedOrder, chargedPayment := seedPendingOrder(t, ledger, lifecycle, stockRepo, customerRepo, methodRepo, actor)
	_, err := provider.Charge(ctx, chargedPayment.Amount, chargedPayment.ID)
	require.NoError(t, err)

	// The provider never saw this one at all.
	declinedOrder, declinedPayment := seedPendingOrder(t, ledger, lifecycle, stockRepo, customerRepo, methodRepo, actor)

	reconciler := worker.NewReconciler(paymentRepo, ledger, provider, time.Minute, 30*time.Minute, actor)
	require.NoError(t, reconciler.Process(ctx))

	reloaded, err := paymentRepo.FindByID(ctx, chargedPayment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSuccess, reloaded.Status)
	assert.True(t, strings.HasPrefix(reloaded.TransactionRef, "ch_"), "ref = %s", reloaded.TransactionRef)

	order, err := orderRepo.FindByID(ctx, chargedOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementPaid, order.Settlement)
	assert.True(t, order.TotalDue.IsZero())

	reloaded, err = paymentRepo.FindByID(ctx, declinedPayment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, reloaded.Status)

	order, err = orderRepo.FindByID(ctx, declinedOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementUnpaid, order.Settlement)

	// A second sweep finds nothing left to do.
	require.NoError(t, reconciler.Process(ctx))
}
