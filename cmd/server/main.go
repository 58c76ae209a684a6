package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/DevMad123/enma-commerce-core/internal/config"
	"github.com/DevMad123/enma-commerce-core/internal/database"
	"github.com/DevMad123/enma-commerce-core/internal/gateway"
	"github.com/DevMad123/enma-commerce-core/internal/metrics"
	"github.com/DevMad123/enma-commerce-core/internal/repo"
	"github.com/DevMad123/enma-commerce-core/internal/server"
	"github.com/DevMad123/enma-commerce-core/internal/service"
	"github.com/DevMad123/enma-commerce-core/internal/worker"
)

// systemActor stamps audit fields on mutations made by background jobs
// rather than an authenticated user.
var systemActor = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := config.Load()
	db := database.NewPostgres(cfg)
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.EnsureSchema(ctx, db); err != nil {
		slog.Error("schema setup failed", "err", err)
		os.Exit(1)
	}

	orderRepo := repo.NewOrderRepo(db)
	paymentRepo := repo.NewPaymentRepo(db)
	stockRepo := repo.NewStockRepo(db)
	customerRepo := repo.NewCustomerRepo(db)
	methodRepo := repo.NewMethodRepo(db)

	stockLedger := service.NewStockLedger(stockRepo)
	orderLifecycle := service.NewOrderLifecycle(db, orderRepo, paymentRepo, stockRepo, stockLedger, cfg.RequirePaidToComplete)
	paymentLedger := service.NewPaymentLedger(db, orderRepo, paymentRepo, cfg.Currency)
	checkout := service.NewCheckoutOrchestrator(db, customerRepo, methodRepo, orderLifecycle)

	if cfg.ReconcileEnabled {
		provider := gateway.NewMemoryProvider()
		reconciler := worker.NewReconciler(paymentRepo, paymentLedger, provider,
			cfg.ReconcileInterval, cfg.ReconcileAfter, systemActor)
		go reconciler.Run(ctx)
	}

	srv := server.New(
		database.NewService(db, cfg.DBDatabase),
		checkout, orderLifecycle, paymentLedger,
		metrics.NewServerMetrics("api"),
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	slog.Info("stopped")
}
