package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kudimart/checkout-engine/internal/application/services"
	"github.com/kudimart/checkout-engine/internal/config"
	"github.com/kudimart/checkout-engine/internal/gateway"
	"github.com/kudimart/checkout-engine/internal/infrastructure/persistence/postgres"
	"github.com/kudimart/checkout-engine/internal/interfaces/rest/handlers"
	"github.com/kudimart/checkout-engine/internal/interfaces/rest/middleware"
	"github.com/kudimart/checkout-engine/internal/notify"
	"github.com/kudimart/checkout-engine/internal/pricing"
	"github.com/kudimart/checkout-engine/internal/worker"
)

const defaultTaxRate = "0.075"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting checkout engine",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	if err := postgres.Migrate(&cfg.Database, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	checkoutRepo := postgres.NewCheckoutRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	invoiceRepo := postgres.NewInvoiceRepository(db)
	walletRepo := postgres.NewWalletRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	coordinator := postgres.NewTransactionCoordinator(db)

	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.Kafka.Configured() {
		notifier = notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	}
	defer notifier.Close()

	registry := gateway.NewRegistry()
	if cfg.Gateways.Paystack.Configured() {
		registry.Register(gateway.NewRetryGateway(gateway.NewPaystackGateway(cfg.Gateways.Paystack), cfg.Retry))
	}
	if cfg.Gateways.Opay.Configured() {
		registry.Register(gateway.NewRetryGateway(gateway.NewOpayGateway(cfg.Gateways.Opay), cfg.Retry))
	}
	if cfg.Gateways.BankTransfer.Configured() {
		registry.Register(gateway.NewBankTransferGateway(cfg.Gateways.BankTransfer))
	}

	walletService := services.NewWalletService(
		walletRepo, coordinator, registry, notifier,
		cfg.Checkout.Currency, cfg.Checkout.CallbackURL, logger,
	)
	registry.Register(gateway.NewWalletGateway(walletService))

	reconcileService := services.NewReconcileService(
		orderRepo, coordinator, registry, walletService, notifier,
		cfg.Checkout.Currency, logger,
	)

	taxRate := cfg.Checkout.TaxRate
	if taxRate == "" {
		taxRate = defaultTaxRate
	}
	rate, err := decimal.NewFromString(taxRate)
	if err != nil {
		logger.Error("invalid tax rate", "tax_rate", taxRate, "error", err)
		os.Exit(1)
	}
	calc := pricing.NewCalculator(pricing.DefaultRates(), rate)

	checkoutService := services.NewCheckoutService(
		checkoutRepo, orderRepo, invoiceRepo, catalogRepo,
		coordinator, registry, calc, reconcileService, notifier,
		cfg.Checkout.Currency, cfg.Checkout.CallbackURL, logger,
	)

	h := handlers.NewHandlers(checkoutService, reconcileService, walletService, registry, logger)

	mux := http.NewServeMux()
	h.Routes(mux, middleware.RequireAdmin(cfg.Admin.Token, logger))

	handler := http.Handler(mux)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Identity()(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	staleAge := cfg.Worker.StaleAge
	if staleAge == 0 {
		staleAge = 15 * time.Minute
	}
	sweeper := worker.NewSweeper(reconcileService, cfg.Worker.Interval, staleAge, cfg.Worker.BatchSize, logger)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	go sweeper.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
