package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/threadloom/storefront-backend/api/routes"
	"github.com/threadloom/storefront-backend/internal/auth"
	"github.com/threadloom/storefront-backend/internal/bootstrap"
	"github.com/threadloom/storefront-backend/internal/cart"
	"github.com/threadloom/storefront-backend/internal/checkout"
	"github.com/threadloom/storefront-backend/internal/maintenance"
	"github.com/threadloom/storefront-backend/internal/orders"
	"github.com/threadloom/storefront-backend/internal/payments"
	"github.com/threadloom/storefront-backend/internal/payments/razorpay"
	product "github.com/threadloom/storefront-backend/internal/products"
	"github.com/threadloom/storefront-backend/internal/reconciliation"
	"github.com/threadloom/storefront-backend/internal/settlement"
	"github.com/threadloom/storefront-backend/internal/users"
	"github.com/threadloom/storefront-backend/pkg/config"
	"github.com/threadloom/storefront-backend/pkg/enums"
	"github.com/threadloom/storefront-backend/pkg/logger"
	"github.com/threadloom/storefront-backend/pkg/metrics"
	"github.com/threadloom/storefront-backend/pkg/outbox"
)

const (
	serviceName     = "api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Start(ctx, bootstrap.Options{Name: serviceName, Redis: true, RuntimeMetrics: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
	if err := run(ctx, svc); err != nil {
		svc.Logger.Error(ctx, "api server stopped unexpectedly", err)
		_ = svc.Close()
		os.Exit(1)
	}
	if err := svc.Close(); err != nil {
		svc.Logger.Error(ctx, "error releasing resources", err)
	}
}

func run(ctx context.Context, svc *bootstrap.Service) error {
	cfg, logg := svc.Config, svc.Logger
	handler, err := newHandler(svc)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = svc.Context(ctx, map[string]any{
		"addr":    addr,
		"gateway": cfg.Gateway.Mode,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{Addr: addr, Handler: handler}
	if err := bootstrap.Serve(ctx, logg, server, shutdownTimeout); err != nil {
		return err
	}
	logg.Info(ctx, "api server stopped")
	return nil
}

// newHandler wires repositories and services into the storefront router.
func newHandler(svc *bootstrap.Service) (http.Handler, error) {
	cfg, logg, dbClient, redisClient, registry := svc.Config, svc.Logger, svc.DB, svc.Redis, svc.Registry
	httpMetrics := metrics.NewHTTPMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	gateway, err := buildGateway(cfg.Gateway, checkoutMetrics, logg)
	if err != nil {
		return nil, fmt.Errorf("create payment gateway: %w", err)
	}

	currency, err := enums.ParseCurrency(cfg.Gateway.Currency)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway currency: %w", err)
	}

	maintenanceStore, err := maintenance.NewRedisStore(redisClient)
	if err != nil {
		return nil, fmt.Errorf("create maintenance store: %w", err)
	}
	maintenanceService, err := maintenance.NewService(maintenanceStore, cfg.Maintenance.CacheTTL, logg)
	if err != nil {
		return nil, fmt.Errorf("create maintenance service: %w", err)
	}

	productRepo := product.NewRepository(dbClient.DB())
	productService, err := product.NewService(productRepo)
	if err != nil {
		return nil, fmt.Errorf("create product service: %w", err)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cartRepo, dbClient, productRepo)
	if err != nil {
		return nil, fmt.Errorf("create cart service: %w", err)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		Carts:          cartService,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return nil, fmt.Errorf("create auth service: %w", err)
	}

	sessionRepo := checkout.NewRepository(dbClient.DB())
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Sessions:    sessionRepo,
		Carts:       cartService,
		Products:    productRepo,
		Accounts:    authService,
		Gateway:     gateway,
		Maintenance: maintenanceService,
		SessionTTL:  cfg.Checkout.SessionTTL,
		Currency:    currency,
		Logger:      logg,
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout service: %w", err)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	orderRepo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orderRepo, dbClient, outboxService, productRepo, logg)
	if err != nil {
		return nil, fmt.Errorf("create order service: %w", err)
	}

	reconciliationService, err := reconciliation.NewService(reconciliation.NewRepository(dbClient.DB()), dbClient, outboxService, logg)
	if err != nil {
		return nil, fmt.Errorf("create reconciliation service: %w", err)
	}

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		DB:             dbClient,
		Orders:         orderRepo,
		Sessions:       sessionRepo,
		Carts:          cartRepo,
		Inventory:      productRepo,
		Outbox:         outboxService,
		Reconciliation: reconciliationService,
		Gateway:        gateway,
		Maintenance:    maintenanceService,
		Numbers:        settlement.NewCounterNumbers(redisClient, logg),
		Metrics:        checkoutMetrics,
		Logger:         logg,
	})
	if err != nil {
		return nil, fmt.Errorf("create settlement service: %w", err)
	}

	return routes.NewRouter(routes.Params{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Idempotency:    redisClient,
		RateLimiter:    redisClient,
		Gatherer:       registry,
		HTTPMetrics:    httpMetrics,
		Auth:           authService,
		Products:       productService,
		Cart:           cartService,
		Checkout:       checkoutService,
		Settlement:     settlementService,
		Orders:         orderService,
		Reconciliation: reconciliationService,
		Maintenance:    maintenanceService,
		DeadLetters:    outbox.NewDLQRepository(dbClient.DB()),
	}), nil
}

func buildGateway(cfg config.GatewayConfig, checkoutMetrics *metrics.CheckoutMetrics, logg *logger.Logger) (payments.Gateway, error) {
	if cfg.IsFake() {
		logg.Warn(context.Background(), "using fake payment gateway")
		return payments.NewFake(cfg.KeySecret), nil
	}
	client, err := razorpay.New(razorpay.Options{
		Config:  cfg,
		Metrics: checkoutMetrics,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
