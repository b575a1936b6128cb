package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threadloom/storefront-backend/api/controllers"
	"github.com/threadloom/storefront-backend/api/middleware"
	"github.com/threadloom/storefront-backend/internal/auth"
	"github.com/threadloom/storefront-backend/internal/cart"
	checkoutsvc "github.com/threadloom/storefront-backend/internal/checkout"
	"github.com/threadloom/storefront-backend/internal/orders"
	product "github.com/threadloom/storefront-backend/internal/products"
	"github.com/threadloom/storefront-backend/internal/reconciliation"
	"github.com/threadloom/storefront-backend/internal/settlement"
	"github.com/threadloom/storefront-backend/pkg/config"
	"github.com/threadloom/storefront-backend/pkg/logger"
	"github.com/threadloom/storefront-backend/pkg/metrics"
	pkgredis "github.com/threadloom/storefront-backend/pkg/redis"
)

// Params bundles everything the router hands to controllers and middleware.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	RateLimiter middleware.RateLimiter
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Auth           auth.Service
	Products       product.Service
	Cart           cart.Service
	Checkout       checkoutsvc.Service
	Settlement     settlement.Service
	Orders         orders.Service
	Reconciliation reconciliation.Service
	Maintenance    controllers.MaintenanceToggle
	DeadLetters    controllers.DeadLetterLister
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.App.IsDev(), cfg.App.CORSOrigins...),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": p.DB,
			"redis":    p.Redis,
		}))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.Identify(cfg.JWT, logg),
			middleware.Maintenance(p.Maintenance, logg),
			middleware.Idempotency(p.Idempotency, logg),
		)

		r.Get(middleware.MaintenancePath, controllers.MaintenancePage(p.Maintenance, cfg.App.SupportEmail, logg))

		// Routes are registered flat so the idempotency rules see full patterns.
		r.With(middleware.AuthRateLimit(middleware.LoginPolicy(cfg.AuthRateLimit), p.RateLimiter, logg)).
			Post("/api/v1/auth/login", controllers.AuthLogin(p.Auth, logg))
		r.With(middleware.AuthRateLimit(middleware.RegisterPolicy(cfg.AuthRateLimit), p.RateLimiter, logg)).
			Post("/api/v1/auth/register", controllers.AuthRegister(p.Auth, logg))

		r.Get("/api/v1/products", controllers.ProductLookupBatch(p.Products, logg))
		r.Get("/api/v1/products/{id}", controllers.ProductLookup(p.Products, logg))

		r.Get("/cart/items", controllers.CartItems(p.Cart, logg))
		r.Post("/cart/add", controllers.CartAdd(p.Cart, logg))
		r.Put("/cart/{id}", controllers.CartUpdate(p.Cart, logg))
		r.Delete("/cart/{id}", controllers.CartRemove(p.Cart, logg))

		r.Post("/checkout/contact", controllers.CheckoutContact(p.Checkout, logg))
		r.Post("/checkout/shipping", controllers.CheckoutShipping(p.Checkout, logg))
		r.Post("/api/checkout/create-razorpay-order", controllers.CheckoutCreateGatewayOrder(p.Checkout, logg))
		r.Post("/checkout", controllers.CheckoutSettle(p.Settlement, logg))

		r.Get("/api/v1/orders/{orderNumber}", controllers.OrderConfirmation(p.Orders, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))

			r.Put("/admin/orders/{id}/status", controllers.AdminOrderStatus(p.Orders, logg))
			r.Put("/admin/orders/{id}", controllers.AdminOrderUpdate(p.Orders, logg))
			r.Get("/api/admin/v1/orders", controllers.AdminOrderList(p.Orders, logg))
			r.Get("/api/admin/v1/settings/maintenance", controllers.AdminMaintenanceGet(p.Maintenance, logg))
			r.Put("/api/admin/v1/settings/maintenance", controllers.AdminMaintenanceSet(p.Maintenance, logg))
			r.Get("/api/admin/v1/reconciliations", controllers.AdminReconciliationList(p.Reconciliation, logg))
			r.Post("/api/admin/v1/reconciliations/{id}/resolve", controllers.AdminReconciliationResolve(p.Reconciliation, logg))
			r.Get("/api/admin/v1/outbox/dead-letters", controllers.AdminDeadLetters(p.DeadLetters, logg))
		})
	})

	return r
}
