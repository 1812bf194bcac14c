package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodySize    int64
	SessionTTL     time.Duration
	Auth           *Authenticator
	Log            *zap.Logger
	// Ready reports whether backing stores are reachable; nil means always.
	Ready func(ctx context.Context) error
}

type Handlers struct {
	Catalog  *CatalogHandler
	Cart     *CartHandler
	Promo    *PromoHandler
	Lookup   *LookupHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
}

func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(cfg.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MaxBodySize(cfg.MaxBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.SessionTTL))
		r.Use(cfg.Auth.Middleware)

		r.Route("/products", func(r chi.Router) {
			r.Get("/{id}", h.Catalog.GetProduct)
			r.Get("/{id}/variant", h.Catalog.GetVariant)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{key}", h.Cart.UpdateQuantity)
			r.Delete("/items/{key}", h.Cart.RemoveItem)
		})

		r.Route("/promo", func(r chi.Router) {
			r.Post("/validate", h.Promo.Validate)
			r.Post("/apply", h.Promo.Apply)
			r.Delete("/", h.Promo.Remove)
		})

		r.Get("/shipping/cost", h.Lookup.ShippingCost)
		r.Get("/tax/quote", h.Lookup.TaxQuote)
		r.Route("/regions", func(r chi.Router) {
			r.Get("/countries", h.Lookup.Countries)
			r.Get("/countries/{id}/districts", h.Lookup.Districts)
			r.Get("/districts/{id}/thanas", h.Lookup.Thanas)
		})

		r.Post("/checkout", h.Checkout.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.With(RequireUser).Get("/", h.Orders.ListOrders)
			r.Get("/{number}", h.Orders.GetOrder)
			r.Get("/{number}/tracking", h.Orders.Tracking)
			r.Post("/{number}/cancel", h.Orders.Cancel)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin))
			r.Patch("/orders/{number}/status", h.Orders.UpdateStatus)
		})
	})

	return otelhttp.NewHandler(r, "storefront-http")
}
