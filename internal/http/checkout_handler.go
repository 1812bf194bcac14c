package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/order"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, req order.PlaceRequest) (*domain.Order, error)
	Transition(ctx context.Context, orderNumber string, next domain.OrderStatus, note string) (*domain.Order, error)
	Cancel(ctx context.Context, orderNumber string, who order.Requester, note string) (*domain.Order, error)
	Get(ctx context.Context, orderNumber string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	History(ctx context.Context, orderNumber string) ([]domain.TrackingRecord, error)
}

type CheckoutHandler struct {
	carts   CartService
	orders  OrderService
	timeout time.Duration
}

func NewCheckoutHandler(carts CartService, orders OrderService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{carts: carts, orders: orders, timeout: timeout}
}

// Checkout turns the session cart into an order and returns the
// confirmation.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req domain.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.carts.Load(ctx, sessionFromContext(ctx))
	if err != nil {
		handleError(w, r, err)
		return
	}

	placed, err := h.orders.PlaceOrder(ctx, order.PlaceRequest{
		Cart:     c,
		UserID:   identityFromContext(ctx).UserID,
		Checkout: req,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, newOrderView(placed))
}
