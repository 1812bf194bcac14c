package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	Load(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, c *domain.Cart) error
	Clear(ctx context.Context, sessionID string) error
	Add(ctx context.Context, c *domain.Cart, req cart.AddRequest) (domain.CartLine, error)
	Remove(ctx context.Context, c *domain.Cart, key string) error
	UpdateQuantity(ctx context.Context, c *domain.Cart, key string, quantity int) error
	Totals(ctx context.Context, c *domain.Cart) (domain.CartTotals, bool, error)
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{carts: carts, timeout: timeout}
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

// loadCart returns the session cart with fresh totals, persisting it when
// lines for vanished products were dropped.
func loadCart(ctx context.Context, carts CartService) (*domain.Cart, domain.CartTotals, error) {
	c, err := carts.Load(ctx, sessionFromContext(ctx))
	if err != nil {
		return nil, domain.CartTotals{}, err
	}
	totals, changed, err := carts.Totals(ctx, c)
	if err != nil {
		return nil, domain.CartTotals{}, err
	}
	if changed {
		if err := carts.Save(ctx, c); err != nil {
			return nil, domain.CartTotals{}, err
		}
	}
	return c, totals, nil
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, totals, err := loadCart(ctx, h.carts)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartView(c, totals))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req cart.AddRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.mutate(ctx, w, r, http.StatusCreated, func(c *domain.Cart) error {
		_, err := h.carts.Add(ctx, c, req)
		return err
	})
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		handleError(w, r, domain.NewValidationError("quantity", "is required"))
		return
	}
	key := chi.URLParam(r, "key")
	h.mutate(ctx, w, r, http.StatusOK, func(c *domain.Cart) error {
		return h.carts.UpdateQuantity(ctx, c, key, *req.Quantity)
	})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key := chi.URLParam(r, "key")
	h.mutate(ctx, w, r, http.StatusOK, func(c *domain.Cart) error {
		return h.carts.Remove(ctx, c, key)
	})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := sessionFromContext(ctx)
	if err := h.carts.Clear(ctx, sessionID); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartView(domain.NewCart(sessionID), domain.CartTotals{}))
}

func (h *CartHandler) mutate(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, fn func(c *domain.Cart) error) {
	c, err := h.carts.Load(ctx, sessionFromContext(ctx))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := fn(c); err != nil {
		handleError(w, r, err)
		return
	}
	totals, _, err := h.carts.Totals(ctx, c)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := h.carts.Save(ctx, c); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, status, newCartView(c, totals))
}
