package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/promo"
)

type PromoService interface {
	Validate(ctx context.Context, req promo.Request) (promo.Result, *domain.PromoCode, error)
	Apply(ctx context.Context, c *domain.Cart, req promo.Request) (promo.Result, error)
	Remove(c *domain.Cart)
}

type PromoHandler struct {
	carts   CartService
	promos  PromoService
	timeout time.Duration
}

func NewPromoHandler(carts CartService, promos PromoService, timeout time.Duration) *PromoHandler {
	return &PromoHandler{carts: carts, promos: promos, timeout: timeout}
}

type PromoRequestDTO struct {
	Code      string `json:"code"`
	CountryID *int64 `json:"country_id,omitempty"`
}

func newPromoResultView(res promo.Result) promoResultView {
	return promoResultView{
		Valid:    res.Valid,
		Discount: money(res.Discount),
		NewTotal: money(res.NewTotal),
		Message:  res.Message,
		Reason:   res.Reason,
	}
}

func (h *PromoHandler) request(r *http.Request, c *domain.Cart, totals domain.CartTotals, dto PromoRequestDTO) promo.Request {
	return promo.Request{
		Code:      dto.Code,
		UserID:    identityFromContext(r.Context()).UserID,
		Subtotal:  totals.Subtotal,
		Lines:     c.SortedLines(),
		CountryID: dto.CountryID,
	}
}

// Validate previews a code against the session cart without applying it.
func (h *PromoHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var dto PromoRequestDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	c, totals, err := loadCart(ctx, h.carts)
	if err != nil {
		handleError(w, r, err)
		return
	}
	res, _, err := h.promos.Validate(ctx, h.request(r, c, totals, dto))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newPromoResultView(res))
}

func (h *PromoHandler) Apply(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var dto PromoRequestDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	c, totals, err := loadCart(ctx, h.carts)
	if err != nil {
		handleError(w, r, err)
		return
	}
	res, err := h.promos.Apply(ctx, c, h.request(r, c, totals, dto))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !res.Valid {
		respondJSON(w, http.StatusUnprocessableEntity, newPromoResultView(res))
		return
	}
	if err := h.carts.Save(ctx, c); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newPromoResultView(res))
}

func (h *PromoHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, totals, err := loadCart(ctx, h.carts)
	if err != nil {
		handleError(w, r, err)
		return
	}
	h.promos.Remove(c)
	if err := h.carts.Save(ctx, c); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartView(c, totals))
}
