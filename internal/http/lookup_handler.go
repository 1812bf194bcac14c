package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/tax"
	"github.com/shopspring/decimal"
)

type ShippingService interface {
	Cost(ctx context.Context, districtID int64) (decimal.Decimal, error)
	Countries(ctx context.Context) ([]domain.Country, error)
	Districts(ctx context.Context, countryID int64) ([]domain.District, error)
	Thanas(ctx context.Context, districtID int64) ([]domain.Thana, error)
}

type TaxService interface {
	Quote(ctx context.Context, countryID int64, subtotal, shipping decimal.Decimal) (tax.Quote, error)
}

type LookupHandler struct {
	shipping ShippingService
	tax      TaxService
	timeout  time.Duration
}

func NewLookupHandler(shipping ShippingService, tax TaxService, timeout time.Duration) *LookupHandler {
	return &LookupHandler{shipping: shipping, tax: tax, timeout: timeout}
}

type districtView struct {
	ID           int64  `json:"id"`
	CountryID    int64  `json:"country_id"`
	Name         string `json:"name"`
	ShippingCost string `json:"shipping_cost"`
}

func queryInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || v <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return v, true
}

func queryAmount(w http.ResponseWriter, r *http.Request, name string) (decimal.Decimal, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a non-negative amount")
		return decimal.Zero, false
	}
	return d, true
}

func (h *LookupHandler) ShippingCost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	districtID, ok := queryInt64(w, r, "district_id")
	if !ok {
		return
	}
	cost, err := h.shipping.Cost(ctx, districtID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"district_id":   districtID,
		"shipping_cost": money(cost),
	})
}

func (h *LookupHandler) TaxQuote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	countryID, ok := queryInt64(w, r, "country_id")
	if !ok {
		return
	}
	subtotal, ok := queryAmount(w, r, "subtotal")
	if !ok {
		return
	}
	shipping, ok := queryAmount(w, r, "shipping")
	if !ok {
		return
	}
	q, err := h.tax.Quote(ctx, countryID, subtotal, shipping)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"tax_rate":    money(q.Rate),
		"tax_amount":  money(q.TaxAmount),
		"grand_total": money(q.GrandTotal),
	})
}

func (h *LookupHandler) Countries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	countries, err := h.shipping.Countries(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, countries)
}

func (h *LookupHandler) Districts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	countryID, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	districts, err := h.shipping.Districts(ctx, countryID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	out := make([]districtView, 0, len(districts))
	for _, d := range districts {
		out = append(out, districtView{ID: d.ID, CountryID: d.CountryID, Name: d.Name, ShippingCost: money(d.ShippingCost)})
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *LookupHandler) Thanas(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	districtID, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	thanas, err := h.shipping.Thanas(ctx, districtID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, thanas)
}
