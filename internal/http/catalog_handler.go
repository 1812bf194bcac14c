package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/catalog"
)

type CatalogService interface {
	Product(ctx context.Context, id int64) (*catalog.ProductDetail, error)
	Variant(ctx context.Context, productID int64, attrs map[string]string) (*catalog.Variant, error)
}

type CatalogHandler struct {
	catalog CatalogService
	timeout time.Duration
}

func NewCatalogHandler(catalog CatalogService, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, timeout: timeout}
}

type variationView struct {
	ID         int64             `json:"id"`
	Price      string            `json:"price"`
	Stock      int               `json:"stock"`
	Attributes map[string]string `json:"attributes"`
}

type productView struct {
	ID         int64               `json:"id"`
	Name       string              `json:"name"`
	Price      string              `json:"price"`
	ImageURL   string              `json:"image_url"`
	InStock    bool                `json:"in_stock"`
	Options    map[string][]string `json:"options"`
	Variations []variationView     `json:"variations"`
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	d, err := h.catalog.Product(ctx, id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	v := productView{
		ID:         d.Product.ID,
		Name:       d.Product.Name,
		Price:      money(d.Product.Price),
		ImageURL:   d.Product.ImageURL,
		InStock:    len(d.Variations) == 0, // no variations, no stock tracking
		Options:    d.Options,
		Variations: make([]variationView, 0, len(d.Variations)),
	}
	for i := range d.Variations {
		variation := &d.Variations[i]
		if variation.Stock > 0 {
			v.InStock = true
		}
		v.Variations = append(v.Variations, variationView{
			ID:         variation.ID,
			Price:      money(variation.UnitPrice(d.Product)),
			Stock:      variation.Stock,
			Attributes: variation.Attributes,
		})
	}
	respondJSON(w, http.StatusOK, v)
}

// GetVariant resolves a variation from attribute query parameters, e.g.
// ?color=red&size=m.
func (h *CatalogHandler) GetVariant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	attrs := make(map[string]string)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			attrs[name] = values[0]
		}
	}

	res, err := h.catalog.Variant(ctx, id, attrs)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, variationView{
		ID:         res.Variation.ID,
		Price:      money(res.UnitPrice),
		Stock:      res.Variation.Stock,
		Attributes: res.Variation.Attributes,
	})
}
