package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url"`
	IsActive bool            `json:"is_active"`
}

type Variation struct {
	ID         int64             `json:"id"`
	ProductID  int64             `json:"product_id"`
	Price      *decimal.Decimal  `json:"price,omitempty"`
	Stock      int               `json:"stock"`
	Attributes map[string]string `json:"attributes"`
	Signature  string            `json:"signature"`
}

// UnitPrice is the variation price when set, otherwise the product price.
func (v *Variation) UnitPrice(p *Product) decimal.Decimal {
	if v != nil && v.Price != nil {
		return *v.Price
	}
	return p.Price
}

// AttributeSignature builds the canonical lookup key for a set of selected
// attributes: lower-cased, trimmed name=value pairs sorted by name and joined
// with ";". Pairs with an empty name are ignored.
func AttributeSignature(attrs map[string]string) string {
	pairs := make([]string, 0, len(attrs))
	for name, value := range attrs {
		n := strings.ToLower(strings.TrimSpace(name))
		if n == "" {
			continue
		}
		pairs = append(pairs, n+"="+strings.ToLower(strings.TrimSpace(value)))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ";")
}
