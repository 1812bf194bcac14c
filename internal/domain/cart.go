package domain

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type CartLine struct {
	Key         string            `json:"key"`
	ProductID   int64             `json:"product_id"`
	VariationID *int64            `json:"variation_id,omitempty"`
	Name        string            `json:"name"`
	Image       string            `json:"image"`
	Quantity    int               `json:"quantity"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the session-held cart. It never reaches the relational store.
type Cart struct {
	SessionID string              `json:"session_id"`
	Lines     map[string]CartLine `json:"lines"`
	PromoCode string              `json:"promo_code,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func NewCart(sessionID string) *Cart {
	return &Cart{SessionID: sessionID, Lines: make(map[string]CartLine)}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// SortedLines returns the lines ordered by key.
func (c *Cart) SortedLines() []CartLine {
	lines := make([]CartLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Key < lines[j].Key })
	return lines
}

type CartTotals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"item_count"`
}

// LineKey is "{product_id}-{variation_id}" for variation lines and
// "{product_id}" otherwise.
func LineKey(productID int64, variationID *int64) string {
	key := strconv.FormatInt(productID, 10)
	if variationID != nil {
		key += "-" + strconv.FormatInt(*variationID, 10)
	}
	return key
}
