package http

import (
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type cartLineView struct {
	Key         string            `json:"key"`
	ProductID   int64             `json:"product_id"`
	VariationID *int64            `json:"variation_id,omitempty"`
	Name        string            `json:"name"`
	Image       string            `json:"image,omitempty"`
	Quantity    int               `json:"quantity"`
	UnitPrice   string            `json:"unit_price"`
	LineTotal   string            `json:"line_total"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

type cartView struct {
	SessionID string         `json:"session_id"`
	Items     []cartLineView `json:"items"`
	ItemCount int            `json:"item_count"`
	Subtotal  string         `json:"subtotal"`
	PromoCode string         `json:"promo_code,omitempty"`
}

func newCartView(c *domain.Cart, totals domain.CartTotals) cartView {
	v := cartView{
		SessionID: c.SessionID,
		Items:     []cartLineView{},
		ItemCount: totals.ItemCount,
		Subtotal:  money(totals.Subtotal),
		PromoCode: c.PromoCode,
	}
	for _, l := range c.SortedLines() {
		v.Items = append(v.Items, cartLineView{
			Key:         l.Key,
			ProductID:   l.ProductID,
			VariationID: l.VariationID,
			Name:        l.Name,
			Image:       l.Image,
			Quantity:    l.Quantity,
			UnitPrice:   money(l.UnitPrice),
			LineTotal:   money(l.LineTotal()),
			Attributes:  l.Attributes,
		})
	}
	return v
}

type orderItemView struct {
	ProductID   int64             `json:"product_id"`
	VariationID *int64            `json:"variation_id,omitempty"`
	ProductName string            `json:"product_name"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Quantity    int               `json:"quantity"`
	Price       string            `json:"price"`
	LineTotal   string            `json:"line_total"`
}

type orderView struct {
	OrderNumber    string               `json:"order_number"`
	Status         domain.OrderStatus   `json:"status"`
	FirstName      string               `json:"first_name"`
	LastName       string               `json:"last_name"`
	PhoneNumber    string               `json:"phone_number"`
	FullAddress    string               `json:"full_address"`
	CountryID      int64                `json:"country_id"`
	DistrictID     int64                `json:"district_id"`
	ThanaID        *int64               `json:"thana_id,omitempty"`
	PostalCode     string               `json:"postal_code,omitempty"`
	OrderNote      string               `json:"order_note,omitempty"`
	PaymentMethod  domain.PaymentMethod `json:"payment_method"`
	Subtotal       string               `json:"subtotal"`
	PromoCode      string               `json:"promo_code,omitempty"`
	DiscountAmount string               `json:"discount_amount"`
	OrderTotal     string               `json:"order_total"`
	ShippingCost   string               `json:"shipping_cost"`
	TaxRate        string               `json:"tax_rate"`
	TaxAmount      string               `json:"tax_amount"`
	GrandTotal     string               `json:"grand_total"`
	Items          []orderItemView      `json:"items"`
	StatusTimes    map[string]time.Time `json:"status_times,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func newOrderView(o *domain.Order) orderView {
	v := orderView{
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		FirstName:      o.FirstName,
		LastName:       o.LastName,
		PhoneNumber:    o.PhoneNumber,
		FullAddress:    o.FullAddress,
		CountryID:      o.CountryID,
		DistrictID:     o.DistrictID,
		ThanaID:        o.ThanaID,
		PostalCode:     o.PostalCode,
		OrderNote:      o.OrderNote,
		PaymentMethod:  o.PaymentMethod,
		Subtotal:       money(o.Subtotal),
		PromoCode:      o.PromoCode,
		DiscountAmount: money(o.DiscountAmount),
		OrderTotal:     money(o.OrderTotal),
		ShippingCost:   money(o.ShippingCost),
		TaxRate:        money(o.TaxRate),
		TaxAmount:      money(o.TaxAmount),
		GrandTotal:     money(o.GrandTotal),
		Items:          make([]orderItemView, 0, len(o.Items)),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, orderItemView{
			ProductID:   it.ProductID,
			VariationID: it.VariationID,
			ProductName: it.ProductName,
			Attributes:  it.Attributes,
			Quantity:    it.Quantity,
			Price:       money(it.Price),
			LineTotal:   money(it.LineTotal),
		})
	}
	if len(o.StatusTimes) > 0 {
		v.StatusTimes = make(map[string]time.Time, len(o.StatusTimes))
		for st, at := range o.StatusTimes {
			v.StatusTimes[st.String()] = at
		}
	}
	return v
}

type promoResultView struct {
	Valid    bool   `json:"valid"`
	Discount string `json:"discount"`
	NewTotal string `json:"new_total"`
	Message  string `json:"message"`
	Reason   string `json:"reason,omitempty"`
}
