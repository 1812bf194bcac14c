package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPacked         OrderStatus = "packed"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusRefunded       OrderStatus = "refunded"
)

// fulfilment is the forward path; cancelled and refunded are side exits.
var fulfilment = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusConfirmed,
	OrderStatusPacked,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	switch st {
	case OrderStatusCancelled, OrderStatusRefunded:
		return st, true
	}
	for _, f := range fulfilment {
		if f == st {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// CanTransitionTo accepts only the next fulfilment step, or cancelled /
// refunded from any non-terminal status.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled || next == OrderStatusRefunded {
		return true
	}
	for i := 0; i < len(fulfilment)-1; i++ {
		if fulfilment[i] == s {
			return fulfilment[i+1] == next
		}
	}
	return false
}

// CustomerCancellable reports whether the shopper may still cancel: any
// status short of delivered, cancelled or refunded.
func (s OrderStatus) CustomerCancellable() bool {
	return !s.IsTerminal()
}

func (s OrderStatus) String() string {
	return string(s)
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentCard           PaymentMethod = "card"
	PaymentMobileBanking  PaymentMethod = "mobile_banking"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCashOnDelivery, PaymentCard, PaymentMobileBanking:
		return true
	}
	return false
}

type OrderItem struct {
	ProductID   int64             `json:"product_id"`
	VariationID *int64            `json:"variation_id,omitempty"`
	ProductName string            `json:"product_name"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Quantity    int               `json:"quantity"`
	Price       decimal.Decimal   `json:"price"`
	LineTotal   decimal.Decimal   `json:"line_total"`
}

type Order struct {
	OrderNumber   string        `json:"order_number"`
	UserID        string        `json:"user_id,omitempty"`
	SessionID     string        `json:"-"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	PhoneNumber   string        `json:"phone_number"`
	FullAddress   string        `json:"full_address"`
	CountryID     int64         `json:"country_id"`
	DistrictID    int64         `json:"district_id"`
	ThanaID       *int64        `json:"thana_id,omitempty"`
	PostalCode    string        `json:"postal_code,omitempty"`
	BirthDate     *int          `json:"birth_date,omitempty"`
	BirthMonth    string        `json:"birth_month,omitempty"`
	OrderNote     string        `json:"order_note,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	PromoCode      string          `json:"promo_code,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	OrderTotal     decimal.Decimal `json:"order_total"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`

	Status    OrderStatus `json:"status"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	// StatusTimes holds the moment each status was first entered.
	StatusTimes map[OrderStatus]time.Time `json:"status_times,omitempty"`
}

type TrackingRecord struct {
	ID          int64       `json:"id"`
	OrderNumber string      `json:"order_number"`
	OldStatus   OrderStatus `json:"old_status,omitempty"`
	NewStatus   OrderStatus `json:"new_status"`
	Note        string      `json:"note"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Outbox event types.
const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

type OutboxEvent struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

type OrderPlacedPayload struct {
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	PromoCode   string          `json:"promo_code,omitempty"`
	Items       []OrderItem     `json:"items"`
	PlacedAt    time.Time       `json:"placed_at"`
}

type StatusChangedPayload struct {
	OrderNumber string      `json:"order_number"`
	OldStatus   OrderStatus `json:"old_status"`
	NewStatus   OrderStatus `json:"new_status"`
	Note        string      `json:"note,omitempty"`
	ChangedAt   time.Time   `json:"changed_at"`
}
