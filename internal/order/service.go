package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/promo"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrStatusConflict = domain.NewRuleError("status_conflict", "order status changed concurrently, reload and retry")
	ErrNotCancellable = domain.NewRuleError("not_cancellable", "order can no longer be cancelled")
)

type Store interface {
	CreateOrder(ctx context.Context, order *domain.Order, opts repository.PlaceOptions) error
	UpdateStatus(ctx context.Context, change repository.StatusChange) error
	GetOrder(ctx context.Context, orderNumber string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	ListTracking(ctx context.Context, orderNumber string) ([]domain.TrackingRecord, error)
}

type CartService interface {
	Totals(ctx context.Context, c *domain.Cart) (domain.CartTotals, bool, error)
	Clear(ctx context.Context, sessionID string) error
}

type PromoValidator interface {
	Validate(ctx context.Context, req promo.Request) (promo.Result, *domain.PromoCode, error)
}

type ShippingResolver interface {
	Validate(ctx context.Context, countryID, districtID int64, thanaID *int64) (*domain.District, error)
}

type TaxResolver interface {
	Resolve(ctx context.Context, countryID int64) (decimal.Decimal, error)
}

type PlaceRequest struct {
	Cart     *domain.Cart
	UserID   string
	Checkout domain.CheckoutRequest
}

// Requester identifies who asks for a customer-side operation.
type Requester struct {
	UserID    string
	SessionID string
}

func (r Requester) owns(o *domain.Order) bool {
	if o.UserID != "" {
		return o.UserID == r.UserID
	}
	return r.SessionID != "" && o.SessionID == r.SessionID
}

type Service struct {
	store     Store
	cart      CartService
	promo     PromoValidator
	shipping  ShippingResolver
	tax       TaxResolver
	log       *zap.Logger
	now       func() time.Time
	newNumber func() string
}

func NewService(store Store, cart CartService, promo PromoValidator, shipping ShippingResolver, tax TaxResolver, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		cart:      cart,
		promo:     promo,
		shipping:  shipping,
		tax:       tax,
		log:       log,
		now:       time.Now,
		newNumber: NewOrderNumber,
	}
}

// PlaceOrder prices the session cart, persists the order atomically and
// clears the cart.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceRequest) (*domain.Order, error) {
	log := logger.FromContext(ctx, s.log)
	co := req.Checkout
	co.Normalize()
	if err := co.Validate(); err != nil {
		return nil, err
	}
	if req.Cart == nil || req.Cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	district, err := s.shipping.Validate(ctx, co.CountryID, co.DistrictID, co.ThanaID)
	if err != nil {
		return nil, err
	}

	totals, _, err := s.cart.Totals(ctx, req.Cart)
	if err != nil {
		return nil, fmt.Errorf("cart totals: %w", err)
	}
	if req.Cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	lines := req.Cart.SortedLines()
	discount := decimal.Zero
	var opts repository.PlaceOptions
	if req.Cart.PromoCode != "" {
		countryID := co.CountryID
		res, p, err := s.promo.Validate(ctx, promo.Request{
			Code:      req.Cart.PromoCode,
			UserID:    req.UserID,
			Subtotal:  totals.Subtotal,
			Lines:     lines,
			CountryID: &countryID,
		})
		if err != nil {
			return nil, err
		}
		if !res.Valid {
			return nil, res.Err()
		}
		discount = res.Discount
		opts.PromoID = &p.ID
	}

	orderTotal := totals.Subtotal.Sub(discount)
	rate, err := s.tax.Resolve(ctx, co.CountryID)
	if err != nil {
		return nil, fmt.Errorf("resolve tax: %w", err)
	}
	taxAmount := domain.Percent(orderTotal.Add(district.ShippingCost), rate)

	now := s.now().UTC()
	order := &domain.Order{
		UserID:         req.UserID,
		SessionID:      req.Cart.SessionID,
		FirstName:      co.FirstName,
		LastName:       co.LastName,
		PhoneNumber:    co.PhoneNumber,
		FullAddress:    co.FullAddress,
		CountryID:      co.CountryID,
		DistrictID:     co.DistrictID,
		ThanaID:        co.ThanaID,
		PostalCode:     co.PostalCode,
		BirthDate:      co.BirthDate,
		BirthMonth:     co.BirthMonth,
		OrderNote:      co.OrderNote,
		PaymentMethod:  co.PaymentMethod,
		Subtotal:       totals.Subtotal,
		DiscountAmount: discount,
		OrderTotal:     orderTotal,
		ShippingCost:   district.ShippingCost,
		TaxRate:        rate,
		TaxAmount:      taxAmount,
		GrandTotal:     orderTotal.Add(district.ShippingCost).Add(taxAmount),
		Status:         domain.OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		StatusTimes:    map[domain.OrderStatus]time.Time{domain.OrderStatusPending: now},
	}
	if opts.PromoID != nil {
		order.PromoCode = req.Cart.PromoCode
	}
	for _, l := range lines {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:   l.ProductID,
			VariationID: l.VariationID,
			ProductName: l.Name,
			Attributes:  l.Attributes,
			Quantity:    l.Quantity,
			Price:       l.UnitPrice,
			LineTotal:   l.LineTotal(),
		})
	}

	for attempt := 1; ; attempt++ {
		order.OrderNumber = s.newNumber()
		err = s.store.CreateOrder(ctx, order, opts)
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			break
		}
		if attempt == maxNumberAttempts {
			return nil, fmt.Errorf("generate order number: %w", err)
		}
		log.Warn("order number collision, regenerating", zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, err
	}

	log.Info("order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("grand_total", order.GrandTotal.StringFixed(2)),
		zap.Int("items", len(order.Items)))

	if err := s.cart.Clear(ctx, req.Cart.SessionID); err != nil {
		log.Error("failed to clear cart after checkout",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
	}
	req.Cart.Lines = make(map[string]domain.CartLine)
	req.Cart.PromoCode = ""
	return order, nil
}

// Transition moves the order one step along the state machine.
func (s *Service) Transition(ctx context.Context, orderNumber string, next domain.OrderStatus, note string) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, domain.NewRuleError(domain.ErrIllegalTransition.Code,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, next))
	}
	return s.apply(ctx, order, next, note)
}

// Cancel is the customer-side cancellation, allowed until the order reaches
// a terminal status. Stock is returned to the variations.
func (s *Service) Cancel(ctx context.Context, orderNumber string, who Requester, note string) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !who.owns(order) {
		return nil, domain.NotFoundf("order %s", orderNumber)
	}
	if !order.Status.CustomerCancellable() {
		return nil, ErrNotCancellable
	}
	if note == "" {
		note = "Cancelled by customer"
	}
	return s.apply(ctx, order, domain.OrderStatusCancelled, note)
}

func (s *Service) apply(ctx context.Context, order *domain.Order, next domain.OrderStatus, note string) (*domain.Order, error) {
	err := s.store.UpdateStatus(ctx, repository.StatusChange{
		OrderNumber:  order.OrderNumber,
		From:         order.Status,
		To:           next,
		Note:         note,
		At:           s.now().UTC(),
		RestoreStock: next == domain.OrderStatusCancelled,
	})
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.log).Info("order status changed",
		zap.String("order_number", order.OrderNumber),
		zap.String("from", order.Status.String()),
		zap.String("to", next.String()))
	return s.store.GetOrder(ctx, order.OrderNumber)
}

func (s *Service) Get(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.store.GetOrder(ctx, orderNumber)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "is required")
	}
	return s.store.ListOrdersByUser(ctx, userID)
}

// History returns the tracking records of an existing order, oldest first.
func (s *Service) History(ctx context.Context, orderNumber string) ([]domain.TrackingRecord, error) {
	if _, err := s.store.GetOrder(ctx, orderNumber); err != nil {
		return nil, err
	}
	return s.store.ListTracking(ctx, orderNumber)
}
