package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Catalog is the read side of products and variations the cart needs.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetVariation(ctx context.Context, productID, variationID int64) (*domain.Variation, error)
	FindVariationBySignature(ctx context.Context, productID int64, signature string) (*domain.Variation, error)
}

type AddRequest struct {
	ProductID   int64             `json:"product_id"`
	VariationID *int64            `json:"variation_id,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Quantity    int               `json:"quantity"`
}

// Service operates on a cart loaded at the start of a request. Mutating
// methods change the cart in place; callers persist it with Save.
type Service struct {
	store   SessionStore
	catalog Catalog
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store SessionStore, catalog Catalog, log *zap.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		log:     log,
		now:     time.Now,
	}
}

// Load returns the session cart, or an empty one when the session has none.
func (s *Service) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	c, err := s.store.Load(ctx, sessionID)
	if errors.Is(err, ErrCartNotFound) {
		return domain.NewCart(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return c, nil
}

func (s *Service) Save(ctx context.Context, c *domain.Cart) error {
	c.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, c); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *Service) Add(ctx context.Context, c *domain.Cart, req AddRequest) (domain.CartLine, error) {
	if req.Quantity < 1 {
		return domain.CartLine{}, domain.NewValidationError("quantity", "must be at least 1")
	}
	if req.ProductID <= 0 {
		return domain.CartLine{}, domain.NewValidationError("product_id", "is required")
	}

	product, err := s.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.CartLine{}, err
	}
	if !product.IsActive {
		return domain.CartLine{}, domain.NotFoundf("product %d", req.ProductID)
	}

	var variation *domain.Variation
	switch {
	case req.VariationID != nil:
		variation, err = s.catalog.GetVariation(ctx, product.ID, *req.VariationID)
	case len(req.Attributes) > 0:
		variation, err = s.catalog.FindVariationBySignature(ctx, product.ID, domain.AttributeSignature(req.Attributes))
	}
	if err != nil {
		return domain.CartLine{}, err
	}

	var variationID *int64
	if variation != nil {
		id := variation.ID
		variationID = &id
	}
	key := domain.LineKey(product.ID, variationID)

	line, exists := c.Lines[key]
	quantity := line.Quantity + req.Quantity
	if variation != nil && quantity > variation.Stock {
		return domain.CartLine{}, insufficientStock(product.Name, variation.Stock)
	}

	if exists {
		line.Quantity = quantity
	} else {
		line = domain.CartLine{
			Key:         key,
			ProductID:   product.ID,
			VariationID: variationID,
			Name:        product.Name,
			Image:       product.ImageURL,
			Quantity:    quantity,
			UnitPrice:   variation.UnitPrice(product),
		}
		if variation != nil {
			line.Attributes = variation.Attributes
		}
	}
	c.Lines[key] = line
	return line, nil
}

func (s *Service) Remove(_ context.Context, c *domain.Cart, key string) error {
	if _, ok := c.Lines[key]; !ok {
		return domain.ErrLineNotFound
	}
	delete(c.Lines, key)
	return nil
}

// UpdateQuantity sets the line quantity; zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, c *domain.Cart, key string, quantity int) error {
	line, ok := c.Lines[key]
	if !ok {
		return domain.ErrLineNotFound
	}
	if quantity < 0 {
		return domain.NewValidationError("quantity", "must not be negative")
	}
	if quantity == 0 {
		delete(c.Lines, key)
		return nil
	}

	if line.VariationID != nil {
		variation, err := s.catalog.GetVariation(ctx, line.ProductID, *line.VariationID)
		if err != nil {
			return err
		}
		if quantity > variation.Stock {
			return insufficientStock(line.Name, variation.Stock)
		}
	}
	line.Quantity = quantity
	c.Lines[key] = line
	return nil
}

// Totals sums the cart. Lines whose product no longer exists are dropped
// from the cart; changed reports whether that happened.
func (s *Service) Totals(ctx context.Context, c *domain.Cart) (totals domain.CartTotals, changed bool, err error) {
	totals.Subtotal = decimal.Zero
	for key, line := range c.Lines {
		if _, err := s.catalog.GetProduct(ctx, line.ProductID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.FromContext(ctx, s.log).Info("evicting cart line for missing product",
					zap.String("session_id", c.SessionID),
					zap.String("line", key))
				delete(c.Lines, key)
				changed = true
				continue
			}
			return domain.CartTotals{}, changed, err
		}
		totals.Subtotal = totals.Subtotal.Add(line.LineTotal())
		totals.ItemCount += line.Quantity
	}
	return totals, changed, nil
}

func insufficientStock(name string, available int) error {
	return domain.NewRuleError(domain.ErrInsufficientStock.Code,
		fmt.Sprintf("only %d of %s left in stock", available, name))
}
