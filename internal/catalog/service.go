package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/pkg/lookup"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListVariations(ctx context.Context, productID int64) ([]domain.Variation, error)
	FindVariationBySignature(ctx context.Context, productID int64, signature string) (*domain.Variation, error)
}

// ProductDetail is a product with its variations and the attribute values a
// shopper can still pick.
type ProductDetail struct {
	Product    *domain.Product
	Variations []domain.Variation
	// Options maps attribute name to the sorted values of in-stock variations.
	Options map[string][]string
}

// Variant is a resolved variation with its effective unit price.
type Variant struct {
	Variation *domain.Variation
	UnitPrice decimal.Decimal
}

type Service struct {
	repo    Repository
	lookups lookup.Group
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) product(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, domain.NotFoundf("product %d", id)
	}
	return p, nil
}

func (s *Service) Product(ctx context.Context, id int64) (*ProductDetail, error) {
	return lookup.Do(ctx, &s.lookups, fmt.Sprintf("product:%d", id), func(ctx context.Context) (*ProductDetail, error) {
		p, err := s.product(ctx, id)
		if err != nil {
			return nil, err
		}
		variations, err := s.repo.ListVariations(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("list variations: %w", err)
		}
		return &ProductDetail{Product: p, Variations: variations, Options: options(variations)}, nil
	})
}

func options(variations []domain.Variation) map[string][]string {
	seen := make(map[string]map[string]bool)
	for _, v := range variations {
		if v.Stock <= 0 {
			continue
		}
		for name, value := range v.Attributes {
			if seen[name] == nil {
				seen[name] = make(map[string]bool)
			}
			seen[name][value] = true
		}
	}

	out := make(map[string][]string, len(seen))
	for name, values := range seen {
		list := make([]string, 0, len(values))
		for v := range values {
			list = append(list, v)
		}
		sort.Strings(list)
		out[name] = list
	}
	return out
}

// Variant finds the variation matching every selected attribute. Names and
// values are matched case-insensitively.
func (s *Service) Variant(ctx context.Context, productID int64, attrs map[string]string) (*Variant, error) {
	signature := domain.AttributeSignature(attrs)
	if signature == "" {
		return nil, domain.NewValidationError("attributes", "at least one attribute is required")
	}

	p, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	v, err := s.repo.FindVariationBySignature(ctx, productID, signature)
	if err != nil {
		return nil, err
	}
	return &Variant{Variation: v, UnitPrice: v.UnitPrice(p)}, nil
}
