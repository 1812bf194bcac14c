package cart

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type mockCatalog struct {
	products   map[int64]*domain.Product
	variations map[int64]*domain.Variation
	err        error
}

func newMockCatalog() *mockCatalog {
	red := decimal.RequireFromString("17.00")
	return &mockCatalog{
		products: map[int64]*domain.Product{
			1: {ID: 1, Name: "T-Shirt", Price: decimal.RequireFromString("15.00"), IsActive: true},
			2: {ID: 2, Name: "Wallet", Price: decimal.RequireFromString("25.00"), IsActive: true},
			4: {ID: 4, Name: "Hat", Price: decimal.RequireFromString("12.00"), IsActive: false},
		},
		variations: map[int64]*domain.Variation{
			10: {ID: 10, ProductID: 1, Stock: 3, Attributes: map[string]string{"size": "m"}, Signature: "size=m"},
			11: {ID: 11, ProductID: 1, Stock: 1, Price: &red, Attributes: map[string]string{"size": "l"}, Signature: "size=l"},
		},
	}
}

func (m *mockCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, domain.NotFoundf("product %d", id)
	}
	return p, nil
}

func (m *mockCatalog) GetVariation(_ context.Context, productID, variationID int64) (*domain.Variation, error) {
	v, ok := m.variations[variationID]
	if !ok || v.ProductID != productID {
		return nil, domain.NotFoundf("variation %d", variationID)
	}
	return v, nil
}

func (m *mockCatalog) FindVariationBySignature(_ context.Context, productID int64, signature string) (*domain.Variation, error) {
	for _, v := range m.variations {
		if v.ProductID == productID && v.Signature == signature {
			return v, nil
		}
	}
	return nil, domain.NotFoundf("variation %q", signature)
}

type memoryStore struct {
	carts   map[string]*domain.Cart
	loadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{carts: map[string]*domain.Cart{}}
}

func (m *memoryStore) Load(_ context.Context, sessionID string) (*domain.Cart, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	c, ok := m.carts[sessionID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return c, nil
}

func (m *memoryStore) Save(_ context.Context, c *domain.Cart) error {
	m.carts[c.SessionID] = c
	return nil
}

func (m *memoryStore) Delete(_ context.Context, sessionID string) error {
	delete(m.carts, sessionID)
	return nil
}

var errBoom = errors.New("boom")
