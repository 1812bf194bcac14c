package cart

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

// SessionStore persists carts between requests, keyed by session id.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCartNotFound = errors.New("cart not found")
