package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	creds := &repository.Credentials{
		Driver:            "sqlite",
		Path:              ":memory:",
		MigrationsDirPath: "../repository/migrations",
	}
	repo, err := repository.NewRepository(creds)
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations(creds))
	t.Cleanup(func() { repo.Close() })
	return NewService(repo)
}

func TestProduct_OptionsFromInStockVariations(t *testing.T) {
	svc := setupService(t)

	detail, err := svc.Product(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Classic Cotton T-Shirt", detail.Product.Name)
	assert.Len(t, detail.Variations, 3)
	// The blue variation is out of stock.
	assert.Equal(t, map[string][]string{
		"color": {"red"},
		"size":  {"l", "m"},
	}, detail.Options)

	simple, err := svc.Product(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, simple.Variations)
	assert.Empty(t, simple.Options)
}

func TestProduct_InactiveOrMissing(t *testing.T) {
	svc := setupService(t)

	_, err := svc.Product(context.Background(), 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Product(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVariant(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	v, err := svc.Variant(ctx, 1, map[string]string{"Color": "Red", "Size": "L"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Variation.ID)
	assert.Equal(t, "17.00", v.UnitPrice.StringFixed(2))
	assert.Equal(t, 5, v.Variation.Stock)

	v, err = svc.Variant(ctx, 1, map[string]string{"size": "m", "color": "red"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Variation.ID)
	assert.Equal(t, "15.00", v.UnitPrice.StringFixed(2), "falls back to the product price")

	_, err = svc.Variant(ctx, 1, map[string]string{"color": "green"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Variant(ctx, 4, map[string]string{"color": "red"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Variant(ctx, 1, nil)
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}
