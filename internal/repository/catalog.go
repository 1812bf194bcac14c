package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, name, price, image_url, is_active
		FROM products
		WHERE id = $1
	`

	p := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.ImageURL,
		&p.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("product %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

func (r *Repository) GetVariation(ctx context.Context, productID, variationID int64) (*domain.Variation, error) {
	query := `
		SELECT id, product_id, price, stock, attributes, signature
		FROM variations
		WHERE id = $1 AND product_id = $2
	`
	v, err := scanVariation(r.db.QueryRowContext(ctx, query, variationID, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("variation %d of product %d", variationID, productID)
	}
	return v, err
}

func (r *Repository) FindVariationBySignature(ctx context.Context, productID int64, signature string) (*domain.Variation, error) {
	query := `
		SELECT id, product_id, price, stock, attributes, signature
		FROM variations
		WHERE product_id = $1 AND signature = $2
	`
	v, err := scanVariation(r.db.QueryRowContext(ctx, query, productID, signature))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("variation %q of product %d", signature, productID)
	}
	return v, err
}

// ListVariations returns every variation of the product ordered by id.
func (r *Repository) ListVariations(ctx context.Context, productID int64) ([]domain.Variation, error) {
	query := `
		SELECT id, product_id, price, stock, attributes, signature
		FROM variations
		WHERE product_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("query variations: %w", err)
	}
	defer rows.Close()

	var variations []domain.Variation
	for rows.Next() {
		v, err := scanVariation(rows)
		if err != nil {
			return nil, err
		}
		variations = append(variations, *v)
	}
	return variations, rows.Err()
}

func scanVariation(row rowScanner) (*domain.Variation, error) {
	v := &domain.Variation{}
	var (
		price decimal.NullDecimal
		attrs string
	)
	if err := row.Scan(&v.ID, &v.ProductID, &price, &v.Stock, &attrs, &v.Signature); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan variation: %w", err)
	}
	if price.Valid {
		v.Price = &price.Decimal
	}
	if err := json.Unmarshal([]byte(attrs), &v.Attributes); err != nil {
		return nil, fmt.Errorf("unmarshal variation attributes: %w", err)
	}
	return v, nil
}
