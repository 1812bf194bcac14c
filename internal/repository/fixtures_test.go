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

// Catalog and promo rows are managed by operators outside the service; these
// writers exist for test fixtures.

var ErrDuplicateVariation = errors.New("variation with the same attributes already exists")

func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	query := `INSERT INTO products (name, price, image_url, is_active)
	          VALUES ($1, $2, $3, $4) RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, p.Name, p.Price, p.ImageURL, p.IsActive).Scan(&p.ID); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// CreateVariation stores the variation together with its canonical
// attribute signature.
func (r *Repository) CreateVariation(ctx context.Context, v *domain.Variation) error {
	attrs, err := json.Marshal(v.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	v.Signature = domain.AttributeSignature(v.Attributes)

	query := `INSERT INTO variations (product_id, price, stock, attributes, signature)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`

	err = r.db.QueryRowContext(ctx, query,
		v.ProductID,
		nullableDecimal(v.Price),
		v.Stock,
		string(attrs),
		v.Signature).Scan(&v.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateVariation
		}
		return fmt.Errorf("insert variation: %w", err)
	}
	return nil
}

func (r *Repository) CreatePromo(ctx context.Context, p *domain.PromoCode) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO promo_codes (code, discount_type, discount_value, minimum_purchase, maximum_discount,
		              usage_limit, per_user_limit, used_count, valid_from, valid_to, is_active, first_order_only)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
		err := tx.QueryRowContext(ctx, query,
			p.Code,
			p.DiscountType,
			p.DiscountValue,
			p.MinimumPurchase,
			nullableDecimal(p.MaximumDiscount),
			p.UsageLimit,
			p.PerUserLimit,
			p.UsedCount,
			p.ValidFrom.UTC(),
			p.ValidTo.UTC(),
			p.IsActive,
			p.FirstOrderOnly).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("insert promo code: %w", err)
		}
		for _, id := range p.ProductIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO promo_code_products (promo_code_id, product_id) VALUES ($1, $2)`, p.ID, id); err != nil {
				return fmt.Errorf("insert promo product: %w", err)
			}
		}
		for _, id := range p.CountryIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO promo_code_countries (promo_code_id, country_id) VALUES ($1, $2)`, p.ID, id); err != nil {
				return fmt.Errorf("insert promo country: %w", err)
			}
		}
		return nil
	})
}

func nullableDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
