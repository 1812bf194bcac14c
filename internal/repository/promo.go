package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// GetPromoByCode looks the code up case-insensitively.
func (r *Repository) GetPromoByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	query := `
		SELECT id, code, discount_type, discount_value, minimum_purchase, maximum_discount,
		       usage_limit, per_user_limit, used_count, valid_from, valid_to, is_active, first_order_only
		FROM promo_codes
		WHERE UPPER(code) = UPPER($1)
	`

	p := &domain.PromoCode{}
	var maxDiscount decimal.NullDecimal
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&p.ID,
		&p.Code,
		&p.DiscountType,
		&p.DiscountValue,
		&p.MinimumPurchase,
		&maxDiscount,
		&p.UsageLimit,
		&p.PerUserLimit,
		&p.UsedCount,
		&p.ValidFrom,
		&p.ValidTo,
		&p.IsActive,
		&p.FirstOrderOnly,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("promo code %q", code)
	}
	if err != nil {
		return nil, fmt.Errorf("query promo code: %w", err)
	}
	if maxDiscount.Valid {
		p.MaximumDiscount = &maxDiscount.Decimal
	}

	if p.ProductIDs, err = r.queryIDs(ctx,
		`SELECT product_id FROM promo_code_products WHERE promo_code_id = $1 ORDER BY product_id`, p.ID); err != nil {
		return nil, fmt.Errorf("query promo products: %w", err)
	}
	if p.CountryIDs, err = r.queryIDs(ctx,
		`SELECT country_id FROM promo_code_countries WHERE promo_code_id = $1 ORDER BY country_id`, p.ID); err != nil {
		return nil, fmt.Errorf("query promo countries: %w", err)
	}
	return p, nil
}

func (r *Repository) CountUserRedemptions(ctx context.Context, promoID int64, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM promo_redemptions WHERE promo_code_id = $1 AND user_id = $2`,
		promoID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count promo redemptions: %w", err)
	}
	return n, nil
}

// HasPriorOrder reports whether the user has placed any order before.
func (r *Repository) HasPriorOrder(ctx context.Context, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count user orders: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
