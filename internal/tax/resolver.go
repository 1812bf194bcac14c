package tax

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/fjod/storefront/pkg/lookup"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	ListActiveTaxConfigurations(ctx context.Context) ([]domain.TaxConfiguration, error)
}

type Quote struct {
	Rate       decimal.Decimal `json:"rate"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

type Resolver struct {
	repo    Repository
	log     *zap.Logger
	lookups lookup.Group
}

func NewResolver(repo Repository, log *zap.Logger) *Resolver {
	return &Resolver{repo: repo, log: log}
}

// Resolve returns the rate (in percent) of the lowest-id active
// configuration that covers the country, or zero when none does.
func (r *Resolver) Resolve(ctx context.Context, countryID int64) (decimal.Decimal, error) {
	return lookup.Do(ctx, &r.lookups, strconv.FormatInt(countryID, 10), func(ctx context.Context) (decimal.Decimal, error) {
		configs, err := r.repo.ListActiveTaxConfigurations(ctx)
		if err != nil {
			return decimal.Zero, fmt.Errorf("list tax configurations: %w", err)
		}

		var matched []domain.TaxConfiguration
		for _, c := range configs {
			if c.Matches(countryID) {
				matched = append(matched, c)
			}
		}
		if len(matched) == 0 {
			return decimal.Zero, nil
		}
		if len(matched) > 1 {
			ids := make([]int64, len(matched))
			for i, c := range matched {
				ids[i] = c.ID
			}
			logger.FromContext(ctx, r.log).Warn("multiple tax configurations match country, using the first",
				zap.Int64("country_id", countryID),
				zap.Int64s("configuration_ids", ids))
		}
		return matched[0].Rate, nil
	})
}

// Compute returns (subtotal + shipping) × rate / 100 rounded to cents.
func Compute(subtotal, shipping, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return domain.Percent(subtotal.Add(shipping), rate)
}

func (r *Resolver) Quote(ctx context.Context, countryID int64, subtotal, shipping decimal.Decimal) (Quote, error) {
	rate, err := r.Resolve(ctx, countryID)
	if err != nil {
		return Quote{}, err
	}
	amount := Compute(subtotal, shipping, rate)
	return Quote{
		Rate:       rate,
		TaxAmount:  amount,
		GrandTotal: subtotal.Add(shipping).Add(amount),
	}, nil
}
