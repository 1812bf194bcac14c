package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/pkg/lookup"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetCountry(ctx context.Context, id int64) (*domain.Country, error)
	GetDistrict(ctx context.Context, id int64) (*domain.District, error)
	GetThana(ctx context.Context, id int64) (*domain.Thana, error)
	ListCountries(ctx context.Context) ([]domain.Country, error)
	ListDistricts(ctx context.Context, countryID int64) ([]domain.District, error)
	ListThanas(ctx context.Context, districtID int64) ([]domain.Thana, error)
}

type Resolver struct {
	repo    Repository
	lookups lookup.Group
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

func (r *Resolver) district(ctx context.Context, id int64) (*domain.District, error) {
	return lookup.Do(ctx, &r.lookups, fmt.Sprintf("district:%d", id), func(ctx context.Context) (*domain.District, error) {
		return r.repo.GetDistrict(ctx, id)
	})
}

// Cost is the flat shipping cost of the district.
func (r *Resolver) Cost(ctx context.Context, districtID int64) (decimal.Decimal, error) {
	d, err := r.district(ctx, districtID)
	if err != nil {
		return decimal.Zero, err
	}
	return d.ShippingCost, nil
}

// Validate checks that country, district and optional thana form a chain
// and returns the district.
func (r *Resolver) Validate(ctx context.Context, countryID, districtID int64, thanaID *int64) (*domain.District, error) {
	if _, err := r.repo.GetCountry(ctx, countryID); err != nil {
		return nil, invalidSelection("country_id", err)
	}
	d, err := r.district(ctx, districtID)
	if err != nil {
		return nil, invalidSelection("district_id", err)
	}
	if d.CountryID != countryID {
		return nil, domain.NewValidationError("district_id", "district does not belong to the selected country")
	}
	if thanaID != nil {
		t, err := r.repo.GetThana(ctx, *thanaID)
		if err != nil {
			return nil, invalidSelection("thana_id", err)
		}
		if t.DistrictID != districtID {
			return nil, domain.NewValidationError("thana_id", "thana does not belong to the selected district")
		}
	}
	return d, nil
}

func invalidSelection(field string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewValidationError(field, "invalid selection")
	}
	return err
}

func (r *Resolver) Countries(ctx context.Context) ([]domain.Country, error) {
	return lookup.Do(ctx, &r.lookups, "countries", r.repo.ListCountries)
}

func (r *Resolver) Districts(ctx context.Context, countryID int64) ([]domain.District, error) {
	return lookup.Do(ctx, &r.lookups, fmt.Sprintf("districts:%d", countryID), func(ctx context.Context) ([]domain.District, error) {
		return r.repo.ListDistricts(ctx, countryID)
	})
}

func (r *Resolver) Thanas(ctx context.Context, districtID int64) ([]domain.Thana, error) {
	return lookup.Do(ctx, &r.lookups, fmt.Sprintf("thanas:%d", districtID), func(ctx context.Context) ([]domain.Thana, error) {
		return r.repo.ListThanas(ctx, districtID)
	})
}
