package shipping

import (
	"context"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	countries map[int64]*domain.Country
	districts map[int64]*domain.District
	thanas    map[int64]*domain.Thana
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		countries: map[int64]*domain.Country{
			1: {ID: 1, Name: "Bangladesh", Code: "BD"},
			2: {ID: 2, Name: "India", Code: "IN"},
		},
		districts: map[int64]*domain.District{
			1: {ID: 1, CountryID: 1, Name: "Dhaka", ShippingCost: decimal.RequireFromString("60.00")},
			3: {ID: 3, CountryID: 2, Name: "Kolkata", ShippingCost: decimal.RequireFromString("200.00")},
		},
		thanas: map[int64]*domain.Thana{
			1: {ID: 1, DistrictID: 1, Name: "Gulshan"},
			5: {ID: 5, DistrictID: 3, Name: "Salt Lake"},
		},
	}
}

func (m *mockRepo) GetCountry(_ context.Context, id int64) (*domain.Country, error) {
	if c, ok := m.countries[id]; ok {
		return c, nil
	}
	return nil, domain.NotFoundf("country %d", id)
}

func (m *mockRepo) GetDistrict(_ context.Context, id int64) (*domain.District, error) {
	if d, ok := m.districts[id]; ok {
		return d, nil
	}
	return nil, domain.NotFoundf("district %d", id)
}

func (m *mockRepo) GetThana(_ context.Context, id int64) (*domain.Thana, error) {
	if t, ok := m.thanas[id]; ok {
		return t, nil
	}
	return nil, domain.NotFoundf("thana %d", id)
}

func (m *mockRepo) ListCountries(context.Context) ([]domain.Country, error) {
	return []domain.Country{*m.countries[1], *m.countries[2]}, nil
}

func (m *mockRepo) ListDistricts(_ context.Context, countryID int64) ([]domain.District, error) {
	var out []domain.District
	for _, d := range m.districts {
		if d.CountryID == countryID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockRepo) ListThanas(_ context.Context, districtID int64) ([]domain.Thana, error) {
	var out []domain.Thana
	for _, t := range m.thanas {
		if t.DistrictID == districtID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func int64p(v int64) *int64 { return &v }

func TestCost(t *testing.T) {
	r := NewResolver(newMockRepo())

	cost, err := r.Cost(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "60.00", cost.StringFixed(2))

	_, err = r.Cost(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestValidate_Chain(t *testing.T) {
	r := NewResolver(newMockRepo())
	ctx := context.Background()

	d, err := r.Validate(ctx, 1, 1, int64p(1))
	require.NoError(t, err)
	assert.Equal(t, "Dhaka", d.Name)

	_, err = r.Validate(ctx, 1, 1, nil)
	assert.NoError(t, err)

	tests := []struct {
		name     string
		country  int64
		district int64
		thana    *int64
		field    string
	}{
		{"unknown country", 9, 1, nil, "country_id"},
		{"unknown district", 1, 9, nil, "district_id"},
		{"district of other country", 1, 3, nil, "district_id"},
		{"unknown thana", 1, 1, int64p(9), "thana_id"},
		{"thana of other district", 1, 1, int64p(5), "thana_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Validate(ctx, tt.country, tt.district, tt.thana)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestListings(t *testing.T) {
	r := NewResolver(newMockRepo())
	ctx := context.Background()

	countries, err := r.Countries(ctx)
	require.NoError(t, err)
	assert.Len(t, countries, 2)

	districts, err := r.Districts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, districts, 1)
	assert.Equal(t, "Kolkata", districts[0].Name)

	thanas, err := r.Thanas(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, thanas, 1)
}
