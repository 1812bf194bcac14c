package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
)

func (r *Repository) ListActiveTaxConfigurations(ctx context.Context) ([]domain.TaxConfiguration, error) {
	query := `
		SELECT id, name, rate, applies_to_all, is_active
		FROM tax_configurations
		WHERE is_active = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, true)
	if err != nil {
		return nil, fmt.Errorf("query tax configurations: %w", err)
	}
	var configs []domain.TaxConfiguration
	for rows.Next() {
		var c domain.TaxConfiguration
		if err := rows.Scan(&c.ID, &c.Name, &c.Rate, &c.AppliesToAll, &c.IsActive); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan tax configuration: %w", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for i := range configs {
		if configs[i].AppliesToAll {
			continue
		}
		configs[i].CountryIDs, err = r.queryIDs(ctx,
			`SELECT country_id FROM tax_configuration_countries WHERE tax_configuration_id = $1 ORDER BY country_id`,
			configs[i].ID)
		if err != nil {
			return nil, fmt.Errorf("query tax countries: %w", err)
		}
	}
	return configs, nil
}

func (r *Repository) GetCountry(ctx context.Context, id int64) (*domain.Country, error) {
	c := &domain.Country{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, code FROM countries WHERE id = $1`, id).Scan(&c.ID, &c.Name, &c.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("country %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query country: %w", err)
	}
	return c, nil
}

func (r *Repository) GetDistrict(ctx context.Context, id int64) (*domain.District, error) {
	d := &domain.District{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, country_id, name, shipping_cost FROM districts WHERE id = $1`, id).
		Scan(&d.ID, &d.CountryID, &d.Name, &d.ShippingCost)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("district %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query district: %w", err)
	}
	return d, nil
}

func (r *Repository) GetThana(ctx context.Context, id int64) (*domain.Thana, error) {
	t := &domain.Thana{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, district_id, name FROM thanas WHERE id = $1`, id).Scan(&t.ID, &t.DistrictID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("thana %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query thana: %w", err)
	}
	return t, nil
}

func (r *Repository) ListCountries(ctx context.Context) ([]domain.Country, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, code FROM countries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query countries: %w", err)
	}
	defer rows.Close()

	countries := []domain.Country{}
	for rows.Next() {
		var c domain.Country
		if err := rows.Scan(&c.ID, &c.Name, &c.Code); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		countries = append(countries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return countries, nil
}

func (r *Repository) ListDistricts(ctx context.Context, countryID int64) ([]domain.District, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, country_id, name, shipping_cost FROM districts WHERE country_id = $1 ORDER BY name`, countryID)
	if err != nil {
		return nil, fmt.Errorf("query districts: %w", err)
	}
	defer rows.Close()

	districts := []domain.District{}
	for rows.Next() {
		var d domain.District
		if err := rows.Scan(&d.ID, &d.CountryID, &d.Name, &d.ShippingCost); err != nil {
			return nil, fmt.Errorf("scan district: %w", err)
		}
		districts = append(districts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return districts, nil
}

func (r *Repository) ListThanas(ctx context.Context, districtID int64) ([]domain.Thana, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, district_id, name FROM thanas WHERE district_id = $1 ORDER BY name`, districtID)
	if err != nil {
		return nil, fmt.Errorf("query thanas: %w", err)
	}
	defer rows.Close()

	thanas := []domain.Thana{}
	for rows.Next() {
		var t domain.Thana
		if err := rows.Scan(&t.ID, &t.DistrictID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan thana: %w", err)
		}
		thanas = append(thanas, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return thanas, nil
}
