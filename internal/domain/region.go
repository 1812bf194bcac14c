package domain

import "github.com/shopspring/decimal"

type Country struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// District carries the flat shipping cost for every address inside it.
type District struct {
	ID           int64           `json:"id"`
	CountryID    int64           `json:"country_id"`
	Name         string          `json:"name"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
}

type Thana struct {
	ID         int64  `json:"id"`
	DistrictID int64  `json:"district_id"`
	Name       string `json:"name"`
}

type TaxConfiguration struct {
	ID           int64
	Name         string
	Rate         decimal.Decimal // percent
	AppliesToAll bool
	IsActive     bool
	CountryIDs   []int64
}

func (t *TaxConfiguration) Matches(countryID int64) bool {
	if !t.IsActive {
		return false
	}
	if t.AppliesToAll {
		return true
	}
	for _, id := range t.CountryIDs {
		if id == countryID {
			return true
		}
	}
	return false
}
