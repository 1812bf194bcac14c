package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type PromoCode struct {
	ID              int64
	Code            string
	DiscountType    DiscountType
	DiscountValue   decimal.Decimal
	MinimumPurchase decimal.Decimal
	MaximumDiscount *decimal.Decimal
	UsageLimit      int
	PerUserLimit    int
	UsedCount       int
	ValidFrom       time.Time
	ValidTo         time.Time
	IsActive        bool
	FirstOrderOnly  bool
	ProductIDs      []int64 // empty means every product
	CountryIDs      []int64 // empty means every country
}

func (p *PromoCode) AppliesToProduct(productID int64) bool {
	if len(p.ProductIDs) == 0 {
		return true
	}
	for _, id := range p.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

func (p *PromoCode) AppliesToCountry(countryID int64) bool {
	if len(p.CountryIDs) == 0 {
		return true
	}
	for _, id := range p.CountryIDs {
		if id == countryID {
			return true
		}
	}
	return false
}

type PromoRedemption struct {
	PromoID     int64
	UserID      string
	OrderNumber string
	RedeemedAt  time.Time
}

// Promo rejection codes.
const (
	PromoNotFound           = "not_found"
	PromoNotActive          = "not_active"
	PromoLimitReached       = "limit_reached"
	PromoNotYetValid        = "not_yet_valid"
	PromoExpired            = "expired"
	PromoMinimumNotMet      = "minimum_not_met"
	PromoFirstOrderOnly     = "first_order_only"
	PromoLoginRequired      = "login_required"
	PromoPerUserLimit       = "per_user_limit_reached"
	PromoNotApplicable      = "not_applicable"
	PromoCountryNotEligible = "country_not_eligible"
)
