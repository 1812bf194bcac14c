package promo

import (
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	msgNotFound           = "Invalid promo code."
	msgNotActive          = "This promo code is not active."
	msgNotYetValid        = "This promo code is not valid yet."
	msgExpired            = "This promo code has expired."
	msgFirstOrderOnly     = "This promo code is only valid on your first order."
	msgLoginRequired      = "Please log in to use this promo code."
	msgPerUserLimit       = "You have already used this promo code the maximum number of times."
	msgNotApplicable      = "This promo code does not apply to any item in your cart."
	msgCountryNotEligible = "This promo code is not available for your shipping country."
	msgApplied            = "Promo code applied successfully."
)

// Shopper is what the evaluator knows about the person redeeming a code.
// UserID is empty for guests.
type Shopper struct {
	UserID        string
	HasPriorOrder bool
	Redemptions   int
}

type EvalInput struct {
	Now       time.Time
	Subtotal  decimal.Decimal
	Lines     []domain.CartLine
	CountryID *int64
	Shopper   Shopper
}

type Result struct {
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
	NewTotal decimal.Decimal `json:"new_total"`
	Message  string          `json:"message"`
	Reason   string          `json:"reason,omitempty"`
}

// Err converts a rejected result into a rule error.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return domain.NewRuleError(r.Reason, r.Message)
}

func reject(reason, message string, subtotal decimal.Decimal) Result {
	return Result{
		Valid:    false,
		Discount: decimal.Zero,
		NewTotal: subtotal,
		Message:  message,
		Reason:   reason,
	}
}

// Evaluate runs the checks in order; the first failure decides the result.
func Evaluate(p *domain.PromoCode, in EvalInput) Result {
	if !p.IsActive {
		return reject(domain.PromoNotActive, msgNotActive, in.Subtotal)
	}
	if p.UsedCount >= p.UsageLimit {
		return reject(domain.PromoLimitReached, domain.ErrPromoExhausted.Message, in.Subtotal)
	}
	if in.Now.Before(p.ValidFrom) {
		return reject(domain.PromoNotYetValid, msgNotYetValid, in.Subtotal)
	}
	if in.Now.After(p.ValidTo) {
		return reject(domain.PromoExpired, msgExpired, in.Subtotal)
	}
	if in.Subtotal.LessThan(p.MinimumPurchase) {
		return reject(domain.PromoMinimumNotMet,
			fmt.Sprintf("Minimum purchase of %s required for this promo code.", p.MinimumPurchase.StringFixed(2)),
			in.Subtotal)
	}

	guest := in.Shopper.UserID == ""
	if p.FirstOrderOnly {
		if guest {
			return reject(domain.PromoLoginRequired, msgLoginRequired, in.Subtotal)
		}
		if in.Shopper.HasPriorOrder {
			return reject(domain.PromoFirstOrderOnly, msgFirstOrderOnly, in.Subtotal)
		}
	}
	if !guest && in.Shopper.Redemptions >= p.PerUserLimit {
		return reject(domain.PromoPerUserLimit, msgPerUserLimit, in.Subtotal)
	}

	base := in.Subtotal
	if len(p.ProductIDs) > 0 {
		base = decimal.Zero
		for _, l := range in.Lines {
			if p.AppliesToProduct(l.ProductID) {
				base = base.Add(l.LineTotal())
			}
		}
		if base.IsZero() {
			return reject(domain.PromoNotApplicable, msgNotApplicable, in.Subtotal)
		}
	}
	if in.CountryID != nil && !p.AppliesToCountry(*in.CountryID) {
		return reject(domain.PromoCountryNotEligible, msgCountryNotEligible, in.Subtotal)
	}

	discount := Discount(p, base)
	return Result{
		Valid:    true,
		Discount: discount,
		NewTotal: in.Subtotal.Sub(discount),
		Message:  msgApplied,
	}
}

// Discount computes the amount taken off base. Percentage discounts are
// rounded to cents and capped at MaximumDiscount; fixed discounts never
// exceed base.
func Discount(p *domain.PromoCode, base decimal.Decimal) decimal.Decimal {
	switch p.DiscountType {
	case domain.DiscountPercentage:
		d := domain.Percent(base, p.DiscountValue)
		if p.MaximumDiscount != nil && d.GreaterThan(*p.MaximumDiscount) {
			d = *p.MaximumDiscount
		}
		return d
	case domain.DiscountFixed:
		return decimal.Min(p.DiscountValue, base)
	}
	return decimal.Zero
}
