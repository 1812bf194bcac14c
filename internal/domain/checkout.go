package domain

import (
	"errors"
	"strings"
)

type CheckoutRequest struct {
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	PhoneNumber   string        `json:"phone_number"`
	FullAddress   string        `json:"full_address"`
	CountryID     int64         `json:"country_id"`
	DistrictID    int64         `json:"district_id"`
	ThanaID       *int64        `json:"thana_id,omitempty"`
	PostalCode    string        `json:"postal_code,omitempty"`
	BirthDate     *int          `json:"birth_date,omitempty"`
	BirthMonth    string        `json:"birth_month,omitempty"`
	OrderNote     string        `json:"order_note,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

var months = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// Normalize trims free-text fields and canonicalises the birth month.
func (r *CheckoutRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.FullAddress = strings.TrimSpace(r.FullAddress)
	r.PostalCode = strings.TrimSpace(r.PostalCode)
	r.OrderNote = strings.TrimSpace(r.OrderNote)
	r.BirthMonth = strings.ToLower(strings.TrimSpace(r.BirthMonth))
	r.PaymentMethod = PaymentMethod(strings.ToLower(strings.TrimSpace(string(r.PaymentMethod))))
}

// Validate returns every field problem at once, joined.
func (r *CheckoutRequest) Validate() error {
	var errs []error
	required := []struct{ field, value string }{
		{"first_name", r.FirstName},
		{"last_name", r.LastName},
		{"phone_number", r.PhoneNumber},
		{"full_address", r.FullAddress},
	}
	for _, f := range required {
		if f.value == "" {
			errs = append(errs, NewValidationError(f.field, "is required"))
		}
	}
	if r.CountryID <= 0 {
		errs = append(errs, NewValidationError("country_id", "is required"))
	}
	if r.DistrictID <= 0 {
		errs = append(errs, NewValidationError("district_id", "is required"))
	}
	if r.PaymentMethod == "" {
		errs = append(errs, NewValidationError("payment_method", "is required"))
	} else if !r.PaymentMethod.Valid() {
		errs = append(errs, NewValidationError("payment_method", "must be cash_on_delivery, card or mobile_banking"))
	}
	if r.BirthDate != nil && (*r.BirthDate < 1 || *r.BirthDate > 31) {
		errs = append(errs, NewValidationError("birth_date", "must be between 1 and 31"))
	}
	if r.BirthMonth != "" && !isMonth(r.BirthMonth) {
		errs = append(errs, NewValidationError("birth_month", "must be an English month name"))
	}
	return errors.Join(errs...)
}

func isMonth(s string) bool {
	for _, m := range months {
		if m == s {
			return true
		}
	}
	return false
}
