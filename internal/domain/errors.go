package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every "unknown product/order/promo/region" error.
var ErrNotFound = errors.New("not found")

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RuleError is a business-rule rejection with a stable machine code and a
// message that is safe to show to the shopper.
type RuleError struct {
	Code    string
	Message string
}

func (e *RuleError) Error() string {
	return e.Message
}

// Is matches another *RuleError with the same code, so sentinel rule errors
// work with errors.Is.
func (e *RuleError) Is(target error) bool {
	var t *RuleError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func NewRuleError(code, message string) *RuleError {
	return &RuleError{Code: code, Message: message}
}

var (
	ErrInsufficientStock = NewRuleError("insufficient_stock", "requested quantity exceeds available stock")
	ErrLineNotFound      = NewRuleError("not_in_cart", "item not in cart")
	ErrEmptyCart         = NewRuleError("empty_cart", "cart is empty, nothing to checkout")
	ErrIllegalTransition = NewRuleError("illegal_transition", "illegal transition of order status")
	ErrPromoExhausted    = NewRuleError(PromoLimitReached, "This promo code has reached its usage limit.")
)

// NotFoundf builds an error wrapping ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}
