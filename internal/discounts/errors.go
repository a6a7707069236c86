package discounts

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Rejections of the apply/remove workflow. All map to a client error.
var (
	ErrCodeRequired      = errors.New("Discount code is required")
	ErrCodeExists        = errors.New("This discount code already exists")
	ErrNotFound          = errors.New("Invalid discount code")
	ErrExpired           = errors.New("This discount code has expired")
	ErrAlreadyUsed       = errors.New("You have already used this discount code")
	ErrEmptyCart         = errors.New("Your cart is empty. Add items before applying a discount.")
	ErrNoDiscountApplied = errors.New("No discount code applied to your cart.")
)

// ValidationError is returned by Register for malformed input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// MinimumPurchaseError is returned when the cart total is below the code's threshold.
type MinimumPurchaseError struct {
	Required decimal.Decimal
	Currency string
}

func (e *MinimumPurchaseError) Error() string {
	return fmt.Sprintf("Minimum purchase amount must be %s %s", e.Currency, e.Required.String())
}

// IsRejection reports whether err is an expected business rejection rather
// than an infrastructure failure.
func IsRejection(err error) bool {
	var ve *ValidationError
	var me *MinimumPurchaseError
	switch {
	case errors.As(err, &ve), errors.As(err, &me):
		return true
	case errors.Is(err, ErrCodeRequired), errors.Is(err, ErrCodeExists), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrExpired), errors.Is(err, ErrAlreadyUsed), errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrNoDiscountApplied):
		return true
	}
	return false
}
