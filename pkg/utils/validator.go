package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	// plain decimal notation only, no exponents
	amountRegex = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)$`)
)

// MaxAmount is the largest accepted claim amount
var MaxAmount = decimal.New(1, 12)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseAmount parses a money amount, requires it to be positive and rounds it
// half away from zero to two decimal places.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}

	if !amountRegex.MatchString(raw) {
		return decimal.Zero, fmt.Errorf("amount is not a number: %s", raw)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount is not a number: %s", raw)
	}

	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be greater than zero: %s", raw)
	}
	if amount.GreaterThanOrEqual(MaxAmount) {
		return decimal.Zero, fmt.Errorf("amount must be less than %s: %s", MaxAmount.String(), raw)
	}
	rounded := amount.Round(2)
	if !rounded.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount rounds to zero at two decimal places: %s", raw)
	}
	return rounded, nil
}

// SanitizeString strips control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
