package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidMoney = errors.New("invalid money amount")
)

// Places is the currency precision stored in the ledger.
const Places = 2

// maxAmount matches NUMERIC(14,2).
var maxAmount = decimal.RequireFromString("999999999999.99")

// Rounding rescales to 10^|exponent|, so inputs are bounded before any arithmetic.
const (
	maxInputLen = 32
	minExponent = -(Places + 10)
	maxExponent = 12
)

// ParseAmount parses user-entered text (like "12.34") into a positive amount
// rounded to two places. Values that round to zero are rejected.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := parse(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: must be greater than zero", ErrInvalidMoney)
	}
	return d, nil
}

// ParseSignedAmount is ParseAmount without the sign restriction. Zero is still rejected.
func ParseSignedAmount(raw string) (decimal.Decimal, error) {
	d, err := parse(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: must not be zero", ErrInvalidMoney)
	}
	return d, nil
}

func parse(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidMoney)
	}
	if len(raw) > maxInputLen {
		return decimal.Zero, fmt.Errorf("%w: too long", ErrInvalidMoney)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidMoney, raw)
	}
	if exp := d.Exponent(); exp < minExponent || exp > maxExponent {
		return decimal.Zero, fmt.Errorf("%w: exponent out of range", ErrInvalidMoney)
	}
	d = d.Round(Places)
	if d.Abs().GreaterThan(maxAmount) {
		return decimal.Zero, fmt.Errorf("%w: too large", ErrInvalidMoney)
	}
	return d, nil
}

// Format renders an amount with exactly two decimals, e.g. "-12.50".
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
