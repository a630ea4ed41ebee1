package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DropsPerXRP is the number of indivisible ledger units in one XRP.
const DropsPerXRP = 1_000_000

// MaxDecimals is the precision the ledger accepts for native amounts.
const MaxDecimals = 6

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

var dropsFactor = decimal.NewFromInt(DropsPerXRP)

// Parse reads a positive XRP amount such as "10" or "0.000012".
func Parse(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if value.Exponent() < -MaxDecimals && !value.Equal(value.Truncate(MaxDecimals)) {
		return decimal.Zero, ErrTooManyDecimals
	}
	if !value.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return value, nil
}

// ToDrops converts an XRP amount to drops. Sub-drop fractions are rejected.
func ToDrops(xrp decimal.Decimal) (int64, error) {
	drops := xrp.Mul(dropsFactor)
	if !drops.Equal(drops.Truncate(0)) {
		return 0, ErrTooManyDecimals
	}
	return drops.IntPart(), nil
}

func FromDrops(drops int64) decimal.Decimal {
	return decimal.NewFromInt(drops).Div(dropsFactor)
}

// ParseDrops reads a drops string as returned by the ledger RPC.
func ParseDrops(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse drops %q: %w", raw, ErrInvalidAmount)
	}
	if !value.Equal(value.Truncate(0)) {
		return decimal.Zero, fmt.Errorf("parse drops %q: %w", raw, ErrTooManyDecimals)
	}
	return value.Div(dropsFactor), nil
}

func Format(value decimal.Decimal) string {
	return value.StringFixed(MaxDecimals)
}
