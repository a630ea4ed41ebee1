package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/money"
	"ledgerpay/internal/services"
)

func parseAmount(raw json.Number) (decimal.Decimal, error) {
	amount, err := money.Parse(raw.String())
	if err != nil {
		return decimal.Zero, services.ErrInvalidAmount
	}
	return amount, nil
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
