// Package core holds the ledger's domain types and its pure reductions.
//
// This file contains amount parsing and currency code handling.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultBaseCurrency is used when no base currency is configured.
const DefaultBaseCurrency = "USD"

// ParseAmount converts a user-entered decimal string to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// rejected: direction is carried by Kind, never by the amount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-5")    -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, NewValidationError("amount", "must not be empty")
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, NewValidationError("amount", fmt.Sprintf("must be an unsigned magnitude, got %q", s))
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewValidationError("amount", fmt.Sprintf("not a number: %q", s))
	}
	if !d.IsPositive() {
		return decimal.Zero, NewValidationError("amount", fmt.Sprintf("must be positive, got %q", s))
	}
	return d, nil
}

// AmountFromFloat converts a float (e.g. a JSON number from a tool call) to a decimal.
// NaN and infinities are rejected because decimal cannot represent them.
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, NewValidationError("amount", "must be a finite number")
	}
	return decimal.NewFromFloat(f), nil
}

// NormalizeCurrency uppercases and checks the shape of a currency code.
// Both ISO 4217 codes (USD) and crypto tickers (BTC, USDT) are accepted; whether
// a rate exists is the rate provider's business, not validation's.
func NormalizeCurrency(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) < 3 || len(c) > 6 {
		return "", NewValidationError("currency", fmt.Sprintf("expected a 3-6 letter code, got %q", code))
	}
	for _, r := range c {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", NewValidationError("currency", fmt.Sprintf("unexpected character in %q", code))
		}
	}
	return c, nil
}

// IsISOCurrency reports whether code is a recognised ISO 4217 currency.
func IsISOCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	_, err := currency.ParseISO(code)
	return err == nil
}
