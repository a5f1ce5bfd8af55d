package rates

import (
	"context"

	"github.com/shopspring/decimal"

	"fxledger/internal/core"
)

// Conversion is the outcome of converting an amount between two codes.
type Conversion struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Converted decimal.Decimal `json:"converted"`
}

// Convert prices amount of from in to. Identical codes need no lookup.
func Convert(ctx context.Context, p Provider, amount decimal.Decimal, from, to string) (Conversion, error) {
	from, err := core.NormalizeCurrency(from)
	if err != nil {
		return Conversion{}, err
	}
	to, err = core.NormalizeCurrency(to)
	if err != nil {
		return Conversion{}, err
	}
	if !amount.IsPositive() {
		return Conversion{}, core.NewValidationError("amount", "must be positive")
	}

	rate := decimal.NewFromInt(1)
	if from != to {
		res := p.Rate(ctx, from, to)
		r, ok := res.Value()
		if !ok {
			return Conversion{}, res.Err(from, to)
		}
		rate = r
	}

	return Conversion{
		Amount:    amount,
		From:      from,
		To:        to,
		Rate:      rate,
		Converted: amount.Mul(rate),
	}, nil
}
