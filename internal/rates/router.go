package rates

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"fxledger/internal/core"
)

// Router sends ISO 4217 pairs to Fiat and anything involving a non-ISO
// code to Crypto. Each call reaches at most one provider.
type Router struct {
	Fiat   Provider
	Crypto Provider
}

func (r *Router) Rate(ctx context.Context, from, to string) Result {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if samePair(from, to) {
		return Available(decimal.NewFromInt(1))
	}

	target := r.Fiat
	if !isFiat(from) || !isFiat(to) {
		target = r.Crypto
	}
	if target == nil {
		return Unavailable(ErrNotSupported)
	}
	return target.Rate(ctx, from, to)
}

func isFiat(code string) bool {
	return core.IsISOCurrency(code)
}
