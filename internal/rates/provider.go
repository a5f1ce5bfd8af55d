// Package rates looks up spot conversion rates between currency codes.
// Providers never return an error: a missing rate is a first-class
// Unavailable result.
package rates

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"fxledger/internal/core"
)

//go:generate mockgen -source=provider.go -destination=provider_mock.go -package=rates

// Provider returns the rate that converts one unit of from into to.
type Provider interface {
	Rate(ctx context.Context, from, to string) Result
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, from, to string) Result

func (f ProviderFunc) Rate(ctx context.Context, from, to string) Result {
	return f(ctx, from, to)
}

var (
	ErrNoRate       = errors.New("no rate for currency pair")
	ErrInvalidRate  = errors.New("rate is not positive")
	ErrNotSupported = errors.New("currency pair not supported by provider")
)

// Result is either Available(rate) or Unavailable(reason).
type Result struct {
	rate   decimal.Decimal
	reason error
	ok     bool
}

// Available wraps a rate. A non-positive rate is reported as unavailable.
func Available(rate decimal.Decimal) Result {
	if !rate.IsPositive() {
		return Unavailable(ErrInvalidRate)
	}
	return Result{rate: rate, ok: true}
}

// Unavailable records why no rate could be produced.
func Unavailable(reason error) Result {
	if reason == nil {
		reason = ErrNoRate
	}
	return Result{reason: reason}
}

func (r Result) OK() bool { return r.ok }

// Value returns the rate and whether it is available.
func (r Result) Value() (decimal.Decimal, bool) {
	return r.rate, r.ok
}

// Reason is nil for an available result.
func (r Result) Reason() error {
	if r.ok {
		return nil
	}
	return r.reason
}

// Err converts an unavailable result into a *core.ConversionError.
func (r Result) Err(from, to string) error {
	if r.ok {
		return nil
	}
	return &core.ConversionError{From: from, To: to, Reason: r.reason}
}

func samePair(from, to string) bool {
	return strings.EqualFold(strings.TrimSpace(from), strings.TrimSpace(to))
}
