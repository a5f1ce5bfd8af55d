package rates

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fxledger/internal/core"
)

type pair struct{ from, to string }

// Static serves a fixed rate table. Inverse pairs are derived.
type Static struct {
	rates map[pair]decimal.Decimal
}

func NewStatic() *Static {
	return &Static{rates: make(map[pair]decimal.Decimal)}
}

// ParseStatic reads "EUR:USD=1.08,GBP:USD=1.27".
func ParseStatic(table string) (*Static, error) {
	s := NewStatic()
	for _, item := range strings.Split(table, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		codes, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("static rate %q: missing '='", item)
		}
		from, to, ok := strings.Cut(codes, ":")
		if !ok {
			return nil, fmt.Errorf("static rate %q: expected FROM:TO", item)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("static rate %q: %w", item, err)
		}
		if err := s.Set(from, to, rate); err != nil {
			return nil, fmt.Errorf("static rate %q: %w", item, err)
		}
	}
	return s, nil
}

// Set registers from->to. Codes are normalized.
func (s *Static) Set(from, to string, rate decimal.Decimal) error {
	f, err := core.NormalizeCurrency(from)
	if err != nil {
		return err
	}
	t, err := core.NormalizeCurrency(to)
	if err != nil {
		return err
	}
	if !rate.IsPositive() {
		return ErrInvalidRate
	}
	s.rates[pair{f, t}] = rate
	return nil
}

func (s *Static) Rate(_ context.Context, from, to string) Result {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if samePair(from, to) {
		return Available(decimal.NewFromInt(1))
	}
	if r, ok := s.rates[pair{from, to}]; ok {
		return Available(r)
	}
	if r, ok := s.rates[pair{to, from}]; ok {
		return Available(decimal.NewFromInt(1).Div(r))
	}
	return Unavailable(ErrNoRate)
}
