package ledger

import (
	"github.com/shopspring/decimal"

	"fxledger/internal/core"
)

// RawRow is one bulk-import row, resolved once into either LegacyRow or
// NormalizedRow.
type RawRow interface {
	rawRow()
}

// LegacyRow is the (date, amount, category, kind) import shape. Amount is
// in the ledger's base currency.
type LegacyRow struct {
	Date     core.Date
	Amount   decimal.Decimal
	Category string
	Kind     string
}

// NormalizedRow is the (date, base_amount, original_amount,
// original_currency, category, kind) import shape. A present BaseAmount is
// the historical price and is kept as is; when absent the row is priced
// with one rate lookup.
type NormalizedRow struct {
	Date             core.Date
	BaseAmount       decimal.NullDecimal
	OriginalAmount   decimal.Decimal
	OriginalCurrency string
	Category         string
	Kind             string
}

func (LegacyRow) rawRow()     {}
func (NormalizedRow) rawRow() {}
