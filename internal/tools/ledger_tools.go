package tools

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fxledger/internal/budget"
	"fxledger/internal/core"
	"fxledger/internal/ledger"
	"fxledger/internal/rates"
)

// CryptoPricer quotes a crypto asset in USD and EUR.
type CryptoPricer interface {
	Price(ctx context.Context, symbol string) (rates.CryptoPrice, error)
}

// Deps are the services the tools call into. Crypto may be nil.
type Deps struct {
	Ledger  *ledger.Service
	Budgets *budget.Service
	Rates   rates.Provider
	Crypto  CryptoPricer
}

type recordArgs struct {
	OwnerKey string          `json:"owner_key"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Category string          `json:"category"`
	Kind     string          `json:"kind"`
	Date     core.Date       `json:"date"`
}

type ownerArgs struct {
	OwnerKey   string `json:"owner_key"`
	SortByDate bool   `json:"sort_by_date"`
}

type summaryArgs struct {
	OwnerKey string `json:"owner_key"`
	Month    int    `json:"month"`
	Year     int    `json:"year"`
}

type categoryArgs struct {
	OwnerKey string `json:"owner_key"`
	Category string `json:"category"`
}

type rateArgs struct {
	BaseCurrency   string `json:"base_currency"`
	TargetCurrency string `json:"target_currency"`
}

type convertArgs struct {
	Amount       decimal.Decimal `json:"amount"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
}

type cryptoArgs struct {
	Symbol string `json:"crypto_symbol"`
}

type budgetStatusArgs struct {
	OwnerKey string    `json:"owner_key"`
	AsOf     core.Date `json:"as_of"`
}

// RateQuote is the get_exchange_rate result.
type RateQuote struct {
	Base   string          `json:"base_currency"`
	Target string          `json:"target_currency"`
	Rate   decimal.Decimal `json:"rate"`
}

// CategorySpending is the get_spending_by_category result.
type CategorySpending struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

var (
	ownerProp    = Property{Type: "string", Description: "Opaque key of the user whose ledger is used"}
	amountProp   = Property{Type: "number", Description: "Positive amount; direction is given by kind"}
	currencyProp = Property{Type: "string", Description: "Currency code, e.g. USD, EUR, BTC"}
)

// New builds the registry for deps.
func New(deps Deps) *Registry {
	r := newRegistry()

	register(r, "record_transaction", "Record an income or expense, converting it to the base currency",
		object([]string{"owner_key", "amount", "category", "kind"}, map[string]Property{
			"owner_key": ownerProp,
			"amount":    amountProp,
			"currency":  {Type: "string", Description: "Currency of amount; defaults to the base currency"},
			"category":  {Type: "string", Description: "Category label, e.g. food"},
			"kind":      {Type: "string", Description: "Direction of the transaction", Enum: []string{"income", "expense"}},
			"date":      {Type: "string", Description: "Date in YYYY-MM-DD; defaults to today"},
		}),
		func(ctx context.Context, a recordArgs) (any, error) {
			return deps.Ledger.Record(ctx, core.Entry{
				OwnerKey:   a.OwnerKey,
				Amount:     a.Amount,
				Currency:   a.Currency,
				Category:   a.Category,
				Kind:       core.Kind(a.Kind),
				OccurredOn: a.Date,
			})
		})

	register(r, "list_transactions", "List all transactions of a user in insertion order",
		object([]string{"owner_key"}, map[string]Property{
			"owner_key":    ownerProp,
			"sort_by_date": {Type: "boolean", Description: "Order by transaction date instead"},
		}),
		func(ctx context.Context, a ownerArgs) (any, error) {
			var opts []ledger.ListOption
			if a.SortByDate {
				opts = append(opts, ledger.SortByDate())
			}
			return deps.Ledger.ListByOwner(ctx, a.OwnerKey, opts...)
		})

	register(r, "get_monthly_summary", "Get income, expenses and per-category totals for a month",
		object([]string{"owner_key", "month"}, map[string]Property{
			"owner_key": ownerProp,
			"month":     {Type: "integer", Description: "The month number (1-12)"},
			"year":      {Type: "integer", Description: "The year; defaults to the current year"},
		}),
		func(ctx context.Context, a summaryArgs) (any, error) {
			year := a.Year
			if year == 0 {
				year = r.now().Year()
			}
			period, err := core.NewPeriod(a.Month, year)
			if err != nil {
				return nil, err
			}
			return deps.Ledger.MonthlySummary(ctx, a.OwnerKey, period)
		})

	register(r, "get_spending_by_category", "Get the all-time expense total for one category",
		object([]string{"owner_key", "category"}, map[string]Property{
			"owner_key": ownerProp,
			"category":  {Type: "string", Description: "Category label"},
		}),
		func(ctx context.Context, a categoryArgs) (any, error) {
			total, err := deps.Ledger.SpendingByCategory(ctx, a.OwnerKey, a.Category)
			if err != nil {
				return nil, err
			}
			return CategorySpending{Category: a.Category, Total: total, Currency: deps.Ledger.BaseCurrency()}, nil
		})

	register(r, "get_exchange_rate", "Get the exchange rate between two currencies",
		object([]string{"base_currency", "target_currency"}, map[string]Property{
			"base_currency":   {Type: "string", Description: "The base currency code (e.g., USD)"},
			"target_currency": {Type: "string", Description: "The target currency code (e.g., EUR)"},
		}),
		func(ctx context.Context, a rateArgs) (any, error) {
			c, err := rates.Convert(ctx, deps.Rates, decimal.NewFromInt(1), a.BaseCurrency, a.TargetCurrency)
			if err != nil {
				return nil, err
			}
			return RateQuote{Base: c.From, Target: c.To, Rate: c.Rate}, nil
		})

	register(r, "convert_currency", "Convert an amount from one currency to another",
		object([]string{"amount", "from_currency", "to_currency"}, map[string]Property{
			"amount":        amountProp,
			"from_currency": currencyProp,
			"to_currency":   currencyProp,
		}),
		func(ctx context.Context, a convertArgs) (any, error) {
			return rates.Convert(ctx, deps.Rates, a.Amount, a.FromCurrency, a.ToCurrency)
		})

	register(r, "get_crypto_price", "Get the current price of a cryptocurrency",
		object([]string{"crypto_symbol"}, map[string]Property{
			"crypto_symbol": {Type: "string", Description: "The cryptocurrency symbol (e.g., BTC, ETH)"},
		}),
		func(ctx context.Context, a cryptoArgs) (any, error) {
			if deps.Crypto == nil {
				return nil, &core.ConversionError{From: a.Symbol, To: "USD", Reason: rates.ErrNotSupported}
			}
			if a.Symbol == "" {
				return nil, core.NewValidationError("crypto_symbol", "must not be empty")
			}
			return deps.Crypto.Price(ctx, a.Symbol)
		})

	register(r, "set_budget", "Set a spending limit for a category",
		object([]string{"owner_key", "category", "amount"}, map[string]Property{
			"owner_key": ownerProp,
			"category":  {Type: "string", Description: "Category the limit applies to"},
			"amount":    amountProp,
			"currency":  {Type: "string", Description: "Currency of amount; defaults to the base currency"},
			"period":    {Type: "string", Description: "Budget window", Enum: []string{string(core.Monthly), string(core.Yearly)}},
		}),
		func(ctx context.Context, a budget.SetRequest) (any, error) {
			return deps.Budgets.Set(ctx, a)
		})

	register(r, "get_budget_status", "Report spending against each budget of a user",
		object([]string{"owner_key"}, map[string]Property{
			"owner_key": ownerProp,
			"as_of":     {Type: "string", Description: "Date in YYYY-MM-DD; defaults to today"},
		}),
		func(ctx context.Context, a budgetStatusArgs) (any, error) {
			return deps.Budgets.Status(ctx, a.OwnerKey, a.AsOf)
		})

	return r
}

// WithClock overrides the clock used for defaulted years.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}
