package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxledger/internal/budget"
	"fxledger/internal/core"
	"fxledger/internal/ledger"
	"fxledger/internal/rates"
	"fxledger/internal/storage"
)

type fakeCrypto struct{}

func (fakeCrypto) Price(_ context.Context, symbol string) (rates.CryptoPrice, error) {
	if symbol != "btc" {
		return rates.CryptoPrice{}, &core.ConversionError{From: symbol, To: "USD", Reason: errors.New("unknown")}
	}
	return rates.CryptoPrice{Symbol: "BTC", USD: decimal.NewFromInt(60000)}, nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	static, err := rates.ParseStatic("EUR:USD=1.08")
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	l, err := ledger.NewService(store, static, "USD")
	require.NoError(t, err)

	r := New(Deps{
		Ledger:  l,
		Budgets: budget.NewService(store, l),
		Rates:   static,
		Crypto:  fakeCrypto{},
	})
	return r.WithClock(func() time.Time { return time.Date(2024, time.March, 28, 0, 0, 0, 0, time.UTC) })
}

func invoke(t *testing.T, r *Registry, name, args string) any {
	t.Helper()
	out, err := r.Invoke(context.Background(), name, json.RawMessage(args))
	require.NoError(t, err, name)
	return out
}

func TestToolsListed(t *testing.T) {
	r := newTestRegistry(t)
	var names []string
	for _, tool := range r.Tools() {
		names = append(names, tool.Name)
		assert.Equal(t, "object", tool.Parameters.Type)
		assert.NotEmpty(t, tool.Description)
		for _, req := range tool.Parameters.Required {
			assert.Contains(t, tool.Parameters.Properties, req, "%s requires undeclared %s", tool.Name, req)
		}
	}
	assert.Equal(t, []string{
		"record_transaction", "list_transactions", "get_monthly_summary", "get_spending_by_category",
		"get_exchange_rate", "convert_currency", "get_crypto_price", "set_budget", "get_budget_status",
	}, names)

	raw, err := json.Marshal(r.Tools()[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"parameters":{"type":"object"`)
}

func TestRecordAndSummarizeThroughTools(t *testing.T) {
	r := newTestRegistry(t)

	out := invoke(t, r, "record_transaction",
		`{"owner_key":"u1","amount":50,"currency":"EUR","category":"food","kind":"expense","date":"2024-03-15"}`)
	tx := out.(core.Transaction)
	assert.True(t, tx.BaseAmount.Equal(decimal.NewFromInt(54)))

	invoke(t, r, "record_transaction", `{"owner_key":"u1","amount":"2500","category":"salary","kind":"income","date":"2024-03-01"}`)

	summary := invoke(t, r, "get_monthly_summary", `{"owner_key":"u1","month":3}`).(core.MonthlySummary)
	assert.Equal(t, 2024, summary.Year)
	assert.True(t, summary.Net.Equal(decimal.NewFromInt(2446)))
	assert.ElementsMatch(t, []string{"EUR", "USD"}, summary.CurrenciesUsed)

	spending := invoke(t, r, "get_spending_by_category", `{"owner_key":"u1","category":"food"}`).(CategorySpending)
	assert.True(t, spending.Total.Equal(decimal.NewFromInt(54)))
	assert.Equal(t, "USD", spending.Currency)

	rows := invoke(t, r, "list_transactions", `{"owner_key":"u1","sort_by_date":true}`).([]core.Transaction)
	require.Len(t, rows, 2)
	assert.Equal(t, "salary", rows[0].Category)
}

func TestRateTools(t *testing.T) {
	r := newTestRegistry(t)

	quote := invoke(t, r, "get_exchange_rate", `{"base_currency":"usd","target_currency":"eur"}`).(RateQuote)
	assert.Equal(t, "USD", quote.Base)
	assert.True(t, quote.Rate.Mul(decimal.RequireFromString("1.08")).Sub(decimal.NewFromInt(1)).Abs().LessThan(decimal.New(1, -9)))

	conv := invoke(t, r, "convert_currency", `{"amount":100,"from_currency":"EUR","to_currency":"USD"}`).(rates.Conversion)
	assert.True(t, conv.Converted.Equal(decimal.NewFromInt(108)))

	price := invoke(t, r, "get_crypto_price", `{"crypto_symbol":"btc"}`).(rates.CryptoPrice)
	assert.True(t, price.USD.Equal(decimal.NewFromInt(60000)))

	_, err := r.Invoke(context.Background(), "get_exchange_rate", json.RawMessage(`{"base_currency":"JPY","target_currency":"USD"}`))
	assert.ErrorIs(t, err, core.ErrConversionUnavailable)
}

func TestBudgetTools(t *testing.T) {
	r := newTestRegistry(t)
	invoke(t, r, "set_budget", `{"owner_key":"u1","category":"food","amount":100,"currency":"EUR"}`)
	invoke(t, r, "record_transaction", `{"owner_key":"u1","amount":100,"category":"food","kind":"expense","date":"2024-03-10"}`)

	statuses := invoke(t, r, "get_budget_status", `{"owner_key":"u1","as_of":"2024-03-20"}`).([]budget.Status)
	require.Len(t, statuses, 1)
	assert.Equal(t, budget.StateApproaching, statuses[0].State)
}

func TestInvokeErrors(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Invoke(ctx, "delete_everything", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)

	_, err = r.Invoke(ctx, "record_transaction", json.RawMessage(`{"amount":`))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = r.Invoke(ctx, "record_transaction", json.RawMessage(`{"owner_key":"u1","amount":5,"category":"x","kind":"gift"}`))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = r.Invoke(ctx, "get_monthly_summary", json.RawMessage(`{"owner_key":"u1","month":13}`))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = r.Invoke(ctx, "list_transactions", nil)
	assert.ErrorIs(t, err, core.ErrValidation)
}
