package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxledger/internal/core"
)

func binanceServer(t *testing.T, prices map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		symbol := r.URL.Query().Get("symbol")
		price, ok := prices[symbol]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
			return
		}
		_, _ = w.Write([]byte(`{"symbol":"` + symbol + `","price":"` + price + `"}`))
	}))
}

func TestBinanceRate(t *testing.T) {
	srv := binanceServer(t, map[string]string{"BTCUSDT": "60000.00000000"})
	defer srv.Close()
	b := NewBinance(srv.URL, time.Second)

	rate, ok := b.Rate(context.Background(), "btc", "USD").Value()
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(60000)))

	inverse, ok := b.Rate(context.Background(), "USD", "BTC").Value()
	require.True(t, ok)
	assert.True(t, inverse.Mul(decimal.NewFromInt(60000)).Sub(decimal.NewFromInt(1)).Abs().LessThan(decimal.New(1, -9)))

	res := b.Rate(context.Background(), "DOGE", "USD")
	assert.False(t, res.OK())
	assert.ErrorContains(t, res.Reason(), "Invalid symbol")
}

func TestBinancePrice(t *testing.T) {
	srv := binanceServer(t, map[string]string{
		"ETHUSDT": "3000.5",
		"ETHEUR":  "2760.1",
		"SOLUSDT": "150",
	})
	defer srv.Close()
	b := NewBinance(srv.URL, time.Second)

	eth, err := b.Price(context.Background(), "eth")
	require.NoError(t, err)
	assert.Equal(t, "ETH", eth.Symbol)
	assert.True(t, eth.USD.Equal(decimal.RequireFromString("3000.5")))
	require.True(t, eth.EUR.Valid)
	assert.True(t, eth.EUR.Decimal.Equal(decimal.RequireFromString("2760.1")))

	sol, err := b.Price(context.Background(), "SOL")
	require.NoError(t, err)
	assert.False(t, sol.EUR.Valid, "no EUR pair means no EUR price")

	_, err = b.Price(context.Background(), "NOPE")
	assert.ErrorIs(t, err, core.ErrConversionUnavailable)
}
