package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxledger/internal/core"
)

func TestExchangeRateAPIPairEndpoint(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/v6/secret/pair/EUR/USD", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"success","base_code":"EUR","target_code":"USD","conversion_rate":1.08}`))
	}))
	defer srv.Close()

	api := NewExchangeRateAPI(srv.URL, "secret", time.Second)
	res := api.Rate(context.Background(), "eur", "usd")

	rate, ok := res.Value()
	require.True(t, ok, "reason: %v", res.Reason())
	assert.True(t, rate.Equal(decimal.RequireFromString("1.08")))
	assert.Equal(t, int32(1), hits.Load())
}

func TestExchangeRateAPIPairErrorResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"error","error-type":"unsupported-code"}`))
	}))
	defer srv.Close()

	res := NewExchangeRateAPI(srv.URL, "secret", time.Second).Rate(context.Background(), "EUR", "ZZZ")
	assert.False(t, res.OK())
	assert.ErrorContains(t, res.Reason(), "unsupported-code")
	assert.ErrorIs(t, res.Err("EUR", "ZZZ"), core.ErrConversionUnavailable)
}

func TestExchangeRateAPILatestEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/latest/GBP", r.URL.Path)
		_, _ = w.Write([]byte(`{"base":"GBP","rates":{"USD":1.27,"EUR":1.17}}`))
	}))
	defer srv.Close()

	api := NewExchangeRateAPI(srv.URL, "", time.Second)

	res := api.Rate(context.Background(), "GBP", "USD")
	rate, ok := res.Value()
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.RequireFromString("1.27")))

	missing := api.Rate(context.Background(), "GBP", "JPY")
	assert.False(t, missing.OK())
	assert.ErrorIs(t, missing.Reason(), ErrNoRate)
}

func TestExchangeRateAPIFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"server error", http.StatusInternalServerError, `oops`, "500"},
		{"bad json", http.StatusOK, `{not json`, "decode response"},
		{"zero rate", http.StatusOK, `{"rates":{"USD":0}}`, "not positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			res := NewExchangeRateAPI(srv.URL, "", time.Second).Rate(context.Background(), "EUR", "USD")
			assert.False(t, res.OK())
			assert.ErrorContains(t, res.Reason(), tt.message)
		})
	}
}

func TestExchangeRateAPIUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	res := NewExchangeRateAPI(srv.URL, "", time.Second).Rate(context.Background(), "EUR", "USD")
	assert.False(t, res.OK())
	assert.Error(t, res.Reason())
}

func TestExchangeRateAPITransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	const key = "SUPERSECRETKEY"
	res := NewExchangeRateAPI(srv.URL, key, time.Second).Rate(context.Background(), "EUR", "USD")
	require.False(t, res.OK())

	err := res.Err("EUR", "USD")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConversionUnavailable)
	assert.NotContains(t, err.Error(), key)
	assert.NotContains(t, err.Error(), "/v6/")
	assert.Contains(t, err.Error(), "exchangerate-api request failed")
}

func TestExchangeRateAPISameCurrencySkipsNetwork(t *testing.T) {
	api := NewExchangeRateAPI("http://127.0.0.1:1", "", time.Second)
	rate, ok := api.Rate(context.Background(), "USD", "usd").Value()
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}
