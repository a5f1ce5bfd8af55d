package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const binanceURL = "https://api.binance.com"

// Binance prices crypto assets from the public ticker endpoint. USD is
// quoted through USDT.
type Binance struct {
	baseURL    string
	httpClient *http.Client
}

func NewBinance(baseURL string, timeout time.Duration) *Binance {
	if baseURL == "" {
		baseURL = binanceURL
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Binance{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type tickerResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

func quoteSymbol(code string) string {
	if code == "USD" {
		return "USDT"
	}
	return code
}

// Rate prices from in units of to. When from is a fiat code and to is an
// asset the single ticker is inverted.
func (b *Binance) Rate(ctx context.Context, from, to string) Result {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if samePair(from, to) {
		return Available(decimal.NewFromInt(1))
	}

	if isFiat(from) && !isFiat(to) {
		price, err := b.ticker(ctx, to+quoteSymbol(from))
		if err != nil {
			return Unavailable(err)
		}
		if !price.IsPositive() {
			return Unavailable(ErrInvalidRate)
		}
		return Available(decimal.NewFromInt(1).Div(price))
	}

	price, err := b.ticker(ctx, from+quoteSymbol(to))
	if err != nil {
		return Unavailable(err)
	}
	return Available(price)
}

// CryptoPrice holds an asset's USD price and, when Binance lists the pair,
// its EUR price.
type CryptoPrice struct {
	Symbol string              `json:"symbol"`
	USD    decimal.Decimal     `json:"usd"`
	EUR    decimal.NullDecimal `json:"eur"`
}

// Price fetches USD and EUR quotes. A missing USD quote is an error; a
// missing EUR pair leaves EUR invalid.
func (b *Binance) Price(ctx context.Context, symbol string) (CryptoPrice, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return CryptoPrice{}, fmt.Errorf("empty symbol")
	}

	usd, err := b.ticker(ctx, symbol+"USDT")
	if err != nil {
		return CryptoPrice{}, Unavailable(err).Err(symbol, "USD")
	}
	out := CryptoPrice{Symbol: symbol, USD: usd}

	if eur, err := b.ticker(ctx, symbol+"EUR"); err == nil {
		out.EUR = decimal.NewNullDecimal(eur)
	}
	return out, nil
}

func (b *Binance) ticker(ctx context.Context, pair string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", b.baseURL, url.QueryEscape(pair))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("API error: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var t tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return decimal.Zero, fmt.Errorf("decode ticker: %w", err)
	}
	return t.Price, nil
}
