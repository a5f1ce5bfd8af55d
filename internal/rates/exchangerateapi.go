package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	exchangeRateKeyedURL  = "https://v6.exchangerate-api.com"
	exchangeRateOpenURL   = "https://api.exchangerate-api.com"
	defaultRequestTimeout = 10 * time.Second
)

// ExchangeRateAPI queries exchangerate-api.com. With an API key it uses the
// v6 pair endpoint, otherwise the open v4 latest-rates endpoint.
type ExchangeRateAPI struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewExchangeRateAPI builds a client. An empty baseURL selects the public
// host matching the key mode.
func NewExchangeRateAPI(baseURL, apiKey string, timeout time.Duration) *ExchangeRateAPI {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if baseURL == "" {
		baseURL = exchangeRateOpenURL
		if apiKey != "" {
			baseURL = exchangeRateKeyedURL
		}
	}
	return &ExchangeRateAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type pairResponse struct {
	Result         string           `json:"result"`
	ErrorType      string           `json:"error-type"`
	ConversionRate *decimal.Decimal `json:"conversion_rate"`
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Rate issues exactly one request. Identical codes short-circuit to 1.
func (c *ExchangeRateAPI) Rate(ctx context.Context, from, to string) Result {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if samePair(from, to) {
		return Available(decimal.NewFromInt(1))
	}
	if c.apiKey != "" {
		return c.pair(ctx, from, to)
	}
	return c.latest(ctx, from, to)
}

func (c *ExchangeRateAPI) pair(ctx context.Context, from, to string) Result {
	endpoint := fmt.Sprintf("%s/v6/%s/pair/%s/%s", c.baseURL,
		url.PathEscape(c.apiKey), url.PathEscape(from), url.PathEscape(to))

	var body pairResponse
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return Unavailable(err)
	}
	if body.Result != "" && body.Result != "success" {
		return Unavailable(fmt.Errorf("exchangerate-api: %s", body.ErrorType))
	}
	if body.ConversionRate == nil {
		return Unavailable(ErrNoRate)
	}
	return Available(*body.ConversionRate)
}

func (c *ExchangeRateAPI) latest(ctx context.Context, from, to string) Result {
	endpoint := fmt.Sprintf("%s/v4/latest/%s", c.baseURL, url.PathEscape(from))

	var body latestResponse
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return Unavailable(err)
	}
	rate, ok := body.Rates[to]
	if !ok {
		return Unavailable(ErrNoRate)
	}
	return Available(rate)
}

func (c *ExchangeRateAPI) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return redactURL("build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return redactURL("exchangerate-api request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API error: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// redactURL drops the request URL from err. The v6 path carries the API key.
func redactURL(msg string, err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", msg, uerr.Err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
