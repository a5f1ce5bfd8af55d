package backend

import (
	"fmt"
	"log/slog"

	"fxledger/internal/config"
	"fxledger/internal/log"
	"fxledger/internal/rates"
)

// Rates is the provider stack used by the ledger plus the crypto client
// behind the get_crypto_price tool.
type Rates struct {
	Provider rates.Provider
	Crypto   *rates.Binance
}

// NewRates routes ISO codes to the configured fiat provider and everything
// else to Binance. Each leg is instrumented.
func NewRates(cfg *config.Config) (Rates, error) {
	var fiat rates.Provider
	switch cfg.RateProvider {
	case "static":
		static, err := rates.ParseStatic(cfg.StaticRates)
		if err != nil {
			return Rates{}, fmt.Errorf("parse static rates: %w", err)
		}
		fiat = rates.NewInstrumented("static", static)
	case "http", "":
		fiat = rates.NewInstrumented("exchangerate-api",
			rates.NewExchangeRateAPI(cfg.ExchangeRateBaseURL, cfg.ExchangeRateAPIKey, cfg.RateTimeout))
	default:
		return Rates{}, fmt.Errorf("unsupported rate provider: %s", cfg.RateProvider)
	}

	crypto := rates.NewBinance(cfg.CryptoBaseURL, cfg.RateTimeout)
	slog.Info("Initialized rate providers",
		log.FieldComponent, log.ComponentBackend,
		"fiat", cfg.RateProvider,
		"keyed", cfg.ExchangeRateAPIKey != "")

	return Rates{
		Provider: &rates.Router{Fiat: fiat, Crypto: rates.NewInstrumented("binance", crypto)},
		Crypto:   crypto,
	}, nil
}
