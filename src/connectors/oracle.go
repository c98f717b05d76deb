package connectors

import (
	"net/http"
	"strings"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	logger "github.com/sirupsen/logrus"

	"tradeledger/src/pricing"
)

// Oracle is the best-effort live price source backed by the public spot
// ticker API. Symbols it cannot quote are simply absent from the result;
// callers fall back to last-known prices.
type Oracle struct {
	api goex.API
	log *logger.Entry
}

func NewOracle() *Oracle {
	apiConfig := &goex.APIConfig{
		HttpClient: &http.Client{Timeout: 10 * time.Second},
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}

	return &Oracle{
		api: binance.NewWithConfig(apiConfig),
		log: logger.WithField("component", "PriceOracle"),
	}
}

// NewOracleWithAPI allows injecting a different goex implementation,
// used by tests.
func NewOracleWithAPI(api goex.API) *Oracle {
	return &Oracle{
		api: api,
		log: logger.WithField("component", "PriceOracle"),
	}
}

// GetPrices returns current prices keyed by quote-qualified symbol.
// Best effort: individual ticker failures are logged and skipped.
func (o *Oracle) GetPrices(symbols []string) map[string]float64 {
	prices := make(map[string]float64, len(symbols))

	for _, symbol := range symbols {
		qualified := pricing.NormalizeSymbol(symbol)
		base := pricing.BaseSymbol(qualified)
		if base == "" {
			continue
		}

		pair := goex.NewCurrencyPair(
			goex.Currency{Symbol: strings.ToUpper(base)},
			goex.Currency{Symbol: pricing.QuoteAsset},
		)

		ticker, err := o.api.GetTicker(pair)
		if err != nil {
			o.log.WithError(err).
				WithField("symbol", qualified).
				Warn("ticker fetch failed, skipping symbol")
			continue
		}

		if ticker == nil || ticker.Last <= 0 {
			o.log.WithField("symbol", qualified).
				Warn("ticker returned no usable price")
			continue
		}

		prices[qualified] = ticker.Last
	}

	return prices
}
