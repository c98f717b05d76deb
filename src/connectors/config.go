package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ExchangeBaseURL string `envconfig:"EXCHANGE_BASE_URL" default:"https://testnet-api.exchange.example"`

	// How long a streamed price stays usable as a fallback quote.
	PriceCacheMaxAge time.Duration `envconfig:"PRICE_CACHE_MAX_AGE" default:"5m"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
