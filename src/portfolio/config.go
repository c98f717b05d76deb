package portfolio

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Symbols every dashboard shows even when the model holds nothing.
	DefaultSymbols string `envconfig:"PORTFOLIO_DEFAULT_SYMBOLS" default:"BTCUSDT,ETHUSDT,SOLUSDT,BNBUSDT,XRPUSDT,DOGEUSDT"`
	// How many equity-curve samples a snapshot carries.
	EquityPoints int `envconfig:"PORTFOLIO_EQUITY_POINTS" default:"168"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
