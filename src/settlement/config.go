package settlement

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Taker fee rate applied to every close.
	FeeRate float64 `envconfig:"SETTLEMENT_FEE_RATE" default:"0.001"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
