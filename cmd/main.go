package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tradeledger/src/connectors"
	"tradeledger/src/database"
	"tradeledger/src/executors"
	"tradeledger/src/portfolio"
	"tradeledger/src/repository"
	"tradeledger/src/server"
	"tradeledger/src/settlement"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Tradeledger CMD"
	app.Usage = "The tradeledger command line interface"

	app.Commands = []cli.Command{
		serverCMD,
		closeCMD,
		portfolioCMD,
		sampleCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serverCMD = cli.Command{
		Name:        "server",
		Usage:       "run the HTTP API server",
		Action:      serverAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the portfolio/settlement API server`,
	}
	closeCMD = cli.Command{
		Name:      "close",
		Usage:     "close one open position",
		Action:    closeAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.UintFlag{Name: "model", Usage: "trading model id", Required: true},
			cli.StringFlag{Name: "symbol", Usage: "symbol to close, e.g. BTCUSDT", Required: true},
		},
		Description: `Settle the open position for (model, symbol) and print the result`,
	}
	sampleCMD = cli.Command{
		Name:        "sample_equity",
		Usage:       "append one equity point per model",
		Action:      sampleAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Valuate every model once and append equity-curve samples`,
	}
	portfolioCMD = cli.Command{
		Name:      "portfolio",
		Usage:     "print a portfolio snapshot",
		Action:    portfolioAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.UintFlag{Name: "model", Usage: "trading model id, 0 for the aggregate", Value: 0},
		},
		Description: `Print the valuation snapshot for one model, or the cross-model rollup`,
	}
)

func serverAction(_ *cli.Context) error {

	logrus.Info("Starting server CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.InitMarketDataDB(); err != nil {
		logrus.WithError(err).Warn("Market-data database unavailable, last-known prices disabled")
	}

	connectorsConfig := connectors.GetConfig()
	portfolioConfig := portfolio.GetConfig()

	cache := connectors.NewPriceCache(connectorsConfig.PriceCacheMaxAge)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := connectors.NewTickerStream(strings.Split(portfolioConfig.DefaultSymbols, ","), cache)
	go stream.Run(ctx)

	engine := buildEngine(portfolioConfig, cache)
	workflow := buildWorkflow(connectorsConfig)

	go func() {
		if err := executors.StartEquitySampler(ctx, engine, repository.NewModelRepository(), repository.NewEquityRepository()); err != nil {
			logrus.WithError(err).Error("Equity sampler stopped")
		}
	}()

	server.StartServer(server.GetConfig().Port, engine, workflow)

	return nil
}

func closeAction(c *cli.Context) error {

	logrus.Info("Starting close CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	workflow := buildWorkflow(connectors.GetConfig())

	result, err := workflow.ClosePosition(context.Background(), uint(c.Uint("model")), c.String("symbol"))
	if err != nil {
		logrus.WithError(err).Error("Close failed")
		return err
	}

	return printJSON(result)
}

func sampleAction(_ *cli.Context) error {

	logrus.Info("Starting equity sample CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.InitMarketDataDB(); err != nil {
		logrus.WithError(err).Warn("Market-data database unavailable, last-known prices disabled")
	}

	connectorsConfig := connectors.GetConfig()
	engine := buildEngine(portfolio.GetConfig(), connectors.NewPriceCache(connectorsConfig.PriceCacheMaxAge))

	executors.SampleOnce(context.Background(), engine, repository.NewModelRepository(), repository.NewEquityRepository())

	return nil
}

func portfolioAction(c *cli.Context) error {

	logrus.Info("Starting portfolio CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.InitMarketDataDB(); err != nil {
		logrus.WithError(err).Warn("Market-data database unavailable, last-known prices disabled")
	}

	connectorsConfig := connectors.GetConfig()
	engine := buildEngine(portfolio.GetConfig(), connectors.NewPriceCache(connectorsConfig.PriceCacheMaxAge))

	modelID := uint(c.Uint("model"))
	if modelID == 0 {
		snapshot, err := engine.GetAggregatedPortfolio(context.Background())
		if err != nil {
			return err
		}
		return printJSON(snapshot)
	}

	snapshot, err := engine.GetPortfolio(context.Background(), modelID)
	if err != nil {
		return err
	}
	return printJSON(snapshot)
}

func buildEngine(config portfolio.Config, cache *connectors.PriceCache) *portfolio.Engine {
	stores := portfolio.Stores{
		Models:    repository.NewModelRepository(),
		Positions: repository.NewPositionRepository(),
		Trades:    repository.NewTradeRepository(),
		Equity:    repository.NewEquityRepository(),
	}

	prices := portfolio.PriceSources{
		Oracle: connectors.NewOracle(),
		Cache:  cache,
	}
	if database.MarketDataDB != nil {
		prices.LastKnown = repository.NewLastPriceRepository()
	}

	return portfolio.NewEngine(
		logrus.WithField("component", "PortfolioEngine"),
		config,
		stores,
		prices,
	)
}

func buildWorkflow(config connectors.Config) *settlement.Workflow {
	return settlement.NewWorkflow(
		logrus.WithField("component", "SettlementWorkflow"),
		settlement.GetConfig(),
		database.MainDB,
		repository.NewModelRepository(),
		settlement.NewClientProvider(connectors.NewProvider(config.ExchangeBaseURL)),
	)
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
