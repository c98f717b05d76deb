package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradeledger/src/connectors"
	"tradeledger/src/database"
	"tradeledger/src/executors"
	"tradeledger/src/portfolio"
	"tradeledger/src/repository"
	"tradeledger/src/server"
	"tradeledger/src/settlement"
)

var (
	PORT     = os.Getenv("SERVER_PORT")
	APP_NAME = os.Getenv("APP_NAME")
)

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	// Initialize read-only market-data database. Losing it only removes
	// one price fallback tier.
	if err := database.InitMarketDataDB(); err != nil {
		logger.WithError(err).Warn("Market-data database unavailable, last-known prices disabled")
	}

	connectorsConfig := connectors.GetConfig()
	portfolioConfig := portfolio.GetConfig()

	cache := connectors.NewPriceCache(connectorsConfig.PriceCacheMaxAge)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := connectors.NewTickerStream(strings.Split(portfolioConfig.DefaultSymbols, ","), cache)
	go stream.Run(ctx)

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

	engine := portfolio.NewEngine(
		logger.WithField("component", "PortfolioEngine"),
		portfolioConfig,
		stores,
		prices,
	)

	go func() {
		if err := executors.StartEquitySampler(ctx, engine, stores.Models, repository.NewEquityRepository()); err != nil {
			logger.WithError(err).Error("Equity sampler stopped")
		}
	}()

	workflow := settlement.NewWorkflow(
		logger.WithField("component", "SettlementWorkflow"),
		settlement.GetConfig(),
		database.MainDB,
		repository.NewModelRepository(),
		settlement.NewClientProvider(connectors.NewProvider(connectorsConfig.ExchangeBaseURL)),
	)

	if PORT == "" {
		PORT = server.GetConfig().Port
	}

	server.StartServer(PORT, engine, workflow)
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
