package portfolio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tradeledger/src/model"
	"tradeledger/src/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.TradingModel{},
		&model.Position{},
		&model.Trade{},
		&model.EquityPoint{},
	))

	return db
}

func newTestEngine(db *gorm.DB, oracle priceOracle) *Engine {
	stores := Stores{
		Models:    repository.NewModelRepositoryWithDB(db),
		Positions: repository.NewPositionRepositoryWithDB(db),
		Trades:    repository.NewTradeRepositoryWithDB(db),
		Equity:    repository.NewEquityRepositoryWithDB(db),
	}

	config := Config{DefaultSymbols: "BTCUSDT", EquityPoints: 24}

	return NewEngine(nil, config, stores, PriceSources{Oracle: oracle})
}

type stubOracle struct {
	prices map[string]float64
}

func (s stubOracle) GetPrices(_ []string) map[string]float64 {
	return s.prices
}

func floatPtr(v float64) *float64 { return &v }

func TestGetPortfolioValuesLongPosition(t *testing.T) {
	db := newTestDB(t)

	m := model.TradingModel{
		Name:           "alpha",
		Mode:           model.ModelModeVirtual,
		Leverage:       10,
		InitialCapital: 10000,
	}
	require.NoError(t, db.Create(&m).Error)

	require.NoError(t, db.Create(&model.Position{
		ModelID:  m.ID,
		Symbol:   "BTCUSDT",
		Side:     model.PositionSideLong,
		Quantity: 1,
		AvgPrice: 100,
		Leverage: 10,
	}).Error)

	engine := newTestEngine(db, stubOracle{prices: map[string]float64{"BTCUSDT": 120}})

	snapshot, err := engine.GetPortfolio(context.Background(), m.ID)
	require.NoError(t, err)

	require.InDelta(t, 20.0, snapshot.UnrealizedPnl, 1e-9)
	require.InDelta(t, 10.0, snapshot.MarginUsed, 1e-9) // 1*100/10 fallback
	require.InDelta(t, 9990.0, snapshot.Cash, 1e-9)
	require.InDelta(t, 10020.0, snapshot.TotalValue, 1e-9)
	require.InDelta(t, 100.0, snapshot.PositionsValue, 1e-9)

	require.Len(t, snapshot.Positions, 1)
	view := snapshot.Positions[0]
	require.Equal(t, 120.0, view.CurrentPrice)
	require.False(t, view.PriceStale)
}

func TestGetPortfolioShortPosition(t *testing.T) {
	db := newTestDB(t)

	m := model.TradingModel{Name: "short", Leverage: 5, InitialCapital: 5000}
	require.NoError(t, db.Create(&m).Error)

	require.NoError(t, db.Create(&model.Position{
		ModelID:  m.ID,
		Symbol:   "ETHUSDT",
		Side:     model.PositionSideShort,
		Quantity: 2,
		AvgPrice: 2000,
		Leverage: 5,
	}).Error)

	engine := newTestEngine(db, stubOracle{prices: map[string]float64{"ETHUSDT": 1900}})

	snapshot, err := engine.GetPortfolio(context.Background(), m.ID)
	require.NoError(t, err)

	// Short profits when the mark drops: (2000-1900)*2.
	require.InDelta(t, 200.0, snapshot.UnrealizedPnl, 1e-9)
	require.InDelta(t, 800.0, snapshot.MarginUsed, 1e-9) // 2*2000/5
}

func TestGetPortfolioPriceFallbackToStoredValue(t *testing.T) {
	db := newTestDB(t)

	m := model.TradingModel{Name: "stale", Leverage: 10, InitialCapital: 1000}
	require.NoError(t, db.Create(&m).Error)

	require.NoError(t, db.Create(&model.Position{
		ModelID:          m.ID,
		Symbol:           "DOGEUSDT",
		Side:             model.PositionSideLong,
		Quantity:         100,
		AvgPrice:         0.1,
		Leverage:         10,
		UnrealizedProfit: 5,
	}).Error)

	// No price source can quote DOGEUSDT.
	engine := newTestEngine(db, stubOracle{prices: map[string]float64{}})

	snapshot, err := engine.GetPortfolio(context.Background(), m.ID)
	require.NoError(t, err)

	require.Len(t, snapshot.Positions, 1)
	view := snapshot.Positions[0]
	require.True(t, view.PriceStale)
	require.Equal(t, 0.0, view.CurrentPrice)
	require.InDelta(t, 5.0, view.UnrealizedPnl, 1e-9)
	require.InDelta(t, 5.0, snapshot.UnrealizedPnl, 1e-9)
}

func TestGetPortfolioHonorsStoredZeroMargin(t *testing.T) {
	db := newTestDB(t)

	m := model.TradingModel{Name: "zero-margin", Leverage: 10, InitialCapital: 1000}
	require.NoError(t, db.Create(&m).Error)

	require.NoError(t, db.Create(&model.Position{
		ModelID:       m.ID,
		Symbol:        "BTCUSDT",
		Side:          model.PositionSideLong,
		Quantity:      1,
		AvgPrice:      100,
		Leverage:      10,
		InitialMargin: floatPtr(0),
	}).Error)

	engine := newTestEngine(db, stubOracle{prices: map[string]float64{"BTCUSDT": 100}})

	snapshot, err := engine.GetPortfolio(context.Background(), m.ID)
	require.NoError(t, err)

	// Stored 0 is a real value, not a trigger for the fallback formula.
	require.InDelta(t, 0.0, snapshot.MarginUsed, 1e-9)
	require.InDelta(t, 1000.0, snapshot.Cash, 1e-9)
}

func TestGetPortfolioIncludesRealizedPnl(t *testing.T) {
	db := newTestDB(t)

	m := model.TradingModel{Name: "realized", Leverage: 10, InitialCapital: 10000}
	require.NoError(t, db.Create(&m).Error)

	for _, pnl := range []float64{120.5, -20.5} {
		require.NoError(t, db.Create(&model.Trade{
			ModelID:  m.ID,
			Symbol:   "BTCUSDT",
			Signal:   model.SignalCloseLong,
			Side:     model.TradeSideSell,
			Quantity: 1,
			Price:    100,
			Pnl:      pnl,
		}).Error)
	}

	engine := newTestEngine(db, stubOracle{prices: map[string]float64{}})

	snapshot, err := engine.GetPortfolio(context.Background(), m.ID)
	require.NoError(t, err)

	require.InDelta(t, 100.0, snapshot.RealizedPnl, 1e-9)
	require.InDelta(t, 10100.0, snapshot.Cash, 1e-9)
	require.InDelta(t, 10100.0, snapshot.TotalValue, 1e-9)
}

func TestGetPortfolioModelNotFound(t *testing.T) {
	db := newTestDB(t)

	engine := newTestEngine(db, stubOracle{})

	snapshot, err := engine.GetPortfolio(context.Background(), 404)
	require.ErrorIs(t, err, ErrModelNotFound)
	require.Nil(t, snapshot)
}

func TestGetPortfolioCarriesEquityCurve(t *testing.T) {
	db := newTestDB(t)

	m := model.TradingModel{Name: "equity", Leverage: 10, InitialCapital: 1000}
	require.NoError(t, db.Create(&m).Error)

	base := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&model.EquityPoint{
			ModelID:    m.ID,
			TotalValue: 1000 + float64(i),
			Cash:       1000,
			SampledAt:  base.Add(time.Duration(i) * time.Hour),
		}).Error)
	}

	engine := newTestEngine(db, stubOracle{})

	snapshot, err := engine.GetPortfolio(context.Background(), m.ID)
	require.NoError(t, err)

	require.Len(t, snapshot.Equity, 3)
	// Chronological order, oldest first.
	require.True(t, snapshot.Equity[0].SampledAt.Before(snapshot.Equity[2].SampledAt))
}

func TestGetAggregatedPortfolioMergesSameSidePositions(t *testing.T) {
	db := newTestDB(t)

	m1 := model.TradingModel{Name: "agg-one", Leverage: 10, InitialCapital: 10000}
	m2 := model.TradingModel{Name: "agg-two", Leverage: 10, InitialCapital: 5000}
	require.NoError(t, db.Create(&m1).Error)
	require.NoError(t, db.Create(&m2).Error)

	require.NoError(t, db.Create(&model.Position{
		ModelID: m1.ID, Symbol: "BTCUSDT", Side: model.PositionSideLong,
		Quantity: 1, AvgPrice: 100, Leverage: 10,
	}).Error)
	require.NoError(t, db.Create(&model.Position{
		ModelID: m2.ID, Symbol: "BTCUSDT", Side: model.PositionSideLong,
		Quantity: 1, AvgPrice: 120, Leverage: 10,
	}).Error)

	engine := newTestEngine(db, stubOracle{prices: map[string]float64{"BTCUSDT": 130}})

	snapshot, err := engine.GetAggregatedPortfolio(context.Background())
	require.NoError(t, err)

	require.InDelta(t, 15000.0, snapshot.InitialCapital, 1e-9)
	// (130-100)*1 + (130-120)*1
	require.InDelta(t, 40.0, snapshot.UnrealizedPnl, 1e-9)

	require.Len(t, snapshot.Positions, 1)
	view := snapshot.Positions[0]
	require.InDelta(t, 2.0, view.Quantity, 1e-9)
	require.InDelta(t, 110.0, view.AvgPrice, 1e-9) // quantity-weighted entry
	require.InDelta(t, 130.0, view.CurrentPrice, 1e-9)
	require.InDelta(t, 40.0, view.UnrealizedPnl, 1e-9)
}

func TestGetAggregatedPortfolioKeepsSidesApart(t *testing.T) {
	db := newTestDB(t)

	m1 := model.TradingModel{Name: "sides-long", Leverage: 10, InitialCapital: 1000}
	m2 := model.TradingModel{Name: "sides-short", Leverage: 10, InitialCapital: 1000}
	require.NoError(t, db.Create(&m1).Error)
	require.NoError(t, db.Create(&m2).Error)

	require.NoError(t, db.Create(&model.Position{
		ModelID: m1.ID, Symbol: "ETHUSDT", Side: model.PositionSideLong,
		Quantity: 1, AvgPrice: 2000, Leverage: 10,
	}).Error)
	require.NoError(t, db.Create(&model.Position{
		ModelID: m2.ID, Symbol: "ETHUSDT", Side: model.PositionSideShort,
		Quantity: 1, AvgPrice: 2000, Leverage: 10,
	}).Error)

	engine := newTestEngine(db, stubOracle{prices: map[string]float64{"ETHUSDT": 2100}})

	snapshot, err := engine.GetAggregatedPortfolio(context.Background())
	require.NoError(t, err)

	// A long and a short in the same symbol never net against each other.
	require.Len(t, snapshot.Positions, 2)
	require.InDelta(t, 0.0, snapshot.UnrealizedPnl, 1e-9)
}
