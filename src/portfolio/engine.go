// Package portfolio reconstructs point-in-time financial snapshots of
// trading models from the stored ledgers and live market prices. It is
// strictly read-only: nothing here mutates positions or trades.
package portfolio

import (
	"context"
	"errors"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradeledger/src/model"
	"tradeledger/src/pricing"
	"tradeledger/src/risk"
)

// ErrModelNotFound is returned when the requested model does not exist.
// Callers must treat it as "no data", never as a zeroed snapshot.
var ErrModelNotFound = errors.New("trading model not found")

type modelSource interface {
	FindByID(ctx context.Context, id uint) (*model.TradingModel, error)
	FindAll(ctx context.Context) ([]model.TradingModel, error)
}

type positionSource interface {
	FindOpenByModel(ctx context.Context, modelID uint) ([]model.Position, error)
}

type tradeSource interface {
	SumPnlByModel(ctx context.Context, modelID uint) (float64, error)
}

type equitySource interface {
	FindRecentByModel(ctx context.Context, modelID uint, limit int) ([]model.EquityPoint, error)
}

type priceOracle interface {
	GetPrices(symbols []string) map[string]float64
}

type priceCache interface {
	Snapshot(symbols []string) map[string]float64
}

type lastPriceSource interface {
	FindBySymbols(ctx context.Context, symbols []string) (map[string]float64, error)
}

// Stores groups the ledger readers the engine depends on.
type Stores struct {
	Models    modelSource
	Positions positionSource
	Trades    tradeSource
	Equity    equitySource
}

// PriceSources groups the price tiers, queried in order: live oracle,
// in-process stream cache, market-data last-known table. Cache and
// LastKnown may be nil.
type PriceSources struct {
	Oracle    priceOracle
	Cache     priceCache
	LastKnown lastPriceSource
}

// PositionView is one valued position inside a snapshot.
type PositionView struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
	Leverage int     `json:"leverage"`

	// CurrentPrice is 0 when no live price was available and the stored
	// unrealized profit was used instead; PriceStale marks that case.
	CurrentPrice  float64 `json:"current_price"`
	PriceStale    bool    `json:"price_stale"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
	MarginUsed    float64 `json:"margin_used"`
}

// Snapshot is the point-in-time valuation of one model (or of the whole
// account set, in the aggregated variant).
type Snapshot struct {
	ModelID   uint   `json:"model_id"`
	ModelName string `json:"model_name"`
	Mode      string `json:"mode"`
	Leverage  int    `json:"leverage"`

	InitialCapital float64 `json:"initial_capital"`
	Cash           float64 `json:"cash"`
	TotalValue     float64 `json:"total_value"`
	PositionsValue float64 `json:"positions_value"`
	MarginUsed     float64 `json:"margin_used"`
	RealizedPnl    float64 `json:"realized_pnl"`
	UnrealizedPnl  float64 `json:"unrealized_pnl"`

	Positions []PositionView      `json:"positions"`
	Equity    []model.EquityPoint `json:"equity,omitempty"`

	// Auto-trading context for the UI.
	MaxPositions        int     `json:"max_positions"`
	AutoClosePct        float64 `json:"auto_close_pct"`
	EnableNoTradeWindow bool    `json:"enable_no_trade_window"`
	NoTradeWindowActive bool    `json:"no_trade_window_active"`
	Session             string  `json:"session"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Engine joins Positions + Trades + live prices into snapshots.
type Engine struct {
	log    *logger.Entry
	config Config
	stores Stores
	prices PriceSources
	now    func() time.Time
}

func NewEngine(log *logger.Entry, config Config, stores Stores, prices PriceSources) *Engine {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}

	return &Engine{
		log:    log,
		config: config,
		stores: stores,
		prices: prices,
		now:    time.Now,
	}
}

// GetPortfolio builds the snapshot for one model. Fails with
// ErrModelNotFound when the model does not exist; any failure returns no
// partial snapshot.
func (e *Engine) GetPortfolio(ctx context.Context, modelID uint) (*Snapshot, error) {
	m, err := e.stores.Models.FindByID(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrModelNotFound
	}

	positions, err := e.stores.Positions.FindOpenByModel(ctx, modelID)
	if err != nil {
		return nil, err
	}

	symbols := e.symbolUniverse(m, positions)
	quotes := e.collectPrices(ctx, symbols)

	realized, err := e.stores.Trades.SumPnlByModel(ctx, modelID)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		ModelID:             m.ID,
		ModelName:           m.Name,
		Mode:                m.Mode,
		Leverage:            m.Leverage,
		InitialCapital:      m.InitialCapital,
		RealizedPnl:         realized,
		Positions:           make([]PositionView, 0, len(positions)),
		MaxPositions:        m.MaxPositions,
		AutoClosePct:        m.AutoClosePct,
		EnableNoTradeWindow: m.EnableNoTradeWindow,
		GeneratedAt:         e.now(),
	}

	session, blocked := risk.Evaluate(e.now(), risk.WindowConfig{EnableNoTradeWindow: m.EnableNoTradeWindow})
	snapshot.Session = string(session)
	snapshot.NoTradeWindowActive = blocked

	for i := range positions {
		view := e.valuePosition(&positions[i], quotes)
		snapshot.UnrealizedPnl += view.UnrealizedPnl
		snapshot.MarginUsed += view.MarginUsed
		snapshot.PositionsValue += absFloat(view.Quantity) * view.AvgPrice
		snapshot.Positions = append(snapshot.Positions, view)
	}

	snapshot.Cash = m.InitialCapital + realized - snapshot.MarginUsed
	snapshot.TotalValue = m.InitialCapital + realized + snapshot.UnrealizedPnl

	equity, err := e.stores.Equity.FindRecentByModel(ctx, modelID, e.config.EquityPoints)
	if err != nil {
		return nil, err
	}
	snapshot.Equity = equity

	e.log.WithFields(map[string]interface{}{
		"model_id":       modelID,
		"positions":      len(snapshot.Positions),
		"realized_pnl":   snapshot.RealizedPnl,
		"unrealized_pnl": snapshot.UnrealizedPnl,
		"total_value":    snapshot.TotalValue,
	}).Debug("portfolio snapshot built")

	return snapshot, nil
}

// valuePosition marks one position to market, falling back to the stored
// unrealized profit when no usable price exists.
func (e *Engine) valuePosition(pos *model.Position, quotes map[string]float64) PositionView {
	view := PositionView{
		Symbol:   pos.Symbol,
		Side:     pos.Side,
		Quantity: pos.Quantity,
		AvgPrice: pos.AvgPrice,
		Leverage: pos.Leverage,
	}

	if price, ok := pricing.PriceFor(quotes, pos.Symbol); ok {
		view.CurrentPrice = price
		view.UnrealizedPnl = pricing.UnrealizedPnl(pos.Side, pos.Quantity, pos.AvgPrice, price)
	} else {
		// Surface price 0 so the UI can distinguish stale data.
		view.PriceStale = true
		view.UnrealizedPnl = pos.UnrealizedProfit
	}

	if pos.InitialMargin != nil {
		// Stored margin wins verbatim, the legitimate value 0 included.
		view.MarginUsed = *pos.InitialMargin
	} else {
		view.MarginUsed = pricing.FallbackMargin(pos.Quantity, pos.AvgPrice, pos.Leverage)
	}

	return view
}

// symbolUniverse is held symbols plus the model's tracked universe plus the
// global defaults, all quote-qualified and de-duplicated.
func (e *Engine) symbolUniverse(m *model.TradingModel, positions []model.Position) []string {
	seen := make(map[string]struct{})
	var symbols []string

	add := func(symbol string) {
		qualified := pricing.NormalizeSymbol(symbol)
		if qualified == "" {
			return
		}
		if _, ok := seen[qualified]; ok {
			return
		}
		seen[qualified] = struct{}{}
		symbols = append(symbols, qualified)
	}

	for i := range positions {
		add(positions[i].Symbol)
	}
	for _, s := range m.TrackedSymbolList() {
		add(s)
	}
	for _, s := range strings.Split(e.config.DefaultSymbols, ",") {
		add(s)
	}

	return symbols
}

// collectPrices merges the price tiers: live oracle first, then the stream
// cache, then the market-data last-known table. Later tiers only fill
// symbols the earlier ones missed.
func (e *Engine) collectPrices(ctx context.Context, symbols []string) map[string]float64 {
	quotes := make(map[string]float64, len(symbols))

	if e.prices.Oracle != nil {
		for s, p := range e.prices.Oracle.GetPrices(symbols) {
			if p > 0 {
				quotes[s] = p
			}
		}
	}

	missing := missingSymbols(symbols, quotes)
	if len(missing) > 0 && e.prices.Cache != nil {
		for s, p := range e.prices.Cache.Snapshot(missing) {
			if p > 0 {
				quotes[s] = p
			}
		}
	}

	missing = missingSymbols(symbols, quotes)
	if len(missing) > 0 && e.prices.LastKnown != nil {
		stored, err := e.prices.LastKnown.FindBySymbols(ctx, missing)
		if err != nil {
			e.log.WithError(err).Warn("last-known price lookup failed, relying on stored position values")
		} else {
			for s, p := range stored {
				if p > 0 {
					quotes[s] = p
				}
			}
		}
	}

	return quotes
}

func missingSymbols(symbols []string, quotes map[string]float64) []string {
	var missing []string
	for _, s := range symbols {
		if _, ok := quotes[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
