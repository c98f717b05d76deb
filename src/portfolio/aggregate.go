package portfolio

import "context"

// GetAggregatedPortfolio values every model and merges the results into a
// single account-level snapshot. Positions in the same symbol and side are
// combined with quantity-weighted entry and current prices; capital,
// realized, unrealized and margin figures are summed. Equity curves stay
// per-model and are not carried.
func (e *Engine) GetAggregatedPortfolio(ctx context.Context) (*Snapshot, error) {
	models, err := e.stores.Models.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	aggregate := &Snapshot{
		ModelName:   "aggregate",
		Positions:   []PositionView{},
		GeneratedAt: e.now(),
	}

	merged := make(map[string]*positionAccumulator)
	var order []string

	for i := range models {
		snapshot, err := e.GetPortfolio(ctx, models[i].ID)
		if err != nil {
			return nil, err
		}

		aggregate.InitialCapital += snapshot.InitialCapital
		aggregate.Cash += snapshot.Cash
		aggregate.TotalValue += snapshot.TotalValue
		aggregate.PositionsValue += snapshot.PositionsValue
		aggregate.MarginUsed += snapshot.MarginUsed
		aggregate.RealizedPnl += snapshot.RealizedPnl
		aggregate.UnrealizedPnl += snapshot.UnrealizedPnl
		aggregate.MaxPositions += snapshot.MaxPositions

		// Any model inside its no-trade window flags the whole account.
		if snapshot.NoTradeWindowActive {
			aggregate.NoTradeWindowActive = true
		}
		if aggregate.Session == "" {
			aggregate.Session = snapshot.Session
		}

		for j := range snapshot.Positions {
			view := &snapshot.Positions[j]
			key := view.Symbol + "|" + view.Side

			acc, ok := merged[key]
			if !ok {
				acc = &positionAccumulator{symbol: view.Symbol, side: view.Side, leverage: view.Leverage}
				merged[key] = acc
				order = append(order, key)
			}
			acc.add(view)
		}
	}

	for _, key := range order {
		aggregate.Positions = append(aggregate.Positions, merged[key].view())
	}

	return aggregate, nil
}

// positionAccumulator folds same-symbol same-side legs from different
// models into one quantity-weighted position.
type positionAccumulator struct {
	symbol   string
	side     string
	leverage int

	quantity      float64
	entryWeighted float64 // Σ avg_i * |q_i|
	priceWeighted float64 // Σ price_i * |q_i|, live legs only
	liveQuantity  float64
	unrealizedPnl float64
	marginUsed    float64
	anyStale      bool
}

func (a *positionAccumulator) add(view *PositionView) {
	weight := absFloat(view.Quantity)

	a.quantity += view.Quantity
	a.entryWeighted += view.AvgPrice * weight
	a.unrealizedPnl += view.UnrealizedPnl
	a.marginUsed += view.MarginUsed

	if view.PriceStale {
		a.anyStale = true
	} else {
		a.priceWeighted += view.CurrentPrice * weight
		a.liveQuantity += weight
	}
}

func (a *positionAccumulator) view() PositionView {
	view := PositionView{
		Symbol:        a.symbol,
		Side:          a.side,
		Leverage:      a.leverage,
		Quantity:      a.quantity,
		UnrealizedPnl: a.unrealizedPnl,
		MarginUsed:    a.marginUsed,
		PriceStale:    a.anyStale,
	}

	if total := absFloat(a.quantity); total > 0 {
		view.AvgPrice = a.entryWeighted / total
	}
	if a.liveQuantity > 0 {
		view.CurrentPrice = a.priceWeighted / a.liveQuantity
	}

	return view
}
