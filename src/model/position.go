package model

import "time"

const (
	PositionSideLong  = "LONG"
	PositionSideShort = "SHORT"
)

// Position is one open holding for one model. Quantity is never zero while
// the row exists; a fully closed position is deleted, not zeroed.
// Written only by the settlement workflow, read by the valuation engine.
type Position struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	ModelID  uint    `gorm:"index:idx_positions_model_symbol" json:"model_id"`
	Symbol   string  `gorm:"size:50;index:idx_positions_model_symbol" json:"symbol"`
	Side     string  `gorm:"size:10;not null" json:"side"` // LONG | SHORT
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
	Leverage int     `json:"leverage"`

	// Last stored mark-to-market snapshot, the fallback when no live
	// price can be obtained at read time.
	UnrealizedProfit float64 `json:"unrealized_profit"`

	// Margin committed at open. Nullable for legacy rows that predate the
	// column; valuation falls back to qty*price/leverage for those.
	InitialMargin *float64 `json:"initial_margin,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}
