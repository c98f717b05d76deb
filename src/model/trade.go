package model

import "time"

const (
	SignalBuyToLong   = "buy_to_long"
	SignalSellToShort = "sell_to_short"
	SignalCloseLong   = "close_long"
	SignalCloseShort  = "close_short"
)

const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// Trade is the immutable record of one executed (or attempted) order.
// Rows are append only: never updated, never deleted by this core.
type Trade struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	ModelID uint `gorm:"index" json:"model_id"`

	// Back reference to the closed position so percentage analytics can
	// recover the original margin.
	PositionID *uint `gorm:"index" json:"position_id,omitempty"`

	Symbol   string  `gorm:"size:50;index" json:"symbol"`
	Signal   string  `gorm:"size:30" json:"signal"`
	Side     string  `gorm:"size:10" json:"side"`     // buy | sell
	PosSide  string  `gorm:"size:10" json:"pos_side"` // LONG | SHORT
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Pnl      float64 `json:"pnl"`
	Fee      float64 `json:"fee"`

	// Carried over from the closed position at settlement time.
	InitialMargin *float64 `json:"initial_margin,omitempty"`

	ExchangeOrderID *string `gorm:"size:255" json:"exchange_order_id,omitempty"`
	ClientOrderID   string  `gorm:"size:64" json:"client_order_id,omitempty"`
	OrderType       string  `gorm:"size:20" json:"order_type"`

	// Set when the exchange leg failed; the row is still written.
	Error *string `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Trade) TableName() string {
	return "trades"
}
