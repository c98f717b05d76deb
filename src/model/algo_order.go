package model

import "time"

const (
	AlgoOrderStatusNew       = "new"
	AlgoOrderStatusCancelled = "cancelled"
	AlgoOrderStatusTriggered = "triggered"
)

const (
	AlgoOrderKindStopLoss   = "stop_loss"
	AlgoOrderKindTakeProfit = "take_profit"
)

// AlgoOrder mirrors a conditional (stop-loss/take-profit) order locally.
// In real mode the exchange's own list is authoritative and must confirm a
// pending order before the local row is flipped to cancelled; in virtual
// mode the local status is authoritative.
type AlgoOrder struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	ModelID      uint    `gorm:"index:idx_algo_model_symbol" json:"model_id"`
	Symbol       string  `gorm:"size:50;index:idx_algo_model_symbol" json:"symbol"`
	AlgoID       string  `gorm:"size:255" json:"algo_id"` // exchange-side identifier
	Kind         string  `gorm:"size:20" json:"kind"`     // stop_loss | take_profit
	Side         string  `gorm:"size:10" json:"side"`
	TriggerPrice float64 `json:"trigger_price"`
	Quantity     float64 `json:"quantity"`
	Status       string  `gorm:"size:20;not null;default:new" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AlgoOrder) TableName() string {
	return "algo_orders"
}
