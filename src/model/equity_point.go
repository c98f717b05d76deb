package model

import "time"

// EquityPoint is one sample of a model's equity curve. The series is fed by
// an external scheduler; this core only reads the most recent window when
// building a portfolio snapshot.
type EquityPoint struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ModelID       uint      `gorm:"index" json:"model_id"`
	TotalValue    float64   `json:"total_value"`
	Cash          float64   `json:"cash"`
	UnrealizedPnl float64   `json:"unrealized_pnl"`
	SampledAt     time.Time `gorm:"index" json:"sampled_at"`
}

func (EquityPoint) TableName() string {
	return "equity_points"
}
