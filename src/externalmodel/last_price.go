package externalmodel

import "time"

// LastPrice is a row in the market-data database maintained by the external
// ingestion service. The ledger core reads it as the secondary, last-known
// price source when the live oracle has no quote for a symbol.
type LastPrice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Symbol    string    `gorm:"size:50;uniqueIndex" json:"symbol"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (LastPrice) TableName() string {
	return "market_last_prices"
}
