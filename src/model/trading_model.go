package model

import (
	"strings"
	"time"
)

const (
	ModelModeVirtual = "virtual"
	ModelModeReal    = "real"
)

// TradingModel is one independently configured trading account. A model in
// virtual mode never submits real exchange orders; a model in real mode
// carries encrypted exchange credentials.
type TradingModel struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	Name           string  `gorm:"size:100;not null" json:"name"`
	Mode           string  `gorm:"size:20;not null;default:virtual" json:"mode"` // virtual | real
	Leverage       int     `json:"leverage"`
	InitialCapital float64 `json:"initial_capital"`
	MaxPositions   int     `json:"max_positions"`

	// Risk toggles. The settlement/valuation core only reads these.
	AutoClosePct        float64 `json:"auto_close_pct"`
	EnableNoTradeWindow bool    `json:"enable_no_trade_window"`
	ReentryIntervalMin  int     `json:"reentry_interval_min"`

	// Comma separated symbol universe shown on dashboards even when flat.
	TrackedSymbols string `gorm:"size:512" json:"tracked_symbols"`

	// Exchange credentials, encrypted at rest. Present only in real mode.
	APIKeyHash    string `gorm:"column:api_key;type:text" json:"-"`
	APISecretHash string `gorm:"column:api_secret;type:text" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TradingModel) TableName() string {
	return "trading_models"
}

func (m *TradingModel) IsVirtual() bool {
	return m.Mode != ModelModeReal
}

// TrackedSymbolList splits the stored universe, dropping empty entries.
func (m *TradingModel) TrackedSymbolList() []string {
	if m.TrackedSymbols == "" {
		return nil
	}

	parts := strings.Split(m.TrackedSymbols, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			symbols = append(symbols, strings.ToUpper(p))
		}
	}
	return symbols
}

// HasCredentials reports whether both encrypted credential fields are set.
func (m *TradingModel) HasCredentials() bool {
	return m.APIKeyHash != "" && m.APISecretHash != ""
}
