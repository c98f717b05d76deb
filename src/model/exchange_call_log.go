package model

import "time"

const (
	ExchangeCallStatusOK    = "ok"
	ExchangeCallStatusError = "error"
)

// ExchangeCallLog is one row per exchange invocation attempt: the exact
// parameters sent and the raw response or error. Write once, append only,
// kept for forensic replay; business logic never reads it back.
type ExchangeCallLog struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ModelID  uint   `gorm:"index" json:"model_id"`
	Endpoint string `gorm:"size:100" json:"endpoint"`
	Params   string `gorm:"type:text" json:"params"`
	Response string `gorm:"type:text" json:"response"`
	Status   string `gorm:"size:20" json:"status"` // ok | error

	CreatedAt time.Time `json:"created_at"`
}

func (ExchangeCallLog) TableName() string {
	return "exchange_call_logs"
}
