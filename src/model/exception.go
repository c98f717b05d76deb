package model

import "time"

// Exception is a persisted system-level error kept for monitoring. The
// settlement workflow captures exchange-leg faults here so a failed submit
// is never lost even when the close itself reports success.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Where the error happened
	Service string `gorm:"size:100;index" json:"service"` // e.g. "settlement"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "exchange_client"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "SubmitMarketOrder"

	Message string `gorm:"type:text" json:"message"`
	Stack   string `gorm:"type:text" json:"stack"`

	Level string `gorm:"size:20;index" json:"level"` // debug | info | warn | error | fatal

	// Extra context stored as JSON
	Context string `gorm:"type:jsonb" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
