package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeledger/src/database"
	"tradeledger/src/model"
)

// ExchangeCallLogRepository appends rows to the raw exchange-call audit log.
// The log is write-once; nothing in the core reads it back.
type ExchangeCallLogRepository struct {
	db *gorm.DB
}

// NewExchangeCallLogRepository creates a new repository instance using the
// main read/write database.
func NewExchangeCallLogRepository() *ExchangeCallLogRepository {
	return &ExchangeCallLogRepository{db: database.MainDB}
}

// NewExchangeCallLogRepositoryWithDB allows overriding the underlying *gorm.DB.
func NewExchangeCallLogRepositoryWithDB(db *gorm.DB) *ExchangeCallLogRepository {
	return &ExchangeCallLogRepository{db: db}
}

// Create appends one audit row for an exchange invocation attempt.
func (r *ExchangeCallLogRepository) Create(
	ctx context.Context,
	entry *model.ExchangeCallLog,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":     "ExchangeCallLogRepository",
		"op":       "Create",
		"model_id": entry.ModelID,
		"endpoint": entry.Endpoint,
		"status":   entry.Status,
	}).Debug("Appending exchange call log")

	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "ExchangeCallLogRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to append exchange call log")

		return err
	}

	return nil
}
