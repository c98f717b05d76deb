package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeledger/src/database"
	"tradeledger/src/model"
)

// AlgoOrderRepository handles the local mirror of conditional
// (stop-loss/take-profit) orders.
type AlgoOrderRepository struct {
	db *gorm.DB
}

// NewAlgoOrderRepository creates a new repository instance using the main
// read/write database.
func NewAlgoOrderRepository() *AlgoOrderRepository {
	return &AlgoOrderRepository{db: database.MainDB}
}

// NewAlgoOrderRepositoryWithDB allows overriding the underlying *gorm.DB.
func NewAlgoOrderRepositoryWithDB(db *gorm.DB) *AlgoOrderRepository {
	return &AlgoOrderRepository{db: db}
}

// FindPendingByModelAndSymbol returns locally-stored new-status conditional
// orders for (model, symbol).
func (r *AlgoOrderRepository) FindPendingByModelAndSymbol(
	ctx context.Context,
	modelID uint,
	symbol string,
) ([]model.AlgoOrder, error) {

	logger.WithFields(map[string]interface{}{
		"repo":     "AlgoOrderRepository",
		"op":       "FindPendingByModelAndSymbol",
		"model_id": modelID,
		"symbol":   symbol,
	}).Debug("Fetching pending algo orders")

	var orders []model.AlgoOrder

	err := r.db.WithContext(ctx).
		Where("model_id = ? AND symbol = ? AND status = ?", modelID, symbol, model.AlgoOrderStatusNew).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "AlgoOrderRepository",
			"op":       "FindPendingByModelAndSymbol",
			"model_id": modelID,
			"symbol":   symbol,
		}).WithError(err).Error("Failed to fetch pending algo orders")

		return nil, err
	}

	return orders, nil
}

// MarkCancelledByModelAndSymbol flips every new-status row for
// (model, symbol) to cancelled.
func (r *AlgoOrderRepository) MarkCancelledByModelAndSymbol(
	ctx context.Context,
	modelID uint,
	symbol string,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":     "AlgoOrderRepository",
		"op":       "MarkCancelledByModelAndSymbol",
		"model_id": modelID,
		"symbol":   symbol,
	}).Debug("Marking algo orders cancelled")

	err := r.db.WithContext(ctx).
		Model(&model.AlgoOrder{}).
		Where("model_id = ? AND symbol = ? AND status = ?", modelID, symbol, model.AlgoOrderStatusNew).
		Update("status", model.AlgoOrderStatusCancelled).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "AlgoOrderRepository",
			"op":       "MarkCancelledByModelAndSymbol",
			"model_id": modelID,
			"symbol":   symbol,
		}).WithError(err).Error("Failed to mark algo orders cancelled")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "AlgoOrderRepository",
		"op":       "MarkCancelledByModelAndSymbol",
		"model_id": modelID,
		"symbol":   symbol,
	}).Info("Algo orders marked cancelled")

	return nil
}
