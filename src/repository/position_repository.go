package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeledger/src/database"
	"tradeledger/src/model"
)

// PositionRepository handles read/write operations for open positions.
// Writes go through the settlement workflow only.
type PositionRepository struct {
	db *gorm.DB
}

// NewPositionRepository creates a new repository instance using the main
// read/write database.
func NewPositionRepository() *PositionRepository {
	return &PositionRepository{db: database.MainDB}
}

// NewPositionRepositoryWithDB allows overriding the underlying *gorm.DB.
// Useful for tests or when binding to a transaction.
func NewPositionRepositoryWithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// WithDB returns a copy of the repository bound to the given DB instance,
// typically a transaction handle.
func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// FindOpenByModel returns all positions with nonzero quantity for a model.
func (r *PositionRepository) FindOpenByModel(
	ctx context.Context,
	modelID uint,
) ([]model.Position, error) {

	logger.WithFields(map[string]interface{}{
		"repo":     "PositionRepository",
		"op":       "FindOpenByModel",
		"model_id": modelID,
	}).Debug("Fetching open positions for model")

	var positions []model.Position

	err := r.db.WithContext(ctx).
		Where("model_id = ? AND quantity <> 0", modelID).
		Order("id ASC").
		Find(&positions).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "PositionRepository",
			"op":       "FindOpenByModel",
			"model_id": modelID,
		}).WithError(err).Error("Failed to fetch open positions")

		return nil, err
	}

	return positions, nil
}

// FindByModelAndSymbol fetches the open position for (model, symbol).
// Returns (nil, nil) if no such position exists.
func (r *PositionRepository) FindByModelAndSymbol(
	ctx context.Context,
	modelID uint,
	symbol string,
) (*model.Position, error) {

	logger.WithFields(map[string]interface{}{
		"repo":     "PositionRepository",
		"op":       "FindByModelAndSymbol",
		"model_id": modelID,
		"symbol":   symbol,
	}).Debug("Fetching position by model and symbol")

	var position model.Position

	err := r.db.WithContext(ctx).
		Where("model_id = ? AND symbol = ? AND quantity <> 0", modelID, symbol).
		First(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo":     "PositionRepository",
				"op":       "FindByModelAndSymbol",
				"model_id": modelID,
				"symbol":   symbol,
			}).Info("Position not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "PositionRepository",
			"op":       "FindByModelAndSymbol",
			"model_id": modelID,
			"symbol":   symbol,
		}).WithError(err).Error("Failed to fetch position")

		return nil, err
	}

	return &position, nil
}

// DeleteByID removes a fully closed position row. A position is deleted,
// never zeroed.
func (r *PositionRepository) DeleteByID(
	ctx context.Context,
	id uint,
) error {

	logger.WithFields(map[string]interface{}{
		"repo": "PositionRepository",
		"op":   "DeleteByID",
		"id":   id,
	}).Debug("Deleting position")

	err := r.db.WithContext(ctx).
		Delete(&model.Position{}, id).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "DeleteByID",
			"id":   id,
		}).WithError(err).Error("Failed to delete position")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo": "PositionRepository",
		"op":   "DeleteByID",
		"id":   id,
	}).Info("Position deleted")

	return nil
}
