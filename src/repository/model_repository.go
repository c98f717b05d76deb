package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeledger/src/database"
	"tradeledger/src/model"
)

// ModelRepository handles read access to trading model configurations.
// The valuation/settlement core never mutates models.
type ModelRepository struct {
	db *gorm.DB
}

// NewModelRepository creates a new repository instance using the main
// read/write database.
func NewModelRepository() *ModelRepository {
	return &ModelRepository{db: database.MainDB}
}

// NewModelRepositoryWithDB allows overriding the underlying *gorm.DB.
// Useful for tests or when using a specific session/transaction.
func NewModelRepositoryWithDB(db *gorm.DB) *ModelRepository {
	return &ModelRepository{db: db}
}

// FindByID fetches a trading model by its primary ID.
// Returns (nil, nil) if the model is not found.
func (r *ModelRepository) FindByID(
	ctx context.Context,
	id uint,
) (*model.TradingModel, error) {

	logger.WithFields(map[string]interface{}{
		"repo": "ModelRepository",
		"op":   "FindByID",
		"id":   id,
	}).Debug("Fetching trading model by ID")

	var m model.TradingModel

	err := r.db.WithContext(ctx).First(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo": "ModelRepository",
				"op":   "FindByID",
				"id":   id,
			}).Info("Trading model not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "ModelRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch trading model")

		return nil, err
	}

	return &m, nil
}

// FindAll returns every configured trading model, oldest first. Used by the
// aggregated portfolio rollup.
func (r *ModelRepository) FindAll(ctx context.Context) ([]model.TradingModel, error) {
	logger.WithFields(map[string]interface{}{
		"repo": "ModelRepository",
		"op":   "FindAll",
	}).Debug("Fetching all trading models")

	var models []model.TradingModel

	err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "ModelRepository",
			"op":   "FindAll",
		}).WithError(err).Error("Failed to fetch trading models")

		return nil, err
	}

	return models, nil
}
