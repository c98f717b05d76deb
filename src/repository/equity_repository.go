package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeledger/src/database"
	"tradeledger/src/model"
)

// EquityRepository handles the equity-curve time series: appended by the
// periodic sampler, read back for snapshot charting.
type EquityRepository struct {
	db *gorm.DB
}

// NewEquityRepository creates a new repository instance using the main
// read/write database.
func NewEquityRepository() *EquityRepository {
	return &EquityRepository{db: database.MainDB}
}

// NewEquityRepositoryWithDB allows overriding the underlying *gorm.DB.
func NewEquityRepositoryWithDB(db *gorm.DB) *EquityRepository {
	return &EquityRepository{db: db}
}

// Create appends one equity sample.
func (r *EquityRepository) Create(
	ctx context.Context,
	point *model.EquityPoint,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":     "EquityRepository",
		"op":       "Create",
		"model_id": point.ModelID,
	}).Debug("Appending equity point")

	err := r.db.WithContext(ctx).Create(point).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "EquityRepository",
			"op":       "Create",
			"model_id": point.ModelID,
		}).WithError(err).Error("Failed to append equity point")

		return err
	}

	return nil
}

// FindRecentByModel returns the last N equity samples for a model in
// chronological order.
func (r *EquityRepository) FindRecentByModel(
	ctx context.Context,
	modelID uint,
	limit int,
) ([]model.EquityPoint, error) {

	if limit <= 0 {
		limit = 100
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "EquityRepository",
		"op":       "FindRecentByModel",
		"model_id": modelID,
		"limit":    limit,
	}).Debug("Fetching recent equity points")

	var points []model.EquityPoint

	err := r.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("sampled_at DESC").
		Limit(limit).
		Find(&points).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "EquityRepository",
			"op":       "FindRecentByModel",
			"model_id": modelID,
		}).WithError(err).Error("Failed to fetch equity points")

		return nil, err
	}

	// Reverse into chronological order for charting.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	return points, nil
}
