package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeledger/src/database"
	"tradeledger/src/model"
)

// TradeRepository handles the append-only trade history ledger.
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new repository instance using the main
// read/write database.
func NewTradeRepository() *TradeRepository {
	return &TradeRepository{db: database.MainDB}
}

// NewTradeRepositoryWithDB allows overriding the underlying *gorm.DB.
func NewTradeRepositoryWithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// WithDB returns a copy of the repository bound to the given DB instance,
// typically a transaction handle.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create appends a new trade row. Trades are immutable after insert.
func (r *TradeRepository) Create(
	ctx context.Context,
	trade *model.Trade,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "Create",
		"model_id": trade.ModelID,
		"symbol":   trade.Symbol,
		"signal":   trade.Signal,
		"qty":      trade.Quantity,
	}).Debug("Appending trade")

	err := r.db.WithContext(ctx).Create(trade).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to append trade")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "Create",
		"trade_id": trade.ID,
	}).Info("Trade appended")

	return nil
}

// SumPnlByModel returns the realized PnL for a model: the sum of pnl over
// every trade row. Open trades carry pnl 0 so the sum is close-time only.
func (r *TradeRepository) SumPnlByModel(
	ctx context.Context,
	modelID uint,
) (float64, error) {

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "SumPnlByModel",
		"model_id": modelID,
	}).Debug("Summing realized pnl for model")

	var total float64

	err := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("model_id = ?", modelID).
		Select("COALESCE(SUM(pnl), 0)").
		Scan(&total).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeRepository",
			"op":       "SumPnlByModel",
			"model_id": modelID,
		}).WithError(err).Error("Failed to sum realized pnl")

		return 0, err
	}

	return total, nil
}

// FindRecentByModel returns the latest trades for a model, newest first.
func (r *TradeRepository) FindRecentByModel(
	ctx context.Context,
	modelID uint,
	limit int,
) ([]model.Trade, error) {

	if limit <= 0 {
		limit = 20
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "FindRecentByModel",
		"model_id": modelID,
		"limit":    limit,
	}).Debug("Fetching recent trades")

	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("id DESC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeRepository",
			"op":       "FindRecentByModel",
			"model_id": modelID,
		}).WithError(err).Error("Failed to fetch recent trades")

		return nil, err
	}

	return trades, nil
}
