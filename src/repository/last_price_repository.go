package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeledger/src/database"
	"tradeledger/src/externalmodel"
)

// LastPriceRepository reads last-known prices from the read-only
// market-data database maintained by the external ingestion service.
type LastPriceRepository struct {
	db *gorm.DB
}

// NewLastPriceRepository creates a repository bound to MarketDataDB.
func NewLastPriceRepository() *LastPriceRepository {
	return &LastPriceRepository{db: database.MarketDataDB}
}

// NewLastPriceRepositoryWithDB allows overriding the underlying *gorm.DB.
func NewLastPriceRepositoryWithDB(db *gorm.DB) *LastPriceRepository {
	return &LastPriceRepository{db: db}
}

// FindBySymbols returns last-known prices keyed by symbol. Symbols with no
// stored row are simply absent from the map; a stored price of 0 is dropped
// because 0 always means "no quote", never a real price.
func (r *LastPriceRepository) FindBySymbols(
	ctx context.Context,
	symbols []string,
) (map[string]float64, error) {

	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	logger.WithFields(map[string]interface{}{
		"repo":    "LastPriceRepository",
		"op":      "FindBySymbols",
		"symbols": len(symbols),
	}).Debug("Fetching last-known prices")

	var rows []externalmodel.LastPrice

	err := r.db.WithContext(ctx).
		Where("symbol IN ?", symbols).
		Find(&rows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "LastPriceRepository",
			"op":   "FindBySymbols",
		}).WithError(err).Error("Failed to fetch last-known prices")

		return nil, err
	}

	prices := make(map[string]float64, len(rows))
	for _, row := range rows {
		if row.Price > 0 {
			prices[row.Symbol] = row.Price
		}
	}

	return prices, nil
}
