package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tradeledger/src/externalmodel"
)

// MarketDataDB is the read-only connection to the price tables maintained by
// the external market-data ingestion service. It is never migrated here.
var MarketDataDB *gorm.DB

// InitMarketDataDB initializes the read-only market-data connection and
// verifies the last-price table is reachable.
func InitMarketDataDB() error {
	config := GetConfig()

	db, err := gorm.Open(postgres.Open(config.DatabaseURLMarketData),
		&gorm.Config{
			PrepareStmt:    true,
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to connect to market-data database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from MarketDataDB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping MarketDataDB: %w", err)
	}

	var count int64
	if err := db.
		Model(&externalmodel.LastPrice{}).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to access market_last_prices: %w", err)
	}

	logrus.WithFields(map[string]interface{}{"rows": count}).
		Info("[MarketDataDB] market_last_prices reachable")

	MarketDataDB = db

	return nil
}
