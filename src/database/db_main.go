package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tradeledger/src/model"
)

// MainDB is the primary read/write database connection holding the ledger
// tables: trading models, positions, trades, algo orders, audit logs.
var MainDB *gorm.DB

// InitMainDB initializes the main (read/write) database connection and runs
// migrations. Called once at application startup.
func InitMainDB() error {
	config := GetConfig()

	db, err := gorm.Open(postgres.Open(config.DatabaseURLMain),
		&gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to connect to main database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	// Assign to the global only after a successful connection.
	MainDB = db

	logrus.Info("[database] MainDB connection established")

	if err := MainDB.AutoMigrate(
		&model.TradingModel{},
		&model.Position{},
		&model.Trade{},
		&model.AlgoOrder{},
		&model.ExchangeCallLog{},
		&model.EquityPoint{},
		&model.Exception{},
	); err != nil {
		return fmt.Errorf("failed to run migrations on MainDB: %w", err)
	}

	logrus.Info("[database] MainDB migrations completed")

	return nil
}
