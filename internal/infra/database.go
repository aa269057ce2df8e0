package infra

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"zubari/internal/config"
	"zubari/internal/models/db_models"
)

// OpenDatabase connects the relational store selected by STORE_DRIVER. A
// failed connection is returned to the caller; there is no silent fallback
// to the in-memory store.
func OpenDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		dialector = postgres.Open(cfg.PostgresURL)
	case config.StoreDriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("store driver %q has no database", cfg.StoreDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.StoreDriver, err)
	}

	if cfg.StoreDriver == config.StoreDriverSQLite {
		// SQLite serialises writers; one connection avoids SQLITE_BUSY under load.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info("database connected", zap.String("driver", cfg.StoreDriver))
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&db_models.Account{},
		&db_models.UsageEvent{},
		&db_models.PaymentIntent{},
	)
}

func CloseDatabase(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Error("get database instance", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Error("close database connection", zap.Error(err))
	} else {
		log.Info("database connection closed")
	}
}
