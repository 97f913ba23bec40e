package db

import (
	"fmt"
	"time"

	"zap-backend/internal/config"
	"zap-backend/internal/metrics"
	"zap-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB global database handle
var DB *gorm.DB

// InitDB connects to the database and migrates the operation history
// schema.
func InitDB() error {
	if config.AppConfig == nil || config.AppConfig.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	var err error
	DB, err = gorm.Open(postgres.Open(config.AppConfig.Database.DSN), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		metrics.DBConnectionStatus.Set(0)
		return fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := DB.AutoMigrate(
		&models.Operation{},
		&models.OperationLeg{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	metrics.DBConnectionStatus.Set(1)
	return nil
}
