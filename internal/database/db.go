package database

import (
	"fmt"
	"time"

	"atkform/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM and migrates the request table.
// AutoMigrate only adds missing tables and columns; it never drops stored data.
func NewConnection(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		log.Warn("auto-migrate request table failed", zap.Error(err))
		return nil, err
	}

	return db, nil
}

// Migrate brings the request table up to the current model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Request{})
}
