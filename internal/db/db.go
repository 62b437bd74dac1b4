package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/config"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.DeviceToken{},
		&model.NotificationPreference{},
		&model.NotificationRecord{},
		&model.SectionMember{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	log.Println("Database initialization complete.")
	return db, nil
}
