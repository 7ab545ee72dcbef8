package db

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"news-impact-engine/internal/logger"
	"news-impact-engine/internal/store"
)

// ConnectPostgres opens the pooled GORM connection.
func ConnectPostgres(cfg *store.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DatabaseURL(),
		// disable prepared statements to avoid stmtcache collisions
		// behind connection poolers
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logger.Info(context.Background(), "Connected to PostgreSQL")
	return db, nil
}
