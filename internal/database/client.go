// Package database opens the GORM connections used by the PostgreSQL result
// store.
package database

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/riveractivity/internal/log"
	"go.uber.org/zap"
)

// NewGormLogger routes GORM's logger through the process-wide zap logger
func NewGormLogger(level logger.LogLevel) logger.Interface {
	return logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// CreateConnection is a helper function to create a database connection with standard GORM configuration
func CreateConnection(connectionString string) (*gorm.DB, error) {
	log.Info("connecting to PostgreSQL...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: NewGormLogger(logger.Warn)})
	if err != nil {
		log.Warn("warning: unable to create a PostgreSQL connection:", err)
		return nil, err
	}
	log.Info("PostgreSQL connection successful")

	return db, nil
}

// Ping checks that the connection behind db is alive
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
