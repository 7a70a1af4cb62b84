// Package postgres stores river activity runs in PostgreSQL through GORM.
package postgres

import (
	"context"
	"fmt"

	"github.com/chrissnell/riveractivity/internal/database"
	"github.com/chrissnell/riveractivity/internal/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// We declare the Tabler interface for purposes of customizing the table name in the DB
type Tabler interface {
	TableName() string
}

var (
	_ Tabler = RunRecord{}
	_ Tabler = SectionRecord{}
)

// Storage holds the connection to a PostgreSQL result database
type Storage struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// New connects to PostgreSQL and creates the result tables if needed
func New(ctx context.Context, connectionString string, logger *zap.SugaredLogger) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := database.CreateConnection(connectionString)
	if err != nil {
		return nil, err
	}
	return open(ctx, db, logger)
}

func open(ctx context.Context, db *gorm.DB, logger *zap.SugaredLogger) (*Storage, error) {
	if err := database.Ping(db); err != nil {
		return nil, fmt.Errorf("postgres: database ping failed: %w", err)
	}

	logger.Info("creating result tables...")
	if err := db.WithContext(ctx).AutoMigrate(&RunRecord{}, &SectionRecord{}); err != nil {
		return nil, fmt.Errorf("postgres: could not create result tables: %w", err)
	}
	return &Storage{db: db, logger: logger}, nil
}

// Name identifies the backend in logs
func (s *Storage) Name() string {
	return "postgres"
}

// WriteRun stores the run and its sections in one transaction
func (s *Storage) WriteRun(ctx context.Context, run *types.Run) error {
	rec, err := toRecords(run)
	if err != nil {
		return err
	}
	sections := rec.Sections
	rec.Sections = nil

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("inserting run %s: %w", rec.ID, err)
		}
		if len(sections) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(sections, 100).Error; err != nil {
			return fmt.Errorf("inserting sections of run %s: %w", rec.ID, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Errorw("could not store run", "backend", s.Name(), "run", run.ID, "error", err)
		return err
	}
	s.logger.Infow("run stored", "backend", s.Name(), "run", run.ID, "sections", len(sections))
	return nil
}

// Close releases the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
