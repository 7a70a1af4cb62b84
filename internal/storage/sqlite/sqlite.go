// Package sqlite stores river activity runs in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/chrissnell/riveractivity/internal/storage"
	"github.com/chrissnell/riveractivity/internal/types"
	"github.com/chrissnell/riveractivity/pkg/migrate"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationTable records the schema version of a result database
const MigrationTable = "schema_migrations"

// Migrations returns the schema migrations compiled into the binary
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Storage holds the connection to a SQLite result database
type Storage struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
}

// New opens (creating if needed) the database at path and brings its
// schema up to date.
func New(ctx context.Context, path string, logger *zap.SugaredLogger) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", path, err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening sqlite database %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	m := migrate.NewMigrator(db, migrate.NewFSProvider(Migrations(), MigrationTable, "sqlite"))
	m.Logf = logger.Debugf
	if err := m.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite database %s: %w", path, err)
	}

	logger.Infow("sqlite result store ready", "path", path)
	return &Storage{db: db, path: path, logger: logger}, nil
}

// Name identifies the backend in logs
func (s *Storage) Name() string {
	return "sqlite"
}

// WriteRun stores the run, its section rows and its warnings in one
// transaction.
func (s *Storage) WriteRun(ctx context.Context, run *types.Run) error {
	if run == nil || run.Result == nil {
		return fmt.Errorf("sqlite: run has no result")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sum := run.Result.Summary
	var finished any
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, river, t1_label, t2_label, year_t1, year_t2, crs, started_at, finished_at,
			sections, total_section_area, total_erosion, total_deposition, total_persistence,
			mean_migration_rate, mean_occupation_rate, degenerate_sections)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.River, run.T1Label, run.T2Label, run.YearT1, run.YearT2, run.CRS,
		run.StartedAt.UTC().Format(time.RFC3339Nano), finished,
		sum.Sections, sum.TotalSectionArea, sum.TotalErosion, sum.TotalDeposition, sum.TotalPersistence,
		sum.MeanMigrationRate, sum.MeanOccupationRate, sum.DegenerateSections)
	if err != nil {
		return fmt.Errorf("sqlite: inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO section_results (run_id, position, section_id, section_area, erosion_area,
			deposition_area, persistence_area, migration_rate, occupation_rate, erosion_rate,
			deposition_rate, annual_migration_rate, degenerate, skipped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range storage.Rows(run) {
		var errText any
		if r.Error != "" {
			errText = r.Error
		}
		_, err = stmt.ExecContext(ctx, run.ID.String(), r.Position, r.SectionID, r.SectionArea,
			r.ErosionArea, r.DepositionArea, r.PersistenceArea, r.MigrationRate, r.OccupationRate,
			r.ErosionRate, r.DepositionRate, r.AnnualMigrationRate, r.Degenerate, r.Skipped, errText)
		if err != nil {
			return fmt.Errorf("sqlite: inserting section %s: %w", r.SectionID, err)
		}
	}

	for i, w := range sum.Warnings {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_warnings (run_id, seq, kind, section_id, message) VALUES (?, ?, ?, ?, ?)`,
			run.ID.String(), i, string(w.Kind), w.SectionID, w.Message)
		if err != nil {
			return fmt.Errorf("sqlite: inserting warning: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Infow("run stored", "backend", s.Name(), "run", run.ID, "sections", sum.Sections)
	return nil
}

// StoredRun is the run-level row read back from the database
type StoredRun struct {
	ID                 uuid.UUID
	River              string
	YearT1             int
	YearT2             int
	Sections           int
	MeanMigrationRate  float64
	MeanOccupationRate float64
	Warnings           int
}

// GetRun reads back the run-level row of a stored run
func (s *Storage) GetRun(ctx context.Context, id uuid.UUID) (*StoredRun, error) {
	var r StoredRun
	var rawID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, river, year_t1, year_t2, sections, mean_migration_rate, mean_occupation_rate,
			(SELECT COUNT(*) FROM run_warnings w WHERE w.run_id = runs.id)
		FROM runs WHERE id = ?`, id.String()).
		Scan(&rawID, &r.River, &r.YearT1, &r.YearT2, &r.Sections, &r.MeanMigrationRate, &r.MeanOccupationRate, &r.Warnings)
	if err != nil {
		return nil, err
	}
	r.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SectionRows reads back the section rows of a stored run in input order
func (s *Storage) SectionRows(ctx context.Context, id uuid.UUID) ([]storage.SectionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, section_id, section_area, erosion_area, deposition_area, persistence_area,
			migration_rate, occupation_rate, erosion_rate, deposition_rate, annual_migration_rate,
			degenerate, skipped, COALESCE(error, '')
		FROM section_results WHERE run_id = ? ORDER BY position`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.SectionRow
	for rows.Next() {
		var r storage.SectionRow
		if err := rows.Scan(&r.Position, &r.SectionID, &r.SectionArea, &r.ErosionArea, &r.DepositionArea,
			&r.PersistenceArea, &r.MigrationRate, &r.OccupationRate, &r.ErosionRate, &r.DepositionRate,
			&r.AnnualMigrationRate, &r.Degenerate, &r.Skipped, &r.Error); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}
