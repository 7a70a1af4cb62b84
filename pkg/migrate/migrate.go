package migrate

import (
	"database/sql"
	"fmt"
	"sort"
)

// Latest asks MigrateTo for the highest known version.
const Latest = -1

// Migration is one numbered schema change with its forward and reverse SQL.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// DB is satisfied by both *sql.DB and *sql.Tx.
type DB interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// MigrationProvider loads migrations and tracks the applied version.
type MigrationProvider interface {
	GetMigrations() ([]Migration, error)
	GetCurrentVersion(db *sql.DB) (int, error)
	SetVersion(db DB, version int) error
	CreateMigrationTable(db *sql.DB) error
}

// Direction tells whether a step applies or reverts its migration.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Step is one planned migration run. After it commits the recorded version
// becomes Result.
type Step struct {
	Migration Migration
	Direction Direction
	Result    int
}

func (s Step) sql() string {
	if s.Direction == Down {
		return s.Migration.Down
	}
	return s.Migration.Up
}

// Migrator applies migrations from a provider, one transaction per step.
type Migrator struct {
	db       *sql.DB
	provider MigrationProvider

	// Logf receives one line per applied step when set
	Logf func(format string, args ...any)
}

// NewMigrator returns a Migrator for db.
func NewMigrator(db *sql.DB, provider MigrationProvider) *Migrator {
	return &Migrator{db: db, provider: provider}
}

// MigrateUp applies every pending migration.
func (m *Migrator) MigrateUp() error {
	return m.MigrateTo(Latest)
}

// MigrateDown reverts migrations until target is the recorded version.
// target must be below the current version.
func (m *Migrator) MigrateDown(target int) error {
	current, err := m.GetCurrentVersion()
	if err != nil {
		return err
	}
	if target >= current {
		return fmt.Errorf("target version %d must be less than current version %d", target, current)
	}
	return m.MigrateTo(target)
}

// MigrateTo moves the schema up or down to target. Latest means the highest
// version the provider knows.
func (m *Migrator) MigrateTo(target int) error {
	steps, err := m.Plan(target)
	if err != nil {
		return err
	}
	for _, s := range steps {
		if err := m.apply(s); err != nil {
			return fmt.Errorf("migration %d %s: %w", s.Migration.Version, s.Direction, err)
		}
	}
	return nil
}

// Plan lists the steps MigrateTo(target) would run, in order, without
// touching the schema beyond creating the version table.
func (m *Migrator) Plan(target int) ([]Step, error) {
	current, err := m.GetCurrentVersion()
	if err != nil {
		return nil, err
	}
	migrations, err := m.sorted()
	if err != nil {
		return nil, err
	}
	if target == Latest {
		target = 0
		if n := len(migrations); n > 0 {
			target = migrations[n-1].Version
		}
	}

	var steps []Step
	switch {
	case target > current:
		for _, mg := range migrations {
			if mg.Version > current && mg.Version <= target {
				steps = append(steps, Step{Migration: mg, Direction: Up, Result: mg.Version})
			}
		}
	case target < current:
		for i := len(migrations) - 1; i >= 0; i-- {
			mg := migrations[i]
			if mg.Version <= target || mg.Version > current {
				continue
			}
			prev := 0
			if i > 0 {
				prev = migrations[i-1].Version
			}
			steps = append(steps, Step{Migration: mg, Direction: Down, Result: prev})
		}
	}
	return steps, nil
}

// GetCurrentVersion returns the recorded version, creating the version
// table on first use.
func (m *Migrator) GetCurrentVersion() (int, error) {
	if err := m.provider.CreateMigrationTable(m.db); err != nil {
		return 0, fmt.Errorf("creating migration table: %w", err)
	}
	v, err := m.provider.GetCurrentVersion(m.db)
	if err != nil {
		return 0, fmt.Errorf("reading migration version: %w", err)
	}
	return v, nil
}

// GetPendingMigrations returns the migrations above the current version.
func (m *Migrator) GetPendingMigrations() ([]Migration, error) {
	steps, err := m.Plan(Latest)
	if err != nil {
		return nil, err
	}
	pending := make([]Migration, 0, len(steps))
	for _, s := range steps {
		if s.Direction == Up {
			pending = append(pending, s.Migration)
		}
	}
	return pending, nil
}

// SetVersion records version without running any SQL.
func (m *Migrator) SetVersion(version int) error {
	return m.provider.SetVersion(m.db, version)
}

// sorted loads the migrations in ascending order and rejects repeated
// version numbers.
func (m *Migrator) sorted() ([]Migration, error) {
	migrations, err := m.provider.GetMigrations()
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("migration version %d defined twice (%q, %q)",
				migrations[i].Version, migrations[i-1].Name, migrations[i].Name)
		}
	}
	return migrations, nil
}

func (m *Migrator) apply(s Step) error {
	stmt := s.sql()
	if stmt == "" {
		return fmt.Errorf("no %s SQL", s.Direction)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmt); err != nil {
		return err
	}
	if err := m.provider.SetVersion(tx, s.Result); err != nil {
		return fmt.Errorf("recording version %d: %w", s.Result, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if m.Logf != nil {
		m.Logf("migration %d (%s) %s, schema at version %d", s.Migration.Version, s.Migration.Name, s.Direction, s.Result)
	}
	return nil
}
