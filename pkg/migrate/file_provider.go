package migrate

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// FileProvider loads migrations from a filesystem, usually an embed.FS
// compiled into the binary
type FileProvider struct {
	fsys           fs.FS
	migrationTable string
	dbDriver       string // "sqlite" or "postgres"
}

// NewFileProvider creates a new file-based migration provider reading from dir
func NewFileProvider(dir string, migrationTable string) *FileProvider {
	return NewFSProvider(os.DirFS(dir), migrationTable, "sqlite")
}

// NewFSProvider creates a migration provider over fsys with a specific driver
func NewFSProvider(fsys fs.FS, migrationTable string, dbDriver string) *FileProvider {
	if migrationTable == "" {
		migrationTable = "schema_migrations"
	}
	if dbDriver == "" {
		dbDriver = "sqlite"
	}
	return &FileProvider{
		fsys:           fsys,
		migrationTable: migrationTable,
		dbDriver:       dbDriver,
	}
}

// GetMigrations loads all migrations from the filesystem
func (fp *FileProvider) GetMigrations() ([]Migration, error) {
	var migrations []Migration
	migrationFiles := make(map[int]*Migration)

	// Regular expression to match migration files
	// Format: 001_migration_name.up.sql or 001_migration_name.down.sql
	re := regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

	err := fs.WalkDir(fp.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		matches := re.FindStringSubmatch(d.Name())
		if matches == nil {
			return nil
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return fmt.Errorf("invalid version number in file %s: %w", path, err)
		}

		content, err := fs.ReadFile(fp.fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", path, err)
		}

		name := strings.ReplaceAll(matches[2], "_", " ")
		if prev := migrationFiles[version]; prev == nil {
			migrationFiles[version] = &Migration{Version: version, Name: name}
		} else if prev.Name != name {
			return fmt.Errorf("migration version %d defined twice (%q, %q)", version, prev.Name, name)
		}
		if matches[3] == "up" {
			migrationFiles[version].Up = string(content)
		} else {
			migrationFiles[version].Down = string(content)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	// Convert map to slice
	for _, migration := range migrationFiles {
		migrations = append(migrations, *migration)
	}

	// Sort by version
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// CreateMigrationTable creates the migration tracking table
func (fp *FileProvider) CreateMigrationTable(db *sql.DB) error {
	var query string

	if fp.dbDriver == "postgres" {
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				version INTEGER PRIMARY KEY,
				applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`, fp.migrationTable)
	} else {
		// SQLite
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`, fp.migrationTable)
	}

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	return nil
}

// GetCurrentVersion returns the highest applied migration version
func (fp *FileProvider) GetCurrentVersion(db *sql.DB) (int, error) {
	query := fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", fp.migrationTable)

	var version int
	err := db.QueryRow(query).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}

	return version, nil
}

// SetVersion sets the migration version. Records above version are removed
// so that rollbacks lower the reported version.
func (fp *FileProvider) SetVersion(db DB, version int) error {
	placeholder := "?"
	if fp.dbDriver == "postgres" {
		placeholder = "$1"
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE version > %s", fp.migrationTable, placeholder)
	_, err := db.Exec(query, version)

	if err == nil && version > 0 {
		if fp.dbDriver == "postgres" {
			// PostgreSQL uses ON CONFLICT for upsert
			query = fmt.Sprintf(`
				INSERT INTO %s (version, applied_at)
				VALUES ($1, CURRENT_TIMESTAMP)
				ON CONFLICT (version) DO UPDATE SET applied_at = CURRENT_TIMESTAMP
			`, fp.migrationTable)
		} else {
			// SQLite uses INSERT OR REPLACE
			query = fmt.Sprintf(`
				INSERT OR REPLACE INTO %s (version, applied_at)
				VALUES (?, CURRENT_TIMESTAMP)
			`, fp.migrationTable)
		}
		_, err = db.Exec(query, version)
	}

	if err != nil {
		return fmt.Errorf("failed to set version: %w", err)
	}

	return nil
}
