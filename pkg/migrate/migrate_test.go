package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var testMigrations = fstest.MapFS{
	"001_create_runs.up.sql":           {Data: []byte("CREATE TABLE runs (id TEXT PRIMARY KEY);")},
	"001_create_runs.down.sql":         {Data: []byte("DROP TABLE runs;")},
	"002_add_river.up.sql":             {Data: []byte("ALTER TABLE runs ADD COLUMN river TEXT;")},
	"002_add_river.down.sql":           {Data: []byte("CREATE TABLE runs_old (id TEXT PRIMARY KEY); DROP TABLE runs; ALTER TABLE runs_old RENAME TO runs;")},
	"README.md":                        {Data: []byte("not a migration")},
	"nested/003_section_rows.up.sql":   {Data: []byte("CREATE TABLE section_rows (run_id TEXT);")},
	"nested/003_section_rows.down.sql": {Data: []byte("DROP TABLE section_rows;")},
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetMigrations(t *testing.T) {
	migrations, err := NewFSProvider(testMigrations, "", "sqlite").GetMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 3)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create runs", migrations[0].Name)
	assert.Contains(t, migrations[2].Up, "section_rows")
	assert.NotEmpty(t, migrations[2].Down)
}

func TestMigrateUpAndDown(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(testMigrations, "", "sqlite"))

	var applied []string
	m.Logf = func(format string, args ...any) { applied = append(applied, format) }

	require.NoError(t, m.MigrateUp())
	v, err := m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Len(t, applied, 3)

	_, err = db.Exec("INSERT INTO runs (id, river) VALUES ('a', 'Ucayali')")
	require.NoError(t, err)

	pending, err := m.GetPendingMigrations()
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, m.MigrateDown(1))
	v, err = m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	pending, err = m.GetPendingMigrations()
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	// running up again is idempotent for applied versions
	require.NoError(t, m.MigrateUp())
	require.NoError(t, m.MigrateUp())
	v, err = m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestPlan(t *testing.T) {
	gapped := fstest.MapFS{
		"001_create_runs.up.sql":    {Data: []byte("CREATE TABLE runs (id TEXT PRIMARY KEY);")},
		"001_create_runs.down.sql":  {Data: []byte("DROP TABLE runs;")},
		"005_create_rows.up.sql":    {Data: []byte("CREATE TABLE section_rows (run_id TEXT);")},
		"005_create_rows.down.sql":  {Data: []byte("DROP TABLE section_rows;")},
		"007_create_warns.up.sql":   {Data: []byte("CREATE TABLE warnings (run_id TEXT);")},
		"007_create_warns.down.sql": {Data: []byte("DROP TABLE warnings;")},
	}
	m := NewMigrator(openDB(t), NewFSProvider(gapped, "", "sqlite"))

	steps, err := m.Plan(Latest)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	for i, want := range []int{1, 5, 7} {
		assert.Equal(t, Up, steps[i].Direction)
		assert.Equal(t, want, steps[i].Result)
	}

	require.NoError(t, m.MigrateUp())

	steps, err = m.Plan(1)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 7, steps[0].Migration.Version)
	assert.Equal(t, Down, steps[0].Direction)
	assert.Equal(t, 5, steps[0].Result)
	assert.Equal(t, 5, steps[1].Migration.Version)
	assert.Equal(t, 1, steps[1].Result)

	require.NoError(t, m.MigrateTo(5))
	v, err := m.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	steps, err = m.Plan(5)
	require.NoError(t, err)
	assert.Empty(t, steps)

	assert.Error(t, m.MigrateDown(5))
}

func TestPlanRejectsRepeatedVersions(t *testing.T) {
	dup := fstest.MapFS{
		"001_create_runs.up.sql":  {Data: []byte("CREATE TABLE runs (id TEXT);")},
		"001_create_other.up.sql": {Data: []byte("CREATE TABLE other (id TEXT);")},
	}
	m := NewMigrator(openDB(t), NewFSProvider(dup, "", "sqlite"))
	_, err := m.Plan(Latest)
	assert.ErrorContains(t, err, "defined twice")
}
