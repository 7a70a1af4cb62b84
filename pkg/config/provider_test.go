package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
river: Ucayali
t1:
  path: data/RIO_UCAYALI_1986.shp
  year: 1986
t2:
  path: data/RIO_UCAYALI_2016.shp
  year: 2016
sections:
  path: data/valle.shp
  id-field: TRAMO
  dissolve: true
crs:
  auto-utm: true
mask:
  threshold: 1
  closing-radius: 1.5
run:
  workers: 4
  timeout: 90s
  on-overlay-error: skip
output:
  dir: out
  run-folder: true
  shapefiles: true
  report-format: msgpack
  sqlite:
    path: out/river.db
  postgres:
    connection-string: postgres://localhost/river
`

func TestYAMLProviderLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	p := NewYAMLProvider(path)
	defer p.Close()
	assert.True(t, p.IsReadOnly())

	cfg, err := p.LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "Ucayali", cfg.River)
	assert.Equal(t, 1986, cfg.T1.Year)
	assert.Equal(t, "data/RIO_UCAYALI_2016.shp", cfg.T2.Path)
	assert.Equal(t, "TRAMO", cfg.Sections.IDField)
	assert.True(t, cfg.Sections.Dissolve)
	assert.True(t, cfg.CRS.AutoUTM)
	assert.InDelta(t, 1.5, cfg.Mask.ClosingRadius, 1e-9)
	assert.Equal(t, 4, cfg.Run.Workers)
	assert.Equal(t, 90*time.Second, cfg.Run.Timeout)
	assert.Equal(t, "skip", cfg.Run.OnOverlayError)
	assert.True(t, cfg.Output.RunFolder)
	assert.Equal(t, "msgpack", cfg.Output.ReportFormat)
	require.NotNil(t, cfg.Output.SQLite)
	assert.Equal(t, "out/river.db", cfg.Output.SQLite.Path)
	require.NotNil(t, cfg.Output.Postgres)
	assert.Equal(t, "postgres://localhost/river", cfg.Output.Postgres.ConnectionString)
}

func TestParseYAMLRejectsBadTimeout(t *testing.T) {
	_, err := ParseYAML([]byte("run:\n  timeout: soon\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() ConfigData {
		return ConfigData{
			T1:       SnapshotData{Path: "a.shp", Year: 2000},
			T2:       SnapshotData{Path: "b.shp", Year: 2010},
			Sections: SectionsData{Path: "v.shp"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*ConfigData)
		ok     bool
	}{
		{"valid", func(*ConfigData) {}, true},
		{"years unknown", func(c *ConfigData) { c.T1.Year, c.T2.Year = 0, 0 }, true},
		{"missing t2", func(c *ConfigData) { c.T2.Path = "" }, false},
		{"missing sections", func(c *ConfigData) { c.Sections.Path = "" }, false},
		{"years equal", func(c *ConfigData) { c.T2.Year = 2000 }, false},
		{"years reversed", func(c *ConfigData) { c.T1.Year = 2020 }, false},
		{"unknown policy", func(c *ConfigData) { c.Run.OnOverlayError = "retry" }, false},
		{"negative workers", func(c *ConfigData) { c.Run.Workers = -1 }, false},
		{"negative timeout", func(c *ConfigData) { c.Run.Timeout = -time.Second }, false},
		{"threshold too high", func(c *ConfigData) { c.Mask.Threshold = 300 }, false},
		{"unknown report", func(c *ConfigData) { c.Output.ReportFormat = "xlsx" }, false},
		{"sqlite without path", func(c *ConfigData) { c.Output.SQLite = &SQLiteData{} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
