package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseYAML(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", y.filename, err)
	}

	y.config = config
	return config, nil
}

// ParseYAML converts a YAML document into ConfigData
func ParseYAML(data []byte) (*ConfigData, error) {
	// Load into temporary struct with YAML tags
	var yamlConfig ConfigYAML
	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return nil, err
	}

	var timeout time.Duration
	if yamlConfig.Run.Timeout != "" {
		var err error
		timeout, err = time.ParseDuration(yamlConfig.Run.Timeout)
		if err != nil {
			return nil, fmt.Errorf("run.timeout: %w", err)
		}
	}

	// Convert to our internal format
	config := &ConfigData{
		River:    yamlConfig.River,
		T1:       SnapshotData(yamlConfig.T1),
		T2:       SnapshotData(yamlConfig.T2),
		Sections: SectionsData(yamlConfig.Sections),
		CRS:      CRSData(yamlConfig.CRS),
		Mask:     MaskData(yamlConfig.Mask),
		Run: RunData{
			Workers:        yamlConfig.Run.Workers,
			Timeout:        timeout,
			OnOverlayError: yamlConfig.Run.OnOverlayError,
			Tolerance:      yamlConfig.Run.Tolerance,
			CheckOverlaps:  yamlConfig.Run.CheckOverlaps,
		},
		Output: OutputData{
			Dir:          yamlConfig.Output.Dir,
			RunFolder:    yamlConfig.Output.RunFolder,
			LogFile:      yamlConfig.Output.LogFile,
			Shapefiles:   yamlConfig.Output.Shapefiles,
			ReportFormat: yamlConfig.Output.ReportFormat,
		},
	}

	if yamlConfig.Output.SQLite != nil {
		config.Output.SQLite = &SQLiteData{Path: yamlConfig.Output.SQLite.Path}
	}
	if yamlConfig.Output.Postgres != nil {
		config.Output.Postgres = &PostgresData{
			ConnectionString: yamlConfig.Output.Postgres.ConnectionString,
		}
	}

	return config, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags
type ConfigYAML struct {
	River    string       `yaml:"river,omitempty"`
	T1       SnapshotYAML `yaml:"t1"`
	T2       SnapshotYAML `yaml:"t2"`
	Sections SectionsYAML `yaml:"sections"`
	CRS      CRSYAML      `yaml:"crs,omitempty"`
	Mask     MaskYAML     `yaml:"mask,omitempty"`
	Run      RunYAML      `yaml:"run,omitempty"`
	Output   OutputYAML   `yaml:"output,omitempty"`
}

type SnapshotYAML struct {
	Path  string `yaml:"path"`
	Label string `yaml:"label,omitempty"`
	Year  int    `yaml:"year,omitempty"`
	CRS   string `yaml:"crs,omitempty"`
}

type SectionsYAML struct {
	Path     string `yaml:"path"`
	IDField  string `yaml:"id-field,omitempty"`
	Dissolve bool   `yaml:"dissolve,omitempty"`
	CRS      string `yaml:"crs,omitempty"`
}

type CRSYAML struct {
	Target  string `yaml:"target,omitempty"`
	AutoUTM bool   `yaml:"auto-utm,omitempty"`
}

type MaskYAML struct {
	Threshold        int     `yaml:"threshold,omitempty"`
	ClosingRadius    float64 `yaml:"closing-radius,omitempty"`
	RequireWorldFile bool    `yaml:"require-world-file,omitempty"`
}

type RunYAML struct {
	Workers        int     `yaml:"workers,omitempty"`
	Timeout        string  `yaml:"timeout,omitempty"`
	OnOverlayError string  `yaml:"on-overlay-error,omitempty"`
	Tolerance      float64 `yaml:"tolerance,omitempty"`
	CheckOverlaps  bool    `yaml:"check-overlaps,omitempty"`
}

type OutputYAML struct {
	Dir          string        `yaml:"dir,omitempty"`
	RunFolder    bool          `yaml:"run-folder,omitempty"`
	LogFile      bool          `yaml:"log-file,omitempty"`
	Shapefiles   bool          `yaml:"shapefiles,omitempty"`
	ReportFormat string        `yaml:"report-format,omitempty"`
	SQLite       *SQLiteYAML   `yaml:"sqlite,omitempty"`
	Postgres     *PostgresYAML `yaml:"postgres,omitempty"`
}

type SQLiteYAML struct {
	Path string `yaml:"path"`
}

type PostgresYAML struct {
	ConnectionString string `yaml:"connection-string"`
}
