package config

import (
	"errors"
	"fmt"
	"time"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration of one run
type ConfigData struct {
	River    string       `json:"river,omitempty"`
	T1       SnapshotData `json:"t1"`
	T2       SnapshotData `json:"t2"`
	Sections SectionsData `json:"sections"`
	CRS      CRSData      `json:"crs,omitempty"`
	Mask     MaskData     `json:"mask,omitempty"`
	Run      RunData      `json:"run,omitempty"`
	Output   OutputData   `json:"output,omitempty"`
}

// SnapshotData locates one channel observation
type SnapshotData struct {
	Path  string `json:"path"`
	Label string `json:"label,omitempty"`
	Year  int    `json:"year,omitempty"`
	CRS   string `json:"crs,omitempty"`
}

// SectionsData locates the valley partition
type SectionsData struct {
	Path     string `json:"path"`
	IDField  string `json:"id_field,omitempty"`
	Dissolve bool   `json:"dissolve,omitempty"`
	CRS      string `json:"crs,omitempty"`
}

// CRSData controls reference system unification
type CRSData struct {
	Target  string `json:"target,omitempty"`
	AutoUTM bool   `json:"auto_utm,omitempty"`
}

// MaskData configures raster channel masks
type MaskData struct {
	Threshold        int     `json:"threshold,omitempty"`
	ClosingRadius    float64 `json:"closing_radius,omitempty"`
	RequireWorldFile bool    `json:"require_world_file,omitempty"`
}

// RunData tunes the computation
type RunData struct {
	Workers        int           `json:"workers,omitempty"`
	Timeout        time.Duration `json:"timeout,omitempty"`
	OnOverlayError string        `json:"on_overlay_error,omitempty"`
	Tolerance      float64       `json:"tolerance,omitempty"`
	CheckOverlaps  bool          `json:"check_overlaps,omitempty"`
}

// OutputData holds the configuration for the result writers.
// More than one writer can be used simultaneously
type OutputData struct {
	Dir          string        `json:"dir,omitempty"`
	RunFolder    bool          `json:"run_folder,omitempty"`
	LogFile      bool          `json:"log_file,omitempty"`
	Shapefiles   bool          `json:"shapefiles,omitempty"`
	ReportFormat string        `json:"report_format,omitempty"`
	SQLite       *SQLiteData   `json:"sqlite,omitempty"`
	Postgres     *PostgresData `json:"postgres,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type PostgresData struct {
	ConnectionString string `json:"connection_string"`
}

// ErrInvalidConfig is matched by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the configuration before any input is read
func (c *ConfigData) Validate() error {
	if c.T1.Path == "" || c.T2.Path == "" {
		return invalid("both t1.path and t2.path are required")
	}
	if c.Sections.Path == "" {
		return invalid("sections.path is required")
	}
	if c.T1.Year != 0 && c.T2.Year != 0 && c.T1.Year >= c.T2.Year {
		return invalid("t1 year %d must be before t2 year %d", c.T1.Year, c.T2.Year)
	}
	switch c.Run.OnOverlayError {
	case "", "abort", "skip":
	default:
		return invalid("unknown on-overlay-error policy %q", c.Run.OnOverlayError)
	}
	if c.Run.Workers < 0 {
		return invalid("workers must not be negative")
	}
	if c.Run.Timeout < 0 {
		return invalid("timeout must not be negative")
	}
	if c.Run.Tolerance < 0 {
		return invalid("tolerance must not be negative")
	}
	if c.Mask.Threshold < 0 || c.Mask.Threshold > 255 {
		return invalid("mask threshold %d outside 0-255", c.Mask.Threshold)
	}
	switch c.Output.ReportFormat {
	case "", "json", "msgpack", "none":
	default:
		return invalid("unknown report format %q", c.Output.ReportFormat)
	}
	if c.Output.SQLite != nil && c.Output.SQLite.Path == "" {
		return invalid("output.sqlite.path is required when sqlite output is configured")
	}
	if c.Output.Postgres != nil && c.Output.Postgres.ConnectionString == "" {
		return invalid("output.postgres.connection-string is required when postgres output is configured")
	}
	return nil
}
