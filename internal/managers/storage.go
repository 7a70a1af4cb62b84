package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/riveractivity/internal/storage"
	"github.com/chrissnell/riveractivity/internal/storage/postgres"
	"github.com/chrissnell/riveractivity/internal/storage/report"
	"github.com/chrissnell/riveractivity/internal/storage/shapefile"
	"github.com/chrissnell/riveractivity/internal/storage/sqlite"
	"github.com/chrissnell/riveractivity/internal/types"
	"github.com/chrissnell/riveractivity/pkg/config"
	"github.com/chrissnell/riveractivity/pkg/reportformat"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// StorageManager holds our active result writers
type StorageManager struct {
	Writers []storage.ResultWriter
	logger  *zap.SugaredLogger
}

// NewStorageManager creates a StorageManager object, populated with every
// writer enabled in the output configuration. File writers put their output
// in dir.
func NewStorageManager(ctx context.Context, c config.OutputData, dir string, logger *zap.SugaredLogger) (*StorageManager, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &StorageManager{logger: logger}

	// Check the configuration for the supported writers and enable them if found

	if c.ReportFormat != "none" {
		if err := s.AddEngine(ctx, "report", c, dir); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add report writer: %w", err)
		}
	}

	if c.Shapefiles {
		if err := s.AddEngine(ctx, "shapefile", c, dir); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add shapefile writer: %w", err)
		}
	}

	if c.SQLite != nil {
		if err := s.AddEngine(ctx, "sqlite", c, dir); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add SQLite storage backend: %w", err)
		}
	}

	if c.Postgres != nil {
		if err := s.AddEngine(ctx, "postgres", c, dir); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add PostgreSQL storage backend: %w", err)
		}
	}

	return s, nil
}

// AddEngine adds a new writer of name engineName to the manager
func (s *StorageManager) AddEngine(ctx context.Context, engineName string, c config.OutputData, dir string) error {
	var (
		w   storage.ResultWriter
		err error
	)

	switch engineName {
	case "report":
		var format reportformat.Format
		format, err = reportformat.ParseFormat(c.ReportFormat)
		if err != nil {
			return err
		}
		w, err = report.New(dir, format, s.logger)
	case "shapefile":
		w, err = shapefile.New(dir, s.logger)
	case "sqlite":
		w, err = sqlite.New(ctx, c.SQLite.Path, s.logger)
	case "postgres":
		w, err = postgres.New(ctx, c.Postgres.ConnectionString, s.logger)
	default:
		return fmt.Errorf("unknown result writer %q", engineName)
	}
	if err != nil {
		return err
	}

	s.AddWriter(w)
	return nil
}

// AddWriter registers an already constructed writer
func (s *StorageManager) AddWriter(w storage.ResultWriter) {
	s.Writers = append(s.Writers, w)
}

// NeedsGeometry reports whether any writer emits change polygons, in which
// case the run must keep them.
func (s *StorageManager) NeedsGeometry() bool {
	for _, w := range s.Writers {
		if _, ok := w.(*shapefile.Writer); ok {
			return true
		}
	}
	return false
}

// WriteRun fans run out to every writer concurrently. A failing writer does
// not stop the others; all failures are returned together.
func (s *StorageManager) WriteRun(ctx context.Context, run *types.Run) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)

	for _, w := range s.Writers {
		wg.Add(1)
		go func(w storage.ResultWriter) {
			defer wg.Done()
			if err := w.WriteRun(ctx, run); err != nil {
				s.log().Errorw("result writer failed", "writer", w.Name(), "run", run.ID, "error", err)
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", w.Name(), err))
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	return errs
}

func (s *StorageManager) log() *zap.SugaredLogger {
	if s.logger == nil {
		return zap.NewNop().Sugar()
	}
	return s.logger
}

// Close closes every writer
func (s *StorageManager) Close() error {
	var errs error
	for _, w := range s.Writers {
		if err := w.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", w.Name(), err))
		}
	}
	return errs
}
