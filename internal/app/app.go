// Package app wires configuration, input loading, the change engine and the
// result writers into a single run.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chrissnell/riveractivity/internal/log"
	"github.com/chrissnell/riveractivity/internal/managers"
	"github.com/chrissnell/riveractivity/internal/mor"
	"github.com/chrissnell/riveractivity/internal/provider"
	"github.com/chrissnell/riveractivity/internal/raster"
	"github.com/chrissnell/riveractivity/internal/types"
	"github.com/chrissnell/riveractivity/pkg/config"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// LogFileName is written into the output folder when output.log-file is set
const LogFileName = "process_log.txt"

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger

	// Debug is passed on when the log file sink is attached
	Debug bool

	// Workers overrides run.workers when positive
	Workers int

	// Progress is called after each section completes
	Progress func(done, total int, sectionID string)

	// Console receives the per-section table; nil disables it
	Console io.Writer
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &App{
		configProvider: configProvider,
		logger:         logger,
		Console:        os.Stdout,
	}
}

// inputs is everything loaded from disk for one run
type inputs struct {
	t1, t2, sections *provider.Layer
	crs              *provider.CRS
}

// Run performs one T1/T2 computation and hands the result to every
// configured writer.
func (a *App) Run(ctx context.Context) (run *types.Run, err error) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if a.Workers > 0 {
		cfg.Run.Workers = a.Workers
	}

	in, err := a.loadInputs(cfg)
	if err != nil {
		return nil, err
	}

	run, err = newRun(cfg, in)
	if err != nil {
		return nil, err
	}

	t1, err := mor.NewSnapshot(run.T1Label, run.YearT1, in.t1.Polygons())
	if err != nil {
		return nil, err
	}
	t2, err := mor.NewSnapshot(run.T2Label, run.YearT2, in.t2.Polygons())
	if err != nil {
		return nil, err
	}
	polys, ids, err := in.sections.Sections(cfg.Sections.IDField, cfg.Sections.Dissolve)
	if err != nil {
		return nil, err
	}

	// Validate before anything is written to the output folder.
	if err := mor.CheckProjected(in.crs.SR); err != nil {
		return nil, err
	}
	if _, err := mor.BuildSections(polys, ids); err != nil {
		return nil, err
	}

	dir := outputDir(cfg.Output, run)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output folder: %w", err)
	}
	if cfg.Output.LogFile {
		if err := log.InitWithFile(a.Debug, filepath.Join(dir, LogFileName)); err != nil {
			return nil, err
		}
		a.logger = log.GetSugaredLogger()
	}
	a.logger.Infow("starting river activity run",
		"run", run.ID, "river", run.River, "t1", run.T1Label, "t2", run.T2Label, "crs", run.CRS, "output", dir)

	sm, err := managers.NewStorageManager(ctx, cfg.Output, dir, a.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, sm.Close())
	}()

	res, err := mor.Run(ctx, mor.Input{
		Reference:       in.crs.SR,
		SectionPolygons: polys,
		SectionIDs:      ids,
		T1:              t1,
		T2:              t2,
	}, mor.Options{
		Workers:        cfg.Run.Workers,
		Timeout:        cfg.Run.Timeout,
		OnOverlayError: mor.OverlayErrorPolicy(cfg.Run.OnOverlayError),
		Tolerance:      cfg.Run.Tolerance,
		KeepGeometry:   sm.NeedsGeometry(),
		CheckOverlaps:  cfg.Run.CheckOverlaps,
		Progress:       a.Progress,
		Logger:         a.logger,
	})
	if err != nil {
		return nil, err
	}
	run.Result = res
	run.FinishedAt = time.Now().UTC()

	if a.Console != nil {
		if err := WriteTable(a.Console, run); err != nil {
			a.logger.Warnw("could not print result table", "error", err)
		}
	}

	if err := sm.WriteRun(ctx, run); err != nil {
		return run, err
	}
	a.logger.Infow("run finished", "run", run.ID, "duration", run.Duration())
	return run, nil
}

func maskOptions(m config.MaskData) raster.MaskOptions {
	return raster.MaskOptions{
		Threshold:        uint8(m.Threshold),
		ClosingRadius:    m.ClosingRadius,
		RequireWorldFile: m.RequireWorldFile,
	}
}

// loadInputs reads the three layers and brings them into one projected
// reference system.
func (a *App) loadInputs(cfg *config.ConfigData) (*inputs, error) {
	mask := maskOptions(cfg.Mask)

	var (
		in  inputs
		err error
	)
	if in.t1, err = provider.LoadLayer(cfg.T1.Path, provider.LoadOptions{CRS: cfg.T1.CRS, Mask: mask}); err != nil {
		return nil, err
	}
	if in.t2, err = provider.LoadLayer(cfg.T2.Path, provider.LoadOptions{CRS: cfg.T2.CRS, Mask: mask}); err != nil {
		return nil, err
	}
	var fields []string
	if cfg.Sections.IDField != "" {
		fields = []string{cfg.Sections.IDField}
	}
	if in.sections, err = provider.LoadLayer(cfg.Sections.Path, provider.LoadOptions{
		Fields: fields,
		CRS:    cfg.Sections.CRS,
		Mask:   mask,
	}); err != nil {
		return nil, err
	}

	layers := []*provider.Layer{in.t1, in.t2, in.sections}
	for _, l := range layers {
		if l.Skipped > 0 {
			a.logger.Warnw("non-polygon features ignored", "path", l.Path, "skipped", l.Skipped)
		}
	}

	if cfg.CRS.Target != "" {
		in.crs, err = provider.ParseCRS(cfg.CRS.Target)
	} else {
		in.crs, err = provider.ResolveReference(layers...)
	}
	if err != nil {
		return nil, err
	}
	if err := reprojectAll(layers, in.crs, a.logger); err != nil {
		return nil, err
	}

	if in.crs.IsGeographic() && cfg.CRS.AutoUTM {
		b := in.t1.Bounds()
		b.Extend(in.t2.Bounds())
		b.Extend(in.sections.Bounds())
		utm, err := provider.AutoUTM(b)
		if err != nil {
			return nil, err
		}
		a.logger.Infow("inputs are geographic, switching to UTM", "crs", utm.Definition)
		if err := reprojectAll(layers, utm, a.logger); err != nil {
			return nil, err
		}
		in.crs = utm
	}
	return &in, nil
}

func reprojectAll(layers []*provider.Layer, crs *provider.CRS, logger *zap.SugaredLogger) error {
	for _, l := range layers {
		if l.CRS == nil {
			logger.Warnw("input declares no reference system, assuming the run CRS", "path", l.Path, "crs", crs.Definition)
		} else if !l.CRS.Equal(crs) {
			logger.Infow("reprojecting input", "path", l.Path, "from", l.CRS.Definition, "to", crs.Definition)
		}
		if err := l.ReprojectTo(crs); err != nil {
			return err
		}
	}
	return nil
}

// newRun fills run metadata from configuration, falling back to what the
// snapshot file names tell.
func newRun(cfg *config.ConfigData, in *inputs) (*types.Run, error) {
	y1, y2 := cfg.T1.Year, cfg.T2.Year
	if y1 == 0 {
		y1, _ = provider.DetectYear(cfg.T1.Path)
	}
	if y2 == 0 {
		y2, _ = provider.DetectYear(cfg.T2.Path)
	}
	if y1 != 0 && y2 != 0 && y1 >= y2 {
		return nil, fmt.Errorf("%w: t1 year %d must be before t2 year %d", config.ErrInvalidConfig, y1, y2)
	}

	river := cfg.River
	if river == "" {
		river = provider.DetectRiverName(cfg.T1.Path, cfg.T2.Path)
	}

	run := types.NewRun(provider.FileSafe(river), y1, y2)
	run.T1Label = label(cfg.T1)
	run.T2Label = label(cfg.T2)
	run.CRS = in.crs.Definition
	return run, nil
}

func label(s config.SnapshotData) string {
	if s.Label != "" {
		return s.Label
	}
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func outputDir(o config.OutputData, run *types.Run) string {
	dir := o.Dir
	if dir == "" {
		dir = "."
	}
	if o.RunFolder {
		dir = filepath.Join(dir, run.OutputFolder())
	}
	return dir
}
