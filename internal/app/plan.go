package app

import (
	"github.com/chrissnell/riveractivity/pkg/config"
)

// Plan is what a run would do, resolved from configuration and inputs
// without computing any overlay.
type Plan struct {
	River      string
	T1Label    string
	T2Label    string
	YearT1     int
	YearT2     int
	CRS        string
	T1Features int
	T2Features int
	Sections   int
	OutputDir  string
	Writers    []string
}

// Plan loads and validates the configuration and inputs of a run.
func (a *App) Plan() (*Plan, error) {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	in, err := a.loadInputs(cfg)
	if err != nil {
		return nil, err
	}
	run, err := newRun(cfg, in)
	if err != nil {
		return nil, err
	}
	_, ids, err := in.sections.Sections(cfg.Sections.IDField, cfg.Sections.Dissolve)
	if err != nil {
		return nil, err
	}

	return &Plan{
		River:      run.River,
		T1Label:    run.T1Label,
		T2Label:    run.T2Label,
		YearT1:     run.YearT1,
		YearT2:     run.YearT2,
		CRS:        run.CRS,
		T1Features: len(in.t1.Features),
		T2Features: len(in.t2.Features),
		Sections:   len(ids),
		OutputDir:  outputDir(cfg.Output, run),
		Writers:    writerNames(cfg.Output),
	}, nil
}

// writerNames lists the writers NewStorageManager would enable, in order
func writerNames(o config.OutputData) []string {
	var names []string
	if o.ReportFormat != "none" {
		names = append(names, "report")
	}
	if o.Shapefiles {
		names = append(names, "shapefile")
	}
	if o.SQLite != nil {
		names = append(names, "sqlite")
	}
	if o.Postgres != nil {
		names = append(names, "postgres")
	}
	return names
}
