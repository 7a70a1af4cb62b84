// Package report writes a run's per-section table and valley summary to a
// single JSON or MessagePack file.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chrissnell/riveractivity/internal/mor"
	"github.com/chrissnell/riveractivity/internal/storage"
	"github.com/chrissnell/riveractivity/internal/types"
	"github.com/chrissnell/riveractivity/pkg/reportformat"
	"go.uber.org/zap"
)

// Document is the content of a summary report
type Document struct {
	RunID      string               `json:"run_id"`
	River      string               `json:"river"`
	T1Label    string               `json:"t1_label"`
	T2Label    string               `json:"t2_label"`
	YearT1     int                  `json:"year_t1,omitempty"`
	YearT2     int                  `json:"year_t2,omitempty"`
	CRS        string               `json:"crs"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Seconds    float64              `json:"duration_seconds"`
	Sections   []storage.SectionRow `json:"sections"`
	Summary    mor.ValleySummary    `json:"summary"`
}

// NewDocument builds the report content of run
func NewDocument(run *types.Run) *Document {
	d := &Document{
		RunID:      run.ID.String(),
		River:      run.River,
		T1Label:    run.T1Label,
		T2Label:    run.T2Label,
		YearT1:     run.YearT1,
		YearT2:     run.YearT2,
		CRS:        run.CRS,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Seconds:    run.Duration().Seconds(),
		Sections:   storage.Rows(run),
	}
	if run.Result != nil {
		d.Summary = run.Result.Summary
	}
	return d
}

// Writer writes SUMMARY_<river>_<yearA>_<yearB>.<ext> into Dir
type Writer struct {
	Dir       string
	format    reportformat.Format
	formatter *reportformat.Formatter
	logger    *zap.SugaredLogger
}

// New returns a report writer for dir in the given format
func New(dir string, format reportformat.Format, logger *zap.SugaredLogger) (*Writer, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory %s: %w", dir, err)
	}
	return &Writer{
		Dir:       dir,
		format:    format,
		formatter: reportformat.NewFormatter(),
		logger:    logger,
	}, nil
}

// Name identifies the backend in logs
func (w *Writer) Name() string {
	return "report"
}

// Path returns the report file of run
func (w *Writer) Path(run *types.Run) string {
	return filepath.Join(w.Dir, fmt.Sprintf("SUMMARY_%s.%s", run.Tag(), w.format.Extension()))
}

// WriteRun encodes the run's report, replacing any previous file
func (w *Writer) WriteRun(ctx context.Context, run *types.Run) error {
	if run == nil || run.Result == nil {
		return fmt.Errorf("report: run has no result")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path := w.Path(run)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := w.formatter.Write(f, w.format, NewDocument(run)); err != nil {
		f.Close()
		return fmt.Errorf("report: encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	w.logger.Infow("summary report written", "path", path, "format", w.format)
	return nil
}

// Close is a no-op
func (w *Writer) Close() error {
	return nil
}
