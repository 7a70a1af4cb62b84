package mor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OverlayErrorPolicy decides what a run does when one section's overlay fails.
type OverlayErrorPolicy string

const (
	// PolicyAbort stops the run on the first overlay failure.
	PolicyAbort OverlayErrorPolicy = "abort"

	// PolicySkip records the failing section in the summary and continues.
	PolicySkip OverlayErrorPolicy = "skip"
)

// Input is everything one run needs. All geometry shares Reference.
type Input struct {
	Reference       *proj.SR
	SectionPolygons []geom.Polygonal
	SectionIDs      []string
	T1              *Snapshot
	T2              *Snapshot
}

// Options tunes a run. The zero value runs serially with no time budget and
// aborts on overlay failures.
type Options struct {
	Workers        int
	Timeout        time.Duration
	OnOverlayError OverlayErrorPolicy
	Tolerance      float64
	KeepGeometry   bool
	CheckOverlaps  bool
	Progress       func(done, total int, sectionID string)
	Logger         *zap.SugaredLogger
}

// SectionResult is the output row of one section, in input order.
type SectionResult struct {
	Section  *Section
	Change   *ChangeRecord
	Activity ActivityIndex
	Geometry *ChangeGeometry
	Skipped  bool
	Err      error
}

// Result is the complete output of a run.
type Result struct {
	Sections []SectionResult
	Summary  ValleySummary
}

// CheckProjected fails when sr describes a geographic (degree based)
// reference system. A nil reference is accepted as projected.
func CheckProjected(sr *proj.SR) error {
	if sr == nil {
		return nil
	}
	if sr.Name == "longlat" || sr.Name == "latlong" {
		return &UnprojectedInputError{Reference: sr.Name}
	}
	return nil
}

// Run performs one single-pair computation: validation, per-section overlay,
// rate derivation and the valley summary.
func Run(ctx context.Context, in Input, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.OnOverlayError == "" {
		opts.OnOverlayError = PolicyAbort
	}
	if opts.OnOverlayError != PolicyAbort && opts.OnOverlayError != PolicySkip {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown overlay error policy %q", opts.OnOverlayError)}
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}

	if err := CheckProjected(in.Reference); err != nil {
		return nil, err
	}
	if in.T1 == nil || in.T2 == nil {
		return nil, &ValidationError{Reason: "both snapshots are required"}
	}

	sections, err := BuildSections(in.SectionPolygons, in.SectionIDs)
	if err != nil {
		return nil, err
	}
	logger.Infow("sections validated", "sections", len(sections), "t1", in.T1.Label, "t2", in.T2.Label)

	var overlapWarnings []Warning
	if opts.CheckOverlaps {
		overlapWarnings = NewPartition(sections).CheckOverlaps(opts.Tolerance)
		for _, w := range overlapWarnings {
			logger.Warnw("sections overlap", "section", w.SectionID, "detail", w.Message)
		}
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	r := &runner{
		in:       in,
		opts:     opts,
		logger:   logger,
		sections: sections,
		results:  make([]SectionResult, len(sections)),
	}
	if opts.Workers > 1 {
		err = r.runParallel(runCtx)
	} else {
		err = r.runSerial(runCtx)
	}

	if r.done < len(sections) {
		if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, &TimeoutError{Budget: opts.Timeout, Completed: r.done, Total: len(sections)}
		}
		if err == nil {
			err = runCtx.Err()
		}
		if err == nil {
			err = fmt.Errorf("run stopped after %d of %d sections", r.done, len(sections))
		}
	}
	if err != nil {
		return nil, err
	}

	indices := make([]ActivityIndex, 0, len(sections))
	var skipped []string
	var skipWarnings []Warning
	for _, res := range r.results {
		if res.Skipped {
			skipped = append(skipped, res.Section.ID)
			skipWarnings = append(skipWarnings, Warning{
				Kind:      WarningOverlaySkipped,
				SectionID: res.Section.ID,
				Message:   res.Err.Error(),
			})
			continue
		}
		indices = append(indices, res.Activity)
	}

	summary := Summarize(indices)
	summary.Skipped = skipped
	summary.Warnings = append(append(overlapWarnings, summary.Warnings...), skipWarnings...)

	logger.Infow("run complete",
		"sections", summary.Sections,
		"skipped", len(skipped),
		"degenerate", summary.DegenerateSections,
		"mean_migration_rate", summary.MeanMigrationRate)

	return &Result{Sections: r.results, Summary: summary}, nil
}

type runner struct {
	in       Input
	opts     Options
	logger   *zap.SugaredLogger
	sections []*Section
	results  []SectionResult

	mu   sync.Mutex
	done int
}

func (r *runner) runSerial(ctx context.Context) error {
	for i := range r.sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.process(i); err != nil {
			return err
		}
	}
	return nil
}

// runParallel spreads sections over a bounded worker pool. Each worker writes
// only its own slot of results, so output order is the input order.
func (r *runner) runParallel(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := range r.sections {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return r.process(i)
		})
	}
	return g.Wait()
}

func (r *runner) process(i int) error {
	s := r.sections[i]
	res := SectionResult{Section: s}

	rec, g, err := computeChange(s, r.in.T1, r.in.T2, r.opts.Tolerance)
	if err != nil {
		var overlayErr *GeometryOverlayError
		if r.opts.OnOverlayError == PolicySkip && errors.As(err, &overlayErr) {
			r.logger.Warnw("skipping section after overlay failure", "section", s.ID, "error", err)
			res.Skipped = true
			res.Err = err
			r.results[i] = res
			r.finish(s.ID)
			return nil
		}
		return err
	}

	idx, err := ComputeActivity(rec)
	if err != nil {
		return err
	}
	idx.AnnualMigrationRate = AnnualRate(idx.MigrationRate, r.in.T1.Year, r.in.T2.Year)

	res.Change = rec
	res.Activity = idx
	if r.opts.KeepGeometry {
		res.Geometry = g
	}
	r.results[i] = res

	r.logger.Debugw("section processed",
		"section", s.ID,
		"erosion", rec.ErosionArea,
		"deposition", rec.DepositionArea,
		"persistence", rec.PersistenceArea,
		"migration_rate", idx.MigrationRate)
	r.finish(s.ID)
	return nil
}

func (r *runner) finish(sectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
	if r.opts.Progress != nil {
		r.opts.Progress(r.done, len(r.sections), sectionID)
	}
}
