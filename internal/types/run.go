package types

import (
	"fmt"
	"time"

	"github.com/chrissnell/riveractivity/internal/mor"
	"github.com/google/uuid"
)

// Run is one completed T1/T2 computation together with the metadata every
// result writer needs to label its output.
type Run struct {
	ID         uuid.UUID
	River      string
	T1Label    string
	T2Label    string
	YearT1     int
	YearT2     int
	CRS        string
	StartedAt  time.Time
	FinishedAt time.Time
	Result     *mor.Result
}

// NewRun returns a Run with a fresh identifier and StartedAt set to now.
func NewRun(river string, yearT1, yearT2 int) *Run {
	return &Run{
		ID:        uuid.New(),
		River:     river,
		YearT1:    yearT1,
		YearT2:    yearT2,
		StartedAt: time.Now().UTC(),
	}
}

// Tag is the <river>_<yearA>_<yearB> suffix shared by every output file name.
func (r *Run) Tag() string {
	river := r.River
	if river == "" {
		river = "river"
	}
	return fmt.Sprintf("%s_%s_%s", river, yearLabel(r.YearT1, r.T1Label), yearLabel(r.YearT2, r.T2Label))
}

// OutputFolder is the directory name a run's files are written into.
func (r *Run) OutputFolder() string {
	return fmt.Sprintf("RIVER_ACTIVITY_%s_%s", yearLabel(r.YearT1, r.T1Label), yearLabel(r.YearT2, r.T2Label))
}

// Duration reports how long the run took, or zero if it has not finished.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func yearLabel(year int, label string) string {
	if year > 0 {
		return fmt.Sprintf("%d", year)
	}
	if label != "" {
		return label
	}
	return "unknown"
}
