package app

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chrissnell/riveractivity/internal/storage"
	"github.com/chrissnell/riveractivity/internal/types"
)

// WriteTable prints the per-section results of run followed by the valley
// totals.
func WriteTable(w io.Writer, run *types.Run) error {
	if run == nil || run.Result == nil {
		return fmt.Errorf("run has no result")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "SECTION\tAREA\tEROSION\tDEPOSITION\tPERSISTENCE\tMIGRATION\tOCCUPATION\t\n")
	for _, r := range storage.Rows(run) {
		switch {
		case r.Skipped:
			fmt.Fprintf(tw, "%s\t%.2f\t-\t-\t-\t-\tskipped\t\n", r.SectionID, r.SectionArea)
		default:
			note := fmt.Sprintf("%.4f", r.OccupationRate)
			if r.Degenerate {
				note = "degenerate"
			}
			fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.4f\t%s\t\n",
				r.SectionID, r.SectionArea, r.ErosionArea, r.DepositionArea, r.PersistenceArea, r.MigrationRate, note)
		}
	}

	s := run.Result.Summary
	fmt.Fprintf(tw, "TOTAL\t%.2f\t%.2f\t%.2f\t%.2f\t%.4f\t%.4f\t\n",
		s.TotalSectionArea, s.TotalErosion, s.TotalDeposition, s.TotalPersistence, s.MeanMigrationRate, s.MeanOccupationRate)
	return tw.Flush()
}
