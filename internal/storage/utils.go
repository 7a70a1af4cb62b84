package storage

import (
	"github.com/chrissnell/riveractivity/internal/types"
)

// SectionRow is the flat, per-section record shared by the tabular
// backends and the console table.
type SectionRow struct {
	Position            int     `json:"position"`
	SectionID           string  `json:"section_id"`
	SectionArea         float64 `json:"section_area"`
	ErosionArea         float64 `json:"erosion_area"`
	DepositionArea      float64 `json:"deposition_area"`
	PersistenceArea     float64 `json:"persistence_area"`
	MigrationRate       float64 `json:"migration_rate"`
	OccupationRate      float64 `json:"occupation_rate"`
	ErosionRate         float64 `json:"erosion_rate"`
	DepositionRate      float64 `json:"deposition_rate"`
	AnnualMigrationRate float64 `json:"annual_migration_rate"`
	Degenerate          bool    `json:"degenerate"`
	Skipped             bool    `json:"skipped"`
	Error               string  `json:"error,omitempty"`
}

// Rows flattens the section results of run in input order.
func Rows(run *types.Run) []SectionRow {
	if run == nil || run.Result == nil {
		return nil
	}

	rows := make([]SectionRow, 0, len(run.Result.Sections))
	for i, sr := range run.Result.Sections {
		row := SectionRow{
			Position: i,
			Skipped:  sr.Skipped,
		}
		if sr.Section != nil {
			row.SectionID = sr.Section.ID
			row.SectionArea = sr.Section.Area()
		}
		if sr.Err != nil {
			row.Error = sr.Err.Error()
		}
		if sr.Change != nil {
			row.ErosionArea = sr.Change.ErosionArea
			row.DepositionArea = sr.Change.DepositionArea
			row.PersistenceArea = sr.Change.PersistenceArea
		}
		if !sr.Skipped {
			a := sr.Activity
			row.MigrationRate = a.MigrationRate
			row.OccupationRate = a.OccupationRate
			row.ErosionRate = a.ErosionRate
			row.DepositionRate = a.DepositionRate
			row.AnnualMigrationRate = a.AnnualMigrationRate
			row.Degenerate = a.Degenerate
		}
		rows = append(rows, row)
	}
	return rows
}
