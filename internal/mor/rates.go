package mor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DegenerateAreaTolerance is the section area at or below which a section is
// treated as degenerate and all its rates are zero.
const DegenerateAreaTolerance = 1e-9

// ComputeActivity derives the activity rates of one section.
//
//	migration  = (erosion + deposition) / section area
//	occupation = persistence / section area
func ComputeActivity(rec *ChangeRecord) (ActivityIndex, error) {
	if rec == nil {
		return ActivityIndex{}, &ValidationError{Reason: "nil change record"}
	}
	fields := []struct {
		name string
		v    float64
	}{
		{"erosion area", rec.ErosionArea},
		{"deposition area", rec.DepositionArea},
		{"persistence area", rec.PersistenceArea},
		{"section area", rec.SectionArea},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return ActivityIndex{}, &InvariantError{SectionID: rec.SectionID, Field: f.name, Value: f.v}
		}
	}

	idx := ActivityIndex{
		SectionID: rec.SectionID,
		Record:    *rec,
	}
	if rec.SectionArea <= DegenerateAreaTolerance {
		idx.Degenerate = true
		return idx, nil
	}
	idx.MigrationRate = (rec.ErosionArea + rec.DepositionArea) / rec.SectionArea
	idx.OccupationRate = rec.PersistenceArea / rec.SectionArea
	idx.ErosionRate = rec.ErosionArea / rec.SectionArea
	idx.DepositionRate = rec.DepositionArea / rec.SectionArea
	return idx, nil
}

// AnnualRate spreads a rate over the years between two snapshots. It is zero
// when either year is unknown or the years are not increasing.
func AnnualRate(rate float64, yearT1, yearT2 int) float64 {
	if yearT1 <= 0 || yearT2 <= yearT1 {
		return 0
	}
	return rate / float64(yearT2-yearT1)
}

// Summarize reduces per-section indices into the valley summary. Mean rates
// are weighted by section area.
func Summarize(indices []ActivityIndex) ValleySummary {
	sum := ValleySummary{Sections: len(indices)}
	if len(indices) == 0 {
		return sum
	}

	weights := make([]float64, len(indices))
	migration := make([]float64, len(indices))
	occupation := make([]float64, len(indices))
	erosion := make([]float64, len(indices))
	deposition := make([]float64, len(indices))
	persistence := make([]float64, len(indices))

	for i, idx := range indices {
		weights[i] = idx.Record.SectionArea
		migration[i] = idx.MigrationRate
		occupation[i] = idx.OccupationRate
		erosion[i] = idx.Record.ErosionArea
		deposition[i] = idx.Record.DepositionArea
		persistence[i] = idx.Record.PersistenceArea

		if idx.Degenerate {
			sum.DegenerateSections++
			sum.Warnings = append(sum.Warnings, Warning{
				Kind:      WarningDegenerateSection,
				SectionID: idx.SectionID,
				Message:   fmt.Sprintf("section area %v is degenerate; rates set to 0", idx.Record.SectionArea),
			})
			continue
		}
		if outOfRange(idx.MigrationRate) || outOfRange(idx.OccupationRate) {
			sum.Warnings = append(sum.Warnings, Warning{
				Kind:      WarningRateOutOfRange,
				SectionID: idx.SectionID,
				Message: fmt.Sprintf("migration %.6f / occupation %.6f outside [0,1]; check for overlapping sections or unprojected input",
					idx.MigrationRate, idx.OccupationRate),
			})
		}
	}

	sum.TotalSectionArea = floats.Sum(weights)
	sum.TotalErosion = floats.Sum(erosion)
	sum.TotalDeposition = floats.Sum(deposition)
	sum.TotalPersistence = floats.Sum(persistence)
	if sum.TotalSectionArea > 0 {
		sum.MeanMigrationRate = stat.Mean(migration, weights)
		sum.MeanOccupationRate = stat.Mean(occupation, weights)
	}
	return sum
}

func outOfRange(rate float64) bool {
	return rate < -DefaultTolerance || rate > 1+DefaultTolerance
}
