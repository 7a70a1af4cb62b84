package mor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeActivity(t *testing.T) {
	tests := []struct {
		name       string
		rec        ChangeRecord
		migration  float64
		occupation float64
		degenerate bool
	}{
		{
			name:       "stable channel",
			rec:        ChangeRecord{SectionID: "a", PersistenceArea: 30, SectionArea: 100},
			occupation: 0.3,
		},
		{
			name:      "new channel",
			rec:       ChangeRecord{SectionID: "b", DepositionArea: 30, SectionArea: 100},
			migration: 0.3,
		},
		{
			name:       "mixed",
			rec:        ChangeRecord{SectionID: "c", ErosionArea: 20, DepositionArea: 20, PersistenceArea: 10, SectionArea: 100},
			migration:  0.4,
			occupation: 0.1,
		},
		{
			name:       "zero area section",
			rec:        ChangeRecord{SectionID: "d", SectionArea: 0},
			degenerate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := ComputeActivity(&tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.rec.SectionID, idx.SectionID)
			assert.InDelta(t, tt.migration, idx.MigrationRate, eps)
			assert.InDelta(t, tt.occupation, idx.OccupationRate, eps)
			assert.Equal(t, tt.degenerate, idx.Degenerate)
		})
	}
}

func TestComputeActivitySurfacesInvariantViolations(t *testing.T) {
	bad := []ChangeRecord{
		{SectionID: "neg", ErosionArea: -1, SectionArea: 10},
		{SectionID: "nan", DepositionArea: math.NaN(), SectionArea: 10},
		{SectionID: "negarea", SectionArea: -5},
	}
	for _, rec := range bad {
		t.Run(rec.SectionID, func(t *testing.T) {
			_, err := ComputeActivity(&rec)
			var inv *InvariantError
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, rec.SectionID, inv.SectionID)
			assert.ErrorIs(t, err, ErrInvariant)
		})
	}
}

func TestAnnualRate(t *testing.T) {
	assert.InDelta(t, 0.04, AnnualRate(0.4, 2000, 2010), eps)
	assert.Zero(t, AnnualRate(0.4, 0, 2010))
	assert.Zero(t, AnnualRate(0.4, 2010, 2000))
	assert.Zero(t, AnnualRate(0.4, 2010, 2010))
}

func TestSummarize(t *testing.T) {
	var indices []ActivityIndex
	for _, rec := range []ChangeRecord{
		{SectionID: "a", ErosionArea: 10, DepositionArea: 10, PersistenceArea: 30, SectionArea: 100},
		{SectionID: "b", ErosionArea: 30, DepositionArea: 30, PersistenceArea: 60, SectionArea: 300},
		{SectionID: "c", SectionArea: 0},
	} {
		idx, err := ComputeActivity(&rec)
		require.NoError(t, err)
		indices = append(indices, idx)
	}

	sum := Summarize(indices)

	assert.Equal(t, 3, sum.Sections)
	assert.InDelta(t, 400, sum.TotalSectionArea, eps)
	assert.InDelta(t, 40, sum.TotalErosion, eps)
	assert.InDelta(t, 40, sum.TotalDeposition, eps)
	assert.InDelta(t, 90, sum.TotalPersistence, eps)
	// (0.2*100 + 0.2*300) / 400
	assert.InDelta(t, 0.2, sum.MeanMigrationRate, eps)
	// (0.3*100 + 0.2*300) / 400
	assert.InDelta(t, 0.225, sum.MeanOccupationRate, eps)
	assert.Equal(t, 1, sum.DegenerateSections)
	require.Len(t, sum.Warnings, 1)
	assert.Equal(t, WarningDegenerateSection, sum.Warnings[0].Kind)
	assert.Equal(t, "c", sum.Warnings[0].SectionID)
}

func TestSummarizeFlagsRatesOutOfRange(t *testing.T) {
	idx, err := ComputeActivity(&ChangeRecord{SectionID: "x", ErosionArea: 80, DepositionArea: 80, SectionArea: 100})
	require.NoError(t, err)

	sum := Summarize([]ActivityIndex{idx})
	require.Len(t, sum.Warnings, 1)
	assert.Equal(t, WarningRateOutOfRange, sum.Warnings[0].Kind)
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(nil)
	assert.Zero(t, sum.Sections)
	assert.Zero(t, sum.MeanMigrationRate)
}
