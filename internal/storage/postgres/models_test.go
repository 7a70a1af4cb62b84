package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/chrissnell/riveractivity/internal/mor"
	"github.com/chrissnell/riveractivity/internal/storage/storagetest"
	"github.com/chrissnell/riveractivity/internal/types"
	"github.com/jackc/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRecords(t *testing.T) {
	run := storagetest.Run(t, false)

	rec, err := toRecords(run)
	require.NoError(t, err)

	assert.Equal(t, run.ID, rec.ID)
	assert.Equal(t, "Ucayali", rec.River)
	assert.Equal(t, 1986, rec.YearT1)
	assert.Equal(t, 2016, rec.YearT2)
	require.NotNil(t, rec.FinishedAt)
	assert.True(t, rec.FinishedAt.After(rec.StartedAt))

	require.Len(t, rec.Sections, 3)
	for i, s := range rec.Sections {
		assert.Equal(t, run.ID, s.RunID)
		assert.Equal(t, i, s.Position)
	}
	assert.Equal(t, "A", rec.Sections[0].SectionID)
	assert.InDelta(t, 20, rec.Sections[0].ErosionArea, 1e-6)
	assert.InDelta(t, 0.4, rec.Sections[0].MigrationRate, 1e-6)

	assert.Equal(t, pgtype.Present, rec.Summary.Status)
	var sum mor.ValleySummary
	require.NoError(t, json.Unmarshal(rec.Summary.Bytes, &sum))
	assert.Equal(t, 3, sum.Sections)
	assert.InDelta(t, run.Result.Summary.TotalErosion, sum.TotalErosion, 1e-9)
}

func TestToRecordsUnfinishedRun(t *testing.T) {
	run := storagetest.Run(t, false)
	run.FinishedAt = time.Time{}

	rec, err := toRecords(run)
	require.NoError(t, err)
	assert.Nil(t, rec.FinishedAt)
}

func TestToRecordsRejectsEmptyRun(t *testing.T) {
	_, err := toRecords(nil)
	assert.Error(t, err)

	_, err = toRecords(types.NewRun("Ucayali", 1986, 2016))
	assert.Error(t, err)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "river_activity_runs", RunRecord{}.TableName())
	assert.Equal(t, "river_activity_sections", SectionRecord{}.TableName())
}
