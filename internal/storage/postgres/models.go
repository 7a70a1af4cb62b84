package postgres

import (
	"fmt"
	"time"

	"github.com/chrissnell/riveractivity/internal/storage"
	"github.com/chrissnell/riveractivity/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgtype"
)

// RunRecord is one row of river_activity_runs. The full valley summary,
// warnings included, is kept as JSONB.
type RunRecord struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey"`
	River      string       `gorm:"not null"`
	T1Label    string       `gorm:"column:t1_label"`
	T2Label    string       `gorm:"column:t2_label"`
	YearT1     int          `gorm:"column:year_t1"`
	YearT2     int          `gorm:"column:year_t2"`
	CRS        string       `gorm:"column:crs"`
	StartedAt  time.Time    `gorm:"not null"`
	FinishedAt *time.Time   `gorm:"column:finished_at"`
	Summary    pgtype.JSONB `gorm:"type:jsonb;default:'{}';not null"`

	Sections []SectionRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// TableName implements the Tabler interface for the RunRecord struct
func (RunRecord) TableName() string {
	return "river_activity_runs"
}

// SectionRecord is one section row of a run
type SectionRecord struct {
	ID                  uint      `gorm:"primaryKey;autoIncrement"`
	RunID               uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_section_run_position,priority:1"`
	Position            int       `gorm:"not null;uniqueIndex:idx_section_run_position,priority:2"`
	SectionID           string    `gorm:"column:section_id;not null"`
	SectionArea         float64
	ErosionArea         float64
	DepositionArea      float64
	PersistenceArea     float64
	MigrationRate       float64
	OccupationRate      float64
	ErosionRate         float64
	DepositionRate      float64
	AnnualMigrationRate float64
	Degenerate          bool
	Skipped             bool
	Error               string
}

// TableName implements the Tabler interface for the SectionRecord struct
func (SectionRecord) TableName() string {
	return "river_activity_sections"
}

// toRecords converts a finished run into its database rows
func toRecords(run *types.Run) (*RunRecord, error) {
	if run == nil || run.Result == nil {
		return nil, fmt.Errorf("postgres: run has no result")
	}

	rec := &RunRecord{
		ID:        run.ID,
		River:     run.River,
		T1Label:   run.T1Label,
		T2Label:   run.T2Label,
		YearT1:    run.YearT1,
		YearT2:    run.YearT2,
		CRS:       run.CRS,
		StartedAt: run.StartedAt.UTC(),
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt.UTC()
		rec.FinishedAt = &finished
	}
	if err := rec.Summary.Set(run.Result.Summary); err != nil {
		return nil, fmt.Errorf("postgres: encoding summary: %w", err)
	}

	for _, r := range storage.Rows(run) {
		rec.Sections = append(rec.Sections, SectionRecord{
			RunID:               run.ID,
			Position:            r.Position,
			SectionID:           r.SectionID,
			SectionArea:         r.SectionArea,
			ErosionArea:         r.ErosionArea,
			DepositionArea:      r.DepositionArea,
			PersistenceArea:     r.PersistenceArea,
			MigrationRate:       r.MigrationRate,
			OccupationRate:      r.OccupationRate,
			ErosionRate:         r.ErosionRate,
			DepositionRate:      r.DepositionRate,
			AnnualMigrationRate: r.AnnualMigrationRate,
			Degenerate:          r.Degenerate,
			Skipped:             r.Skipped,
			Error:               r.Error,
		})
	}
	return rec, nil
}
