package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRunNaming(t *testing.T) {
	tests := []struct {
		name   string
		run    Run
		tag    string
		folder string
	}{
		{
			name:   "years known",
			run:    Run{River: "Ucayali", YearT1: 1986, YearT2: 2016},
			tag:    "Ucayali_1986_2016",
			folder: "RIVER_ACTIVITY_1986_2016",
		},
		{
			name:   "labels when years are missing",
			run:    Run{River: "Ucayali", T1Label: "early", T2Label: "late"},
			tag:    "Ucayali_early_late",
			folder: "RIVER_ACTIVITY_early_late",
		},
		{
			name:   "no river name",
			run:    Run{YearT1: 2000},
			tag:    "river_2000_unknown",
			folder: "RIVER_ACTIVITY_2000_unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.tag, tt.run.Tag())
			assert.Equal(t, tt.folder, tt.run.OutputFolder())
		})
	}
}

func TestNewRun(t *testing.T) {
	r := NewRun("Madre de Dios", 1990, 2020)
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.False(t, r.StartedAt.IsZero())
	assert.Zero(t, r.Duration())

	r.FinishedAt = r.StartedAt.Add(3 * time.Second)
	assert.Equal(t, 3*time.Second, r.Duration())
}
