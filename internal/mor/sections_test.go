package mor

import (
	"errors"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSectionsPreservesOrder(t *testing.T) {
	ids := []string{"S3", "S1", "S2"}
	polys := polygonals(rect(20, 0, 30, 10), rect(0, 0, 10, 10), rect(10, 0, 20, 10))

	sections, err := BuildSections(polys, ids)
	require.NoError(t, err)
	require.Len(t, sections, 3)

	for i, s := range sections {
		assert.Equal(t, ids[i], s.ID)
		assert.Equal(t, i, s.Index)
		assert.InDelta(t, 100, s.Area(), eps)
	}
}

func TestBuildSectionsAreaOfCornerTouchingRings(t *testing.T) {
	// Five unit squares in a checkerboard, one ring each, as a raster
	// tracer emits them. The centre ring touches the others only at its
	// corners.
	var checker geom.Polygon
	for _, c := range [][2]float64{{0, 0}, {2, 0}, {1, 1}, {0, 2}, {2, 2}} {
		checker = append(checker, rect(c[0], c[1], c[0]+1, c[1]+1)[0])
	}

	sections, err := BuildSections(polygonals(checker), []string{"S1"})
	require.NoError(t, err)
	assert.InDelta(t, 5, sections[0].Area(), eps)
}

func TestBuildSectionsRejectsInput(t *testing.T) {
	bowtie := geom.Polygon{{
		{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 0, Y: 0},
	}}
	collinear := geom.Polygon{{
		{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 0},
	}}

	tests := []struct {
		name   string
		polys  []geom.Polygonal
		ids    []string
		target interface{}
	}{
		{
			name:   "length mismatch",
			polys:  polygonals(rect(0, 0, 1, 1)),
			ids:    []string{"a", "b"},
			target: new(*ValidationError),
		},
		{
			name:   "duplicate id",
			polys:  polygonals(rect(0, 0, 1, 1), rect(1, 0, 2, 1), rect(2, 0, 3, 1)),
			ids:    []string{"a", "b", "a"},
			target: new(*DuplicateSectionIDError),
		},
		{
			name:   "empty polygon",
			polys:  polygonals(rect(0, 0, 1, 1), geom.Polygon{}),
			ids:    []string{"a", "b"},
			target: new(*DegenerateGeometryError),
		},
		{
			name:   "self intersecting ring",
			polys:  polygonals(bowtie),
			ids:    []string{"a"},
			target: new(*DegenerateGeometryError),
		},
		{
			name:   "zero area ring",
			polys:  polygonals(collinear),
			ids:    []string{"a"},
			target: new(*DegenerateGeometryError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections, err := BuildSections(tt.polys, tt.ids)
			require.Error(t, err)
			assert.Nil(t, sections)
			assert.ErrorAs(t, err, tt.target)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestDuplicateSectionIDReportsPositions(t *testing.T) {
	_, err := BuildSections(polygonals(rect(0, 0, 1, 1), rect(1, 0, 2, 1)), []string{"x", "x"})

	var dup *DuplicateSectionIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "x", dup.ID)
	assert.Equal(t, 0, dup.First)
	assert.Equal(t, 1, dup.Repeat)
}

func TestPartitionLocate(t *testing.T) {
	sections, err := BuildSections(
		polygonals(rect(0, 0, 10, 10), rect(10, 0, 20, 10)),
		[]string{"left", "right"},
	)
	require.NoError(t, err)
	p := NewPartition(sections)

	tests := []struct {
		name  string
		point geom.Point
		want  string
		found bool
	}{
		{"inside left", geom.Point{X: 5, Y: 5}, "left", true},
		{"inside right", geom.Point{X: 15, Y: 2}, "right", true},
		{"shared boundary goes to first", geom.Point{X: 10, Y: 5}, "left", true},
		{"outer boundary is closed", geom.Point{X: 20, Y: 5}, "right", true},
		{"outside", geom.Point{X: 25, Y: 5}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := p.Locate(tt.point)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				require.NotNil(t, s)
				assert.Equal(t, tt.want, s.ID)
			}
		})
	}
}

func TestPartitionCheckOverlaps(t *testing.T) {
	tiled, err := BuildSections(
		polygonals(rect(0, 0, 10, 10), rect(10, 0, 20, 10)),
		[]string{"a", "b"},
	)
	require.NoError(t, err)
	assert.Empty(t, NewPartition(tiled).CheckOverlaps(DefaultTolerance))

	overlapping, err := BuildSections(
		polygonals(rect(0, 0, 10, 10), rect(5, 0, 15, 10)),
		[]string{"a", "b"},
	)
	require.NoError(t, err)
	warnings := NewPartition(overlapping).CheckOverlaps(DefaultTolerance)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarningSectionOverlap, warnings[0].Kind)
	assert.Equal(t, "a", warnings[0].SectionID)
}

func TestValidatePolygonToleratesClippingSlivers(t *testing.T) {
	sliver := geom.Polygon{
		{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		{{X: 3, Y: 3}, {X: 3, Y: 3}},
	}
	assert.NoError(t, validatePolygon(sliver, false))
	assert.Error(t, validatePolygon(sliver, true))
}
