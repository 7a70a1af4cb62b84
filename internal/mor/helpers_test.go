package mor

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/require"
)

const eps = 1e-6

func rect(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{
		{X: x0, Y: y0},
		{X: x1, Y: y0},
		{X: x1, Y: y1},
		{X: x0, Y: y1},
		{X: x0, Y: y0},
	}}
}

func polygonals(polys ...geom.Polygon) []geom.Polygonal {
	out := make([]geom.Polygonal, len(polys))
	for i, p := range polys {
		out[i] = p
	}
	return out
}

func snapshot(t *testing.T, label string, year int, polys ...geom.Polygon) *Snapshot {
	t.Helper()
	s, err := NewSnapshot(label, year, polygonals(polys...))
	require.NoError(t, err)
	return s
}

func section(t *testing.T, id string, p geom.Polygon) *Section {
	t.Helper()
	sections, err := BuildSections(polygonals(p), []string{id})
	require.NoError(t, err)
	return sections[0]
}
