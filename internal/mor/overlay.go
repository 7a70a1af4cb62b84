package mor

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// ComputeChange overlays both snapshots on one section and returns the
// erosion, deposition and persistence areas.
func ComputeChange(section *Section, t1, t2 *Snapshot) (*ChangeRecord, error) {
	rec, _, err := computeChange(section, t1, t2, DefaultTolerance)
	return rec, err
}

// ComputeChangeGeometry is ComputeChange keeping the change polygons.
func ComputeChangeGeometry(section *Section, t1, t2 *Snapshot, tolerance float64) (*ChangeRecord, *ChangeGeometry, error) {
	return computeChange(section, t1, t2, tolerance)
}

func computeChange(section *Section, t1, t2 *Snapshot, tolerance float64) (*ChangeRecord, *ChangeGeometry, error) {
	if section == nil || t1 == nil || t2 == nil {
		return nil, nil, &ValidationError{Reason: "section and both snapshots are required"}
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	c1, err := clip(section, t1)
	if err != nil {
		return nil, nil, err
	}
	c2, err := clip(section, t2)
	if err != nil {
		return nil, nil, err
	}

	g := &ChangeGeometry{}
	steps := []struct {
		op  string
		dst *geom.Polygon
		fn  func() (geom.Polygon, error)
	}{
		{"erosion", &g.Erosion, func() (geom.Polygon, error) { return difference(c1, c2) }},
		{"deposition", &g.Deposition, func() (geom.Polygon, error) { return difference(c2, c1) }},
		{"persistence", &g.Persistence, func() (geom.Polygon, error) { return intersection(c1, c2) }},
	}
	for _, step := range steps {
		out, err := step.fn()
		if err == nil {
			err = validatePolygon(out, false)
		}
		if err != nil {
			return nil, nil, &GeometryOverlayError{SectionID: section.ID, Op: step.op, Err: err}
		}
		*step.dst = out
	}

	rec := &ChangeRecord{
		SectionID:   section.ID,
		SectionArea: section.Area(),
	}
	slack := tolerance * maxFloat(1, section.Area())
	areas := []struct {
		op  string
		dst *float64
		p   geom.Polygon
	}{
		{"erosion", &rec.ErosionArea, g.Erosion},
		{"deposition", &rec.DepositionArea, g.Deposition},
		{"persistence", &rec.PersistenceArea, g.Persistence},
	}
	for _, a := range areas {
		v := polygonArea(a.p)
		switch {
		case math.IsNaN(v):
			return nil, nil, &GeometryOverlayError{SectionID: section.ID, Op: a.op, Err: fmt.Errorf("area is NaN")}
		case v < -slack:
			return nil, nil, &GeometryOverlayError{SectionID: section.ID, Op: a.op, Err: fmt.Errorf("negative area %v", v)}
		case v > section.Area()+slack:
			return nil, nil, &GeometryOverlayError{
				SectionID: section.ID,
				Op:        a.op,
				Err:       fmt.Errorf("area %v exceeds section area %v", v, section.Area()),
			}
		case v < 0:
			v = 0
		}
		*a.dst = v
	}
	return rec, g, nil
}

// clip intersects every candidate channel polygon of s with the section and
// unions the pieces, so polygons overlapping within one snapshot count once.
func clip(section *Section, s *Snapshot) (geom.Polygon, error) {
	var out geom.Polygon
	for _, i := range s.candidates(section.Bounds()) {
		if err := s.invalid[i]; err != nil {
			return nil, &GeometryOverlayError{SectionID: section.ID, Op: "clip " + s.Label, Err: err}
		}
		piece, err := intersection(section.Geometry, s.polygons[i])
		if err == nil && len(piece) == 0 {
			continue
		}
		if err == nil {
			err = validatePolygon(piece, false)
		}
		if err != nil {
			return nil, &GeometryOverlayError{SectionID: section.ID, Op: "clip " + s.Label, Err: err}
		}
		if out == nil {
			out = piece
			continue
		}
		u, err := polygonOf(out.Union(piece))
		if err != nil {
			return nil, &GeometryOverlayError{SectionID: section.ID, Op: "union " + s.Label, Err: err}
		}
		out = u
	}
	if err := validatePolygon(out, false); err != nil {
		return nil, &GeometryOverlayError{SectionID: section.ID, Op: "union " + s.Label, Err: err}
	}
	return out, nil
}

func intersection(a, b geom.Polygon) (geom.Polygon, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, nil
	}
	return polygonOf(a.Intersection(b))
}

func difference(a, b geom.Polygon) (geom.Polygon, error) {
	if len(a) == 0 {
		return nil, nil
	}
	if len(b) == 0 {
		return a, nil
	}
	return polygonOf(a.Difference(b))
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
