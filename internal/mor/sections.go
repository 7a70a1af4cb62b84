package mor

import (
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// BuildSections validates the floodplain sections and returns them in input
// order with their areas cached.
func BuildSections(polygons []geom.Polygonal, ids []string) ([]*Section, error) {
	if len(polygons) != len(ids) {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("%d section polygons but %d section ids", len(polygons), len(ids)),
		}
	}
	if len(ids) == 0 {
		return nil, &ValidationError{Reason: "no sections supplied"}
	}

	seen := make(map[string]int, len(ids))
	for i, id := range ids {
		if first, ok := seen[id]; ok {
			return nil, &DuplicateSectionIDError{ID: id, First: first, Repeat: i}
		}
		seen[id] = i
	}

	sections := make([]*Section, len(ids))
	for i, id := range ids {
		poly, err := asPolygon(polygons[i])
		if err == nil {
			err = validatePolygon(poly, true)
		}
		if err != nil {
			return nil, &DegenerateGeometryError{SectionID: id, Index: i, Reason: err.Error()}
		}
		clean, err := normalize(poly)
		if err != nil {
			return nil, &DegenerateGeometryError{SectionID: id, Index: i, Reason: err.Error()}
		}
		area := polygonArea(clean)
		if !(area > 0) {
			return nil, &DegenerateGeometryError{
				SectionID: id,
				Index:     i,
				Reason:    fmt.Sprintf("area %v is not positive", area),
			}
		}
		sections[i] = &Section{
			ID:       id,
			Index:    i,
			Geometry: poly,
			area:     area,
			bounds:   poly.Bounds(),
		}
	}
	return sections, nil
}

type indexedSection struct {
	geom.Polygon
	section *Section
}

// Partition answers spatial queries against a validated set of sections.
type Partition struct {
	sections []*Section
	index    *rtree.Rtree
}

// NewPartition indexes sections by their bounds.
func NewPartition(sections []*Section) *Partition {
	p := &Partition{
		sections: sections,
		index:    rtree.NewTree(25, 50),
	}
	for _, s := range sections {
		p.index.Insert(&indexedSection{Polygon: s.Geometry, section: s})
	}
	return p
}

// Sections returns the sections in input order.
func (p *Partition) Sections() []*Section {
	return p.sections
}

// Locate returns the section owning pt. Boundaries are closed; a point on a
// boundary shared by two sections belongs to the one listed first.
func (p *Partition) Locate(pt geom.Point) (*Section, bool) {
	pad := 1e-9 * math.Max(1, math.Max(math.Abs(pt.X), math.Abs(pt.Y)))
	query := &geom.Bounds{
		Min: geom.Point{X: pt.X - pad, Y: pt.Y - pad},
		Max: geom.Point{X: pt.X + pad, Y: pt.Y + pad},
	}
	for _, s := range p.candidates(query) {
		if pt.Within(s.Geometry) != geom.Outside {
			return s, true
		}
	}
	return nil, false
}

// CheckOverlaps reports section pairs whose shared area exceeds the relative
// tolerance. Sections are expected to meet only along boundaries.
func (p *Partition) CheckOverlaps(tolerance float64) []Warning {
	var warnings []Warning
	for _, s := range p.sections {
		for _, other := range p.candidates(s.bounds) {
			if other.Index <= s.Index {
				continue
			}
			common, err := intersection(s.Geometry, other.Geometry)
			if err != nil {
				continue
			}
			shared := polygonArea(common)
			limit := tolerance * minFloat(s.area, other.area)
			if shared > limit {
				warnings = append(warnings, Warning{
					Kind:      WarningSectionOverlap,
					SectionID: s.ID,
					Message:   fmt.Sprintf("overlaps section %q by %.6g", other.ID, shared),
				})
			}
		}
	}
	return warnings
}

func (p *Partition) candidates(b *geom.Bounds) []*Section {
	found := p.index.SearchIntersect(b)
	out := make([]*Section, 0, len(found))
	for _, g := range found {
		out = append(out, g.(*indexedSection).section)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
