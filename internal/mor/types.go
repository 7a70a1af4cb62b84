// Package mor computes river channel change between two snapshots of the same
// valley: per-section erosion, deposition and persistence areas and the
// migration/occupation rates derived from them.
package mor

import (
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// DefaultTolerance is the relative tolerance applied to area comparisons.
const DefaultTolerance = 1e-6

// Snapshot is the channel extent observed at one point in time.
type Snapshot struct {
	Label string
	Year  int

	polygons []geom.Polygon
	invalid  map[int]error
	bounds   *geom.Bounds
	index    *rtree.Rtree
}

type indexedPolygon struct {
	geom.Polygon
	i      int
	bounds *geom.Bounds
}

func (p *indexedPolygon) Bounds() *geom.Bounds {
	return p.bounds
}

// NewSnapshot builds a read-only snapshot from channel polygons. Multi-part
// polygons are split into their parts; empty parts are dropped. A snapshot
// with no remaining polygon is rejected.
func NewSnapshot(label string, year int, polygons []geom.Polygonal) (*Snapshot, error) {
	s := &Snapshot{
		Label:  label,
		Year:   year,
		bounds: geom.NewBounds(),
		index:  rtree.NewTree(25, 50),
	}
	for _, p := range polygons {
		if p == nil {
			continue
		}
		for _, part := range p.Polygons() {
			if len(part) == 0 {
				continue
			}
			ip := &indexedPolygon{Polygon: part, i: len(s.polygons), bounds: part.Bounds()}
			if err := nonFinite(part); err != nil {
				if s.invalid == nil {
					s.invalid = make(map[int]error)
				}
				s.invalid[ip.i] = err
				ip.bounds = finiteBounds(part)
			} else {
				s.bounds.Extend(ip.bounds)
			}
			s.polygons = append(s.polygons, part)
			s.index.Insert(ip)
		}
	}
	if len(s.polygons) == 0 {
		return nil, &ValidationError{Reason: "snapshot " + label + " has no channel polygons"}
	}
	return s, nil
}

// Polygons returns the channel polygons in input order.
func (s *Snapshot) Polygons() []geom.Polygon {
	return s.polygons
}

// Bounds returns the extent of all channel polygons.
func (s *Snapshot) Bounds() *geom.Bounds {
	return s.bounds
}

// candidates returns the positions of polygons whose bounds overlap b, in
// input order so that unions are evaluated deterministically.
func (s *Snapshot) candidates(b *geom.Bounds) []int {
	found := s.index.SearchIntersect(b)
	idx := make([]int, 0, len(found))
	for _, g := range found {
		idx = append(idx, g.(*indexedPolygon).i)
	}
	sort.Ints(idx)
	return idx
}

// nonFinite reports the first NaN or infinite coordinate of p.
func nonFinite(p geom.Polygon) error {
	for i, ring := range p {
		for j, pt := range ring {
			if math.IsNaN(pt.X) || math.IsNaN(pt.Y) || math.IsInf(pt.X, 0) || math.IsInf(pt.Y, 0) {
				return fmt.Errorf("ring %d vertex %d is not finite", i, j)
			}
		}
	}
	return nil
}

// finiteBounds is the extent of the finite vertices of p. A polygon with
// none gets an unbounded box so every section sees it.
func finiteBounds(p geom.Polygon) *geom.Bounds {
	b := geom.NewBounds()
	for _, ring := range p {
		for _, pt := range ring {
			if math.IsNaN(pt.X) || math.IsNaN(pt.Y) || math.IsInf(pt.X, 0) || math.IsInf(pt.Y, 0) {
				continue
			}
			b.Extend(geom.NewBoundsPoint(pt))
		}
	}
	if b.Min.X > b.Max.X {
		b.Min = geom.Point{X: math.Inf(-1), Y: math.Inf(-1)}
		b.Max = geom.Point{X: math.Inf(1), Y: math.Inf(1)}
	}
	return b
}

// Section is one floodplain partition used as the unit of aggregation.
type Section struct {
	ID       string
	Index    int
	Geometry geom.Polygon

	area   float64
	bounds *geom.Bounds
}

// Area returns the section's total area, computed once at construction.
func (s *Section) Area() float64 {
	return s.area
}

// Bounds returns the section's bounding box.
func (s *Section) Bounds() *geom.Bounds {
	return s.bounds
}

// ChangeRecord holds the change areas of one section for one snapshot pair.
type ChangeRecord struct {
	SectionID       string  `json:"section_id"`
	ErosionArea     float64 `json:"erosion_area"`
	DepositionArea  float64 `json:"deposition_area"`
	PersistenceArea float64 `json:"persistence_area"`
	SectionArea     float64 `json:"section_area"`
}

// ChangeGeometry keeps the polygons behind a ChangeRecord for emitters that
// write them out.
type ChangeGeometry struct {
	Erosion     geom.Polygon
	Deposition  geom.Polygon
	Persistence geom.Polygon
}

// ActivityIndex holds the rates derived from one ChangeRecord.
type ActivityIndex struct {
	SectionID           string       `json:"section_id"`
	Record              ChangeRecord `json:"record"`
	MigrationRate       float64      `json:"migration_rate"`
	OccupationRate      float64      `json:"occupation_rate"`
	ErosionRate         float64      `json:"erosion_rate"`
	DepositionRate      float64      `json:"deposition_rate"`
	AnnualMigrationRate float64      `json:"annual_migration_rate"`
	Degenerate          bool         `json:"degenerate"`
}

// ValleySummary aggregates all sections of one run.
type ValleySummary struct {
	Sections           int       `json:"sections"`
	TotalSectionArea   float64   `json:"total_section_area"`
	TotalErosion       float64   `json:"total_erosion"`
	TotalDeposition    float64   `json:"total_deposition"`
	TotalPersistence   float64   `json:"total_persistence"`
	MeanMigrationRate  float64   `json:"mean_migration_rate"`
	MeanOccupationRate float64   `json:"mean_occupation_rate"`
	DegenerateSections int       `json:"degenerate_sections"`
	Skipped            []string  `json:"skipped,omitempty"`
	Warnings           []Warning `json:"warnings,omitempty"`
}
