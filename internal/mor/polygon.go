package mor

import (
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/geom"
)

// asPolygon flattens any polygonal geometry into one ring set. Multi-part
// inputs are unioned so that overlapping parts are not counted twice.
func asPolygon(p geom.Polygonal) (geom.Polygon, error) {
	if p == nil {
		return nil, nil
	}
	if poly, ok := p.(geom.Polygon); ok {
		return poly, nil
	}
	var out geom.Polygon
	for _, part := range p.Polygons() {
		if len(part) == 0 {
			continue
		}
		if out == nil {
			out = part
			continue
		}
		u, err := polygonOf(out.Union(part))
		if err != nil {
			return nil, err
		}
		out = u
	}
	return out, nil
}

// polygonOf unwraps the result of a clipping operation. polyclip always
// hands back a single ring set; anything else is reported.
func polygonOf(p geom.Polygonal) (geom.Polygon, error) {
	switch g := p.(type) {
	case nil:
		return nil, nil
	case geom.Polygon:
		return g, nil
	case geom.MultiPolygon:
		var out geom.Polygon
		for _, part := range g {
			out = append(out, part...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unexpected clipping result %T", p)
}

// normalize runs p through the clipper against its own padded bounds.
// Rings that touch at a single vertex come back split so that Area
// classifies outer rings and holes correctly.
func normalize(p geom.Polygon) (geom.Polygon, error) {
	if len(p) == 0 {
		return nil, nil
	}
	b := p.Bounds()
	pad := math.Max(1, math.Max(b.Max.X-b.Min.X, b.Max.Y-b.Min.Y))
	frame := geom.Polygon{{
		{X: b.Min.X - pad, Y: b.Min.Y - pad},
		{X: b.Max.X + pad, Y: b.Min.Y - pad},
		{X: b.Max.X + pad, Y: b.Max.Y + pad},
		{X: b.Min.X - pad, Y: b.Max.Y + pad},
		{X: b.Min.X - pad, Y: b.Min.Y - pad},
	}}
	return polygonOf(p.Intersection(frame))
}

// polygonArea returns the area of p, zero for an empty ring set.
func polygonArea(p geom.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}
	return p.Area()
}

// validatePolygon checks every ring of p for non-finite coordinates and
// proper self-crossings. With strict set, rings with fewer than three
// distinct vertices are reported too; otherwise they are tolerated as
// zero-area artefacts of clipping.
func validatePolygon(p geom.Polygon, strict bool) error {
	if strict && len(p) == 0 {
		return fmt.Errorf("polygon has no rings")
	}
	for i, ring := range p {
		pts := openRing(ring)
		for _, pt := range pts {
			if math.IsNaN(pt.X) || math.IsNaN(pt.Y) || math.IsInf(pt.X, 0) || math.IsInf(pt.Y, 0) {
				return fmt.Errorf("ring %d has a non-finite coordinate", i)
			}
		}
		if len(pts) < 3 {
			if strict {
				return fmt.Errorf("ring %d has %d distinct vertices", i, len(pts))
			}
			continue
		}
		if a, b, ok := firstCrossing(pts); ok {
			return fmt.Errorf("ring %d self-intersects between edges %d and %d", i, a, b)
		}
	}
	return nil
}

// openRing drops the closing vertex and consecutive duplicates.
func openRing(ring geom.Path) []geom.Point {
	pts := make([]geom.Point, 0, len(ring))
	for _, pt := range ring {
		if len(pts) > 0 && pts[len(pts)-1] == pt {
			continue
		}
		pts = append(pts, pt)
	}
	for len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	return pts
}

type edge struct {
	i          int
	a, b       geom.Point
	minX, maxX float64
}

// firstCrossing sweeps the ring edges by x extent and reports the first pair
// of non-adjacent edges that cross at interior points.
func firstCrossing(pts []geom.Point) (int, int, bool) {
	n := len(pts)
	edges := make([]edge, n)
	for i := range pts {
		a, b := pts[i], pts[(i+1)%n]
		edges[i] = edge{i: i, a: a, b: b, minX: math.Min(a.X, b.X), maxX: math.Max(a.X, b.X)}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].minX < edges[j].minX })

	for i := range edges {
		ei := edges[i]
		for j := i + 1; j < n && edges[j].minX <= ei.maxX; j++ {
			ej := edges[j]
			if adjacent(ei.i, ej.i, n) {
				continue
			}
			if properCross(ei.a, ei.b, ej.a, ej.b) {
				lo, hi := ei.i, ej.i
				if lo > hi {
					lo, hi = hi, lo
				}
				return lo, hi, true
			}
		}
	}
	return 0, 0, false
}

func adjacent(i, j, n int) bool {
	d := i - j
	if d < 0 {
		d = -d
	}
	return d == 1 || d == n-1
}

func properCross(a, b, c, d geom.Point) bool {
	o1 := orient(a, b, c)
	o2 := orient(a, b, d)
	o3 := orient(c, d, a)
	o4 := orient(c, d, b)
	return o1*o2 < 0 && o3*o4 < 0
}

func orient(a, b, c geom.Point) int {
	v := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
