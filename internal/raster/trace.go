package raster

type vertex struct {
	x, y int
}

type boundaryEdge struct {
	from, to vertex
	used     bool
}

func (e *boundaryEdge) dir() vertex {
	return vertex{e.to.x - e.from.x, e.to.y - e.from.y}
}

// traceRings walks the pixel edges separating channel from background.
// Every channel pixel contributes its exposed sides clockwise on screen, so
// the channel always lies to the right of travel. Where two regions touch
// diagonally the walk turns right, keeping them as separate rings that
// share a vertex. Rings are closed and collinear vertices are dropped.
func traceRings(m *Mask) [][]vertex {
	var edges []*boundaryEdge
	out := make(map[vertex][]*boundaryEdge)
	add := func(a, b vertex) {
		e := &boundaryEdge{from: a, to: b}
		edges = append(edges, e)
		out[a] = append(out[a], e)
	}

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.At(x, y) {
				continue
			}
			if !m.At(x, y-1) {
				add(vertex{x, y}, vertex{x + 1, y})
			}
			if !m.At(x+1, y) {
				add(vertex{x + 1, y}, vertex{x + 1, y + 1})
			}
			if !m.At(x, y+1) {
				add(vertex{x + 1, y + 1}, vertex{x, y + 1})
			}
			if !m.At(x-1, y) {
				add(vertex{x, y + 1}, vertex{x, y})
			}
		}
	}

	var rings [][]vertex
	for _, start := range edges {
		if start.used {
			continue
		}
		start.used = true
		ring := []vertex{start.from}
		cur := start
		for {
			next := nextEdge(out[cur.to], cur, start)
			if next == nil || next == start {
				break
			}
			next.used = true
			ring = append(ring, next.from)
			cur = next
		}
		ring = simplifyRing(ring)
		if len(ring) >= 3 {
			rings = append(rings, append(ring, ring[0]))
		}
	}
	return rings
}

func nextEdge(candidates []*boundaryEdge, cur, start *boundaryEdge) *boundaryEdge {
	var pick *boundaryEdge
	d := cur.dir()
	for _, e := range candidates {
		if e.used && e != start {
			continue
		}
		if pick == nil {
			pick = e
			continue
		}
		// two exits only happen at a diagonal touch; take the right turn
		n := e.dir()
		if d.x*n.y-d.y*n.x > 0 {
			pick = e
		}
	}
	return pick
}

// simplifyRing removes vertices that lie on a straight run of an open ring.
func simplifyRing(ring []vertex) []vertex {
	n := len(ring)
	if n < 3 {
		return ring
	}
	out := make([]vertex, 0, n)
	for i := 0; i < n; i++ {
		prev := ring[(i+n-1)%n]
		cur := ring[i]
		next := ring[(i+1)%n]
		if (cur.x-prev.x)*(next.y-cur.y)-(cur.y-prev.y)*(next.x-cur.x) != 0 {
			out = append(out, cur)
		}
	}
	return out
}
