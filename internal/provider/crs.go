package provider

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/golang/geo/s2"
	"github.com/im7mortal/UTM"
)

// FallbackCRS is used when none of the inputs declares a reference system
// (EPSG:32719, UTM zone 19 south).
const FallbackCRS = "+proj=utm +zone=19 +south +datum=WGS84 +units=m +no_defs"

const wgs84 = "+proj=longlat +datum=WGS84 +no_defs"

// UnknownCRSError is returned when a reference system definition cannot be
// parsed or transformed.
type UnknownCRSError struct {
	Source     string
	Definition string
	Err        error
}

func (e *UnknownCRSError) Error() string {
	if e.Definition == "" {
		return fmt.Sprintf("unknown CRS for %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("unknown CRS %q for %s: %v", e.Definition, e.Source, e.Err)
}

func (e *UnknownCRSError) Unwrap() error {
	return e.Err
}

// CRS is a parsed reference system together with the text it came from.
type CRS struct {
	Definition string
	SR         *proj.SR
}

// ParseCRS accepts a PROJ.4 string, a WKT definition or one of the EPSG
// codes commonly attached to river surveys (4326, 3857, 326zz and 327zz).
func ParseCRS(def string) (*CRS, error) {
	def = strings.TrimSpace(def)
	if def == "" {
		return nil, &UnknownCRSError{Source: "definition", Err: fmt.Errorf("empty definition")}
	}

	resolved := def
	if code, ok := epsgCode(def); ok {
		p4, err := epsgToProj4(code)
		if err != nil {
			return nil, &UnknownCRSError{Source: "definition", Definition: def, Err: err}
		}
		resolved = p4
	}

	sr, err := proj.Parse(resolved)
	if err != nil {
		return nil, &UnknownCRSError{Source: "definition", Definition: def, Err: err}
	}
	return &CRS{Definition: resolved, SR: sr}, nil
}

func epsgCode(def string) (int, bool) {
	upper := strings.ToUpper(def)
	for _, prefix := range []string{"EPSG:", "URN:OGC:DEF:CRS:EPSG::"} {
		if strings.HasPrefix(upper, prefix) {
			code, err := strconv.Atoi(strings.TrimPrefix(upper, prefix))
			return code, err == nil
		}
	}
	return 0, false
}

func epsgToProj4(code int) (string, error) {
	switch {
	case code == 4326:
		return wgs84, nil
	case code == 3857:
		return "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs", nil
	case code > 32600 && code <= 32660:
		return utmProj4(code-32600, false), nil
	case code > 32700 && code <= 32760:
		return utmProj4(code-32700, true), nil
	default:
		return "", fmt.Errorf("EPSG:%d is not supported, use a PROJ.4 or WKT definition", code)
	}
}

func utmProj4(zone int, south bool) string {
	if south {
		return fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", zone)
	}
	return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", zone)
}

// IsGeographic reports whether c measures in degrees.
func (c *CRS) IsGeographic() bool {
	return c != nil && c.SR != nil && (c.SR.Name == "longlat" || c.SR.Name == "latlong")
}

// Equal compares two reference systems by definition text.
func (c *CRS) Equal(o *CRS) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Definition == o.Definition
}

// ResolveReference picks the common CRS of a run: the first defined of the
// given layers in order, or FallbackCRS when none is defined.
func ResolveReference(layers ...*Layer) (*CRS, error) {
	for _, l := range layers {
		if l != nil && l.CRS != nil {
			return l.CRS, nil
		}
	}
	return ParseCRS(FallbackCRS)
}

// AutoUTM returns the UTM zone covering the centre of b, which must be in
// geographic degrees.
func AutoUTM(b *geom.Bounds) (*CRS, error) {
	lon := (b.Min.X + b.Max.X) / 2
	lat := (b.Min.Y + b.Max.Y) / 2

	ll := s2.LatLngFromDegrees(lat, lon)
	if !ll.IsValid() {
		return nil, &UnknownCRSError{
			Source: "auto UTM",
			Err:    fmt.Errorf("centre %.6f,%.6f is not a valid latitude/longitude", lat, lon),
		}
	}

	_, _, zone, _, err := UTM.FromLatLon(lat, lon, lat >= 0)
	if err != nil {
		return nil, &UnknownCRSError{Source: "auto UTM", Err: err}
	}
	return ParseCRS(utmProj4(zone, lat < 0))
}

// Reproject transforms polygons from one reference system to another. A nil
// side or identical definitions return the input unchanged.
func Reproject(polys []geom.Polygonal, from, to *CRS) ([]geom.Polygonal, error) {
	if from == nil || to == nil || from.Equal(to) {
		return polys, nil
	}

	trans, err := from.SR.NewTransform(to.SR)
	if err != nil {
		return nil, &UnknownCRSError{Source: "transform", Definition: from.Definition, Err: err}
	}

	out := make([]geom.Polygonal, len(polys))
	for i, p := range polys {
		if p == nil {
			continue
		}
		g, err := p.Transform(trans)
		if err != nil {
			return nil, fmt.Errorf("reprojecting polygon %d: %w", i, err)
		}
		pg, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("reprojecting polygon %d: got %T", i, g)
		}
		out[i] = pg
	}
	return out, nil
}
