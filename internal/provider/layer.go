// Package provider loads channel snapshots and valley sections from disk
// and brings them into one projected reference system.
package provider

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chrissnell/riveractivity/internal/raster"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature is one polygonal record of a layer with its attribute values.
type Feature struct {
	Geometry   geom.Polygonal
	Attributes map[string]string
}

// Layer is a set of polygon features sharing a reference system. CRS is nil
// when the source declares none.
type Layer struct {
	Path     string
	CRS      *CRS
	Features []Feature
	Skipped  int
}

// LoadOptions tunes how layers are read.
type LoadOptions struct {
	// Fields lists the attribute columns to keep from shapefiles.
	Fields []string

	// CRS overrides whatever the source declares.
	CRS string

	// Mask configures raster inputs.
	Mask raster.MaskOptions
}

var rasterExts = map[string]bool{
	".png": true, ".tif": true, ".tiff": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".gif": true,
}

// LoadLayer reads an ESRI shapefile, a GeoJSON document or a raster mask,
// chosen by file extension.
func LoadLayer(path string, opts LoadOptions) (*Layer, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		l   *Layer
		err error
	)
	switch {
	case ext == ".shp":
		l, err = loadShapefile(path, opts.Fields)
	case ext == ".geojson" || ext == ".json":
		l, err = loadGeoJSON(path)
	case rasterExts[ext]:
		l, err = loadRaster(path, opts.Mask)
	default:
		return nil, fmt.Errorf("unsupported input format %q for %s", ext, path)
	}
	if err != nil {
		return nil, err
	}

	if opts.CRS != "" {
		crs, err := ParseCRS(opts.CRS)
		if err != nil {
			return nil, err
		}
		l.CRS = crs
	}
	return l, nil
}

// Polygons returns the geometry of every feature in order.
func (l *Layer) Polygons() []geom.Polygonal {
	out := make([]geom.Polygonal, len(l.Features))
	for i, f := range l.Features {
		out[i] = f.Geometry
	}
	return out
}

// Bounds is the extent of all features.
func (l *Layer) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for _, f := range l.Features {
		b.Extend(f.Geometry.Bounds())
	}
	return b
}

// ReprojectTo transforms the layer in place into crs.
func (l *Layer) ReprojectTo(crs *CRS) error {
	polys, err := Reproject(l.Polygons(), l.CRS, crs)
	if err != nil {
		return fmt.Errorf("%s: %w", l.Path, err)
	}
	for i := range l.Features {
		l.Features[i].Geometry = polys[i]
	}
	l.CRS = crs
	return nil
}

// Sections returns section polygons and identifiers. With an empty idField
// sections are numbered from 1 in file order. With dissolve set, features
// sharing an identifier are merged into one section at the position of the
// first; otherwise repeated identifiers are passed through for the
// partitioner to reject.
func (l *Layer) Sections(idField string, dissolve bool) ([]geom.Polygonal, []string, error) {
	var (
		polys []geom.Polygonal
		ids   []string
		pos   = make(map[string]int)
	)
	for i, f := range l.Features {
		id := strconv.Itoa(i + 1)
		if idField != "" {
			v, ok := f.Attributes[idField]
			if !ok {
				return nil, nil, fmt.Errorf("%s: feature %d has no attribute %q", l.Path, i+1, idField)
			}
			id = strings.TrimSpace(v)
		}

		if j, seen := pos[id]; seen && dissolve {
			polys[j] = polys[j].Union(f.Geometry)
			continue
		}
		pos[id] = len(polys)
		polys = append(polys, f.Geometry)
		ids = append(ids, id)
	}
	return polys, ids, nil
}

func readPrj(path string) (*CRS, error) {
	prj := strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
	b, err := os.ReadFile(prj)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	crs, err := ParseCRS(string(b))
	if err != nil {
		var uce *UnknownCRSError
		if errors.As(err, &uce) {
			uce.Source = prj
		}
		return nil, err
	}
	return crs, nil
}

func loadShapefile(path string, fields []string) (*Layer, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("opening shapefile %s: %w", path, err)
	}
	defer dec.Close()

	l := &Layer{Path: path}
	if l.CRS, err = readPrj(path); err != nil {
		return nil, err
	}

	for {
		g, attrs, more := dec.DecodeRowFields(fields...)
		if !more {
			break
		}
		pg, ok := g.(geom.Polygonal)
		if !ok || pg == nil {
			l.Skipped++
			continue
		}
		l.Features = append(l.Features, Feature{Geometry: pg, Attributes: attrs})
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("reading shapefile %s: %w", path, err)
	}
	return l, nil
}

func loadGeoJSON(path string) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing GeoJSON %s: %w", path, err)
	}

	l := &Layer{Path: path}
	def := wgs84
	if named := geoJSONCRSName(fc); named != "" {
		def = named
	}
	if l.CRS, err = ParseCRS(def); err != nil {
		return nil, err
	}

	for _, f := range fc.Features {
		var pg geom.Polygonal
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			pg = fromOrbPolygon(g)
		case orb.MultiPolygon:
			mp := make(geom.MultiPolygon, len(g))
			for i, p := range g {
				mp[i] = fromOrbPolygon(p)
			}
			pg = mp
		default:
			l.Skipped++
			continue
		}

		attrs := make(map[string]string, len(f.Properties))
		for k, v := range f.Properties {
			attrs[k] = fmt.Sprint(v)
		}
		l.Features = append(l.Features, Feature{Geometry: pg, Attributes: attrs})
	}
	return l, nil
}

// geoJSONCRSName reads the legacy "crs" member, which RFC 7946 dropped but
// many GIS exports still write.
func geoJSONCRSName(fc *geojson.FeatureCollection) string {
	crs, ok := fc.ExtraMembers["crs"].(map[string]interface{})
	if !ok {
		return ""
	}
	props, ok := crs["properties"].(map[string]interface{})
	if !ok {
		return ""
	}
	name, _ := props["name"].(string)
	if strings.HasSuffix(strings.ToUpper(name), "CRS84") {
		return wgs84
	}
	return name
}

func fromOrbPolygon(p orb.Polygon) geom.Polygon {
	out := make(geom.Polygon, len(p))
	for i, ring := range p {
		path := make(geom.Path, len(ring))
		for j, pt := range ring {
			path[j] = geom.Point{X: pt[0], Y: pt[1]}
		}
		out[i] = path
	}
	return out
}

func loadRaster(path string, opts raster.MaskOptions) (*Layer, error) {
	m, err := raster.LoadMask(path, opts)
	if err != nil {
		return nil, err
	}
	poly, err := m.Polygon()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l := &Layer{Path: path, Features: []Feature{{Geometry: poly}}}
	if l.CRS, err = readPrj(path); err != nil {
		return nil, err
	}
	return l, nil
}
