package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/chrissnell/riveractivity/internal/provider"
	"github.com/chrissnell/riveractivity/internal/raster"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var maskExts = map[string]bool{".png": true, ".tif": true, ".tiff": true, ".jpg": true, ".jpeg": true, ".bmp": true}

// channelRecord is one polygon of a vectorized mask
type channelRecord struct {
	geom.Polygon
	SOURCE string
	YEAR   int
	AREA   float64
}

// Result describes one converted mask
type Result struct {
	Source string
	Year   int
	Output string
	Area   float64
}

// Vectorizer converts masks into shapefiles under OutDir
type Vectorizer struct {
	OutDir  string
	CRS     string
	Workers int
	Mask    raster.MaskOptions
	Logger  *zap.SugaredLogger
}

func (v *Vectorizer) logger() *zap.SugaredLogger {
	if v.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return v.Logger
}

// ConvertDir vectorizes every mask directly inside dir. Files without a
// year in their name and masks without channel pixels are skipped.
func (v *Vectorizer) ConvertDir(ctx context.Context, dir string) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !maskExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	var (
		mu      sync.Mutex
		results []Result
	)
	g, gctx := errgroup.WithContext(ctx)
	workers := v.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, ok, err := v.Convert(p)
			if err != nil || !ok {
				return err
			}
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Source < results[j].Source
	})
	return results, nil
}

// Convert vectorizes one mask into <OutDir>/<year>/VECT_<name>.shp. The
// second return value is false when the mask was skipped.
func (v *Vectorizer) Convert(path string) (Result, bool, error) {
	year, ok := provider.DetectYear(path)
	if !ok {
		v.logger().Warnw("no year in file name, skipping", "path", path)
		return Result{}, false, nil
	}

	m, err := raster.LoadMask(path, v.Mask)
	if err != nil {
		return Result{}, false, err
	}
	poly, err := m.Polygon()
	if errors.Is(err, raster.ErrEmptyMask) {
		v.logger().Warnw("mask has no channel pixels, skipping", "path", path)
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("%s: %w", path, err)
	}
	if !m.Georeferenced {
		v.logger().Warnw("no world file, writing pixel coordinates", "path", path)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	yearDir := filepath.Join(v.OutDir, fmt.Sprint(year))
	if err := os.MkdirAll(yearDir, 0o755); err != nil {
		return Result{}, false, err
	}
	out := filepath.Join(yearDir, "VECT_"+base+".shp")

	rec := channelRecord{Polygon: poly, SOURCE: filepath.Base(path), YEAR: year, AREA: m.Area()}
	if err := writeRecords(out, rec); err != nil {
		return Result{}, false, fmt.Errorf("writing %s: %w", out, err)
	}
	if err := v.writePrj(out, path); err != nil {
		return Result{}, false, err
	}

	v.logger().Infow("mask vectorized", "path", path, "output", out, "area", rec.AREA)
	return Result{Source: path, Year: year, Output: out, Area: rec.AREA}, true, nil
}

// FuseYears merges the vectorized masks of each year into one layer named
// <RIVER>_<YEAR>.shp inside the year folder.
func (v *Vectorizer) FuseYears(results []Result, river string) ([]string, error) {
	byYear := map[int][]Result{}
	var sources []string
	for _, r := range results {
		byYear[r.Year] = append(byYear[r.Year], r)
		sources = append(sources, r.Source)
	}
	if river == "" {
		river = provider.DetectRiverName(sources...)
	}
	if river == "" {
		river = "RIVER"
	}
	river = strings.ToUpper(provider.FileSafe(river))

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	var outputs []string
	for _, y := range years {
		var fused geom.Polygonal
		for _, r := range byYear[y] {
			p, err := readPolygons(r.Output)
			if err != nil {
				return nil, err
			}
			if fused == nil {
				fused = p
				continue
			}
			fused = fused.Union(p)
		}
		fused = normalize(fused)

		out := filepath.Join(v.OutDir, fmt.Sprint(y), fmt.Sprintf("%s_%d.shp", river, y))
		var recs []channelRecord
		for _, p := range fused.Polygons() {
			recs = append(recs, channelRecord{Polygon: p, SOURCE: river, YEAR: y, AREA: p.Area()})
		}
		if err := writeRecords(out, recs...); err != nil {
			return nil, fmt.Errorf("writing %s: %w", out, err)
		}
		if err := v.writePrj(out, byYear[y][0].Source); err != nil {
			return nil, err
		}
		v.logger().Infow("year fused", "year", y, "masks", len(byYear[y]), "output", out, "area", fused.Area())
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// normalize passes p through the clipper against a frame around its bounds.
// Traced rings that touch at a corner share a vertex, which Polygon.Area
// misreads as nesting; the clipped rings do not.
func normalize(p geom.Polygonal) geom.Polygonal {
	b := p.Bounds()
	if b.Min.X > b.Max.X {
		return p
	}
	pad := math.Max(1, math.Max(b.Max.X-b.Min.X, b.Max.Y-b.Min.Y))
	frame := geom.Polygon{{
		{X: b.Min.X - pad, Y: b.Min.Y - pad},
		{X: b.Max.X + pad, Y: b.Min.Y - pad},
		{X: b.Max.X + pad, Y: b.Max.Y + pad},
		{X: b.Min.X - pad, Y: b.Max.Y + pad},
		{X: b.Min.X - pad, Y: b.Min.Y - pad},
	}}
	return p.Intersection(frame)
}

func writeRecords(path string, recs ...channelRecord) error {
	enc, err := shp.NewEncoder(path, channelRecord{})
	if err != nil {
		return err
	}
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			enc.Close()
			return err
		}
	}
	enc.Close()
	return nil
}

func readPolygons(path string) (geom.Polygonal, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out geom.MultiPolygon
	for {
		g, _, more := dec.DecodeRowFields()
		if !more {
			break
		}
		if pg, ok := g.(geom.Polygonal); ok {
			out = append(out, pg.Polygons()...)
		}
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return out, nil
}

// writePrj copies the mask's own .prj when it has one, else writes v.CRS.
func (v *Vectorizer) writePrj(shpPath, source string) error {
	prj := strings.TrimSuffix(shpPath, ".shp") + ".prj"
	if b, err := os.ReadFile(strings.TrimSuffix(source, filepath.Ext(source)) + ".prj"); err == nil {
		return os.WriteFile(prj, b, 0o644)
	}
	if v.CRS == "" {
		return nil
	}
	crs, err := provider.ParseCRS(v.CRS)
	if err != nil {
		return err
	}
	return os.WriteFile(prj, []byte(crs.Definition), 0o644)
}
