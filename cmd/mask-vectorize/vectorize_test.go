package main

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ctessum/geom/encoding/shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const world = "30\n0\n0\n-30\n500015\n8999985\n"

func writeMask(t *testing.T, dir, name string, on ...image.Point) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 5, 5))
	for _, p := range on {
		img.SetGray(p.X, p.Y, color.Gray{Y: 1})
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	wf := strings.TrimSuffix(path, filepath.Ext(path)) + ".pgw"
	require.NoError(t, os.WriteFile(wf, []byte(world), 0o644))
}

func block(x0 int) []image.Point {
	return []image.Point{{x0, 0}, {x0 + 1, 0}, {x0, 1}, {x0 + 1, 1}}
}

func TestConvertDirAndFuse(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	writeMask(t, in, "ucayali_1986_a.png", block(0)...)
	writeMask(t, in, "ucayali_1986_b.png", block(2)...)
	writeMask(t, in, "ucayali_2016.png", block(1)...)
	writeMask(t, in, "notes.png", block(0)...)
	writeMask(t, in, "ucayali_2001.png")
	require.NoError(t, os.WriteFile(filepath.Join(in, "readme.txt"), []byte("x"), 0o644))

	v := &Vectorizer{OutDir: out, CRS: "EPSG:32718", Workers: 3}
	results, err := v.ConvertDir(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 1986, results[0].Year)
	assert.Equal(t, filepath.Join(out, "1986", "VECT_ucayali_1986_a.shp"), results[0].Output)
	assert.InDelta(t, 3600, results[0].Area, 1e-6)
	assert.Equal(t, 2016, results[2].Year)

	prj, err := os.ReadFile(filepath.Join(out, "2016", "VECT_ucayali_2016.prj"))
	require.NoError(t, err)
	assert.Equal(t, "+proj=utm +zone=18 +south +datum=WGS84 +units=m +no_defs", string(prj))

	fused, err := v.FuseYears(results, "Ucayali")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(out, "1986", "UCAYALI_1986.shp"),
		filepath.Join(out, "2016", "UCAYALI_2016.shp"),
	}, fused)

	p, err := readPolygons(fused[0])
	require.NoError(t, err)
	assert.InDelta(t, 7200, p.Area(), 1e-6)
}

func TestConvertSkipsFilesWithoutYear(t *testing.T) {
	in := t.TempDir()
	writeMask(t, in, "channel.png", block(0)...)

	v := &Vectorizer{OutDir: t.TempDir()}
	_, ok, err := v.Convert(filepath.Join(in, "channel.png"))
	require.NoError(t, err)
	assert.False(t, ok)
}

// areaField returns the AREA attribute of every record in the shapefile.
func areaField(t *testing.T, path string) []float64 {
	t.Helper()
	dec, err := shp.NewDecoder(path)
	require.NoError(t, err)
	defer dec.Close()

	var out []float64
	for {
		_, fields, more := dec.DecodeRowFields("AREA")
		if !more {
			break
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(fields["AREA"]), 64)
		require.NoError(t, err)
		out = append(out, v)
	}
	require.NoError(t, dec.Error())
	return out
}

func TestAreaOfDiagonallyTouchingPixels(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	// A ring around a hole at (2,2) whose corners at (3,2) and (2,3) touch
	// diagonally, plus a lone pixel touching (1,1) at a corner.
	on := []image.Point{
		{0, 0},
		{1, 1}, {2, 1}, {3, 1},
		{1, 2}, {3, 2},
		{1, 3}, {2, 3},
	}
	writeMask(t, in, "ucayali_1990.png", on...)
	want := float64(len(on)) * 900

	v := &Vectorizer{OutDir: out}
	res, ok, err := v.Convert(filepath.Join(in, "ucayali_1990.png"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, want, res.Area, 1e-6)

	areas := areaField(t, res.Output)
	require.Len(t, areas, 1)
	assert.InDelta(t, want, areas[0], 1e-3)

	fused, err := v.FuseYears([]Result{res}, "Ucayali")
	require.NoError(t, err)
	require.Len(t, fused, 1)

	var total float64
	for _, a := range areaField(t, fused[0]) {
		total += a
	}
	assert.InDelta(t, want, total, 1e-3)

	p, err := readPolygons(fused[0])
	require.NoError(t, err)
	assert.InDelta(t, want, p.Area(), 1e-6)
}
