package raster

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
)

// WorldFile is the six-parameter affine transform of an ESRI world file.
// C and F locate the centre of the upper-left pixel.
type WorldFile struct {
	A, D, B, E, C, F float64
}

// PixelSpace maps pixel corners onto themselves with y pointing up, for
// masks that come without a world file.
var PixelSpace = WorldFile{A: 1, E: -1, C: 0.5, F: -0.5}

// ReadWorldFile parses the six lines A, D, B, E, C, F of a world file.
func ReadWorldFile(path string) (WorldFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return WorldFile{}, err
	}
	defer f.Close()

	var vals []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return WorldFile{}, fmt.Errorf("world file %s line %d: %w", path, len(vals)+1, err)
		}
		vals = append(vals, v)
	}
	if err := scanner.Err(); err != nil {
		return WorldFile{}, err
	}
	if len(vals) != 6 {
		return WorldFile{}, fmt.Errorf("world file %s: expected 6 values, got %d", path, len(vals))
	}

	wf := WorldFile{A: vals[0], D: vals[1], B: vals[2], E: vals[3], C: vals[4], F: vals[5]}
	if wf.A*wf.E-wf.B*wf.D == 0 {
		return WorldFile{}, fmt.Errorf("world file %s: singular transform", path)
	}
	return wf, nil
}

// FindWorldFile returns the sidecar world file of an image, trying the
// short form (.pgw, .tfw, .jgw), the long form (.pngw, .tifw) and .wld.
func FindWorldFile(imagePath string) (string, bool) {
	ext := filepath.Ext(imagePath)
	base := strings.TrimSuffix(imagePath, ext)

	var candidates []string
	if e := strings.TrimPrefix(ext, "."); len(e) >= 2 {
		candidates = append(candidates,
			base+"."+e[:1]+e[len(e)-1:]+"w",
			base+"."+e+"w",
		)
	}
	candidates = append(candidates, base+".wld")

	for _, c := range candidates {
		upper := strings.TrimSuffix(c, filepath.Ext(c)) + strings.ToUpper(filepath.Ext(c))
		for _, name := range []string{c, upper} {
			if st, err := os.Stat(name); err == nil && !st.IsDir() {
				return name, true
			}
		}
	}
	return "", false
}

// Corner maps a pixel-corner grid vertex (x columns right, y rows down from
// the upper-left corner of the image) into map coordinates.
func (w WorldFile) Corner(x, y int) geom.Point {
	px := float64(x) - 0.5
	py := float64(y) - 0.5
	return geom.Point{
		X: w.C + w.A*px + w.B*py,
		Y: w.F + w.D*px + w.E*py,
	}
}

// PixelArea is the ground area covered by a single pixel.
func (w WorldFile) PixelArea() float64 {
	a := w.A*w.E - w.B*w.D
	if a < 0 {
		return -a
	}
	return a
}
