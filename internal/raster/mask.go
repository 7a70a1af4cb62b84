// Package raster turns binary channel masks into polygons.
//
// A mask is any image the imaging package can decode. Pixels at or above
// the threshold count as channel, optionally followed by a morphological
// closing. The outline is traced along pixel edges and georeferenced
// through an ESRI world file.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/ctessum/geom"
	"github.com/disintegration/imaging"
)

// ErrEmptyMask is returned when a mask has no channel pixels.
var ErrEmptyMask = errors.New("mask contains no channel pixels")

// RasterReadError wraps a failure to read or decode a mask image.
type RasterReadError struct {
	Path string
	Err  error
}

func (e *RasterReadError) Error() string {
	return fmt.Sprintf("read raster %s: %v", e.Path, e.Err)
}

func (e *RasterReadError) Unwrap() error {
	return e.Err
}

// MaskOptions tunes how an image becomes a mask.
type MaskOptions struct {
	// Threshold is the minimum grey level of a channel pixel. Zero means 1,
	// which suits 0/1 masks.
	Threshold uint8

	// ClosingRadius applies a dilate then erode pass of this radius in
	// pixels to the binary mask. Zero disables it.
	ClosingRadius float64

	// WorldFile overrides the sidecar lookup next to the image.
	WorldFile string

	// RequireWorldFile fails the load instead of falling back to PixelSpace.
	RequireWorldFile bool
}

// Mask is a binary raster with its georeference.
type Mask struct {
	Path          string
	Width         int
	Height        int
	Transform     WorldFile
	Georeferenced bool

	bits []bool
}

// LoadMask decodes the image at path and thresholds it into a Mask.
func LoadMask(path string, opts MaskOptions) (*Mask, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, &RasterReadError{Path: path, Err: err}
	}

	m := &Mask{Path: path, Transform: PixelSpace}

	wfPath := opts.WorldFile
	if wfPath == "" {
		wfPath, _ = FindWorldFile(path)
	}
	if wfPath != "" {
		wf, err := ReadWorldFile(wfPath)
		if err != nil {
			return nil, &RasterReadError{Path: path, Err: err}
		}
		m.Transform = wf
		m.Georeferenced = true
	} else if opts.RequireWorldFile {
		return nil, &RasterReadError{Path: path, Err: errors.New("no world file found")}
	}

	m.fill(Binarize(img, opts))
	return m, nil
}

// NewMask builds a mask from an already decoded image.
func NewMask(img image.Image, transform WorldFile, opts MaskOptions) *Mask {
	m := &Mask{Transform: transform, Georeferenced: transform != PixelSpace}
	m.fill(Binarize(img, opts))
	return m
}

// Binarize converts img to greyscale and marks opaque pixels at or above
// the threshold as channel (white). The optional closing runs on the binary
// image and is thresholded again at mid grey.
func Binarize(img image.Image, opts MaskOptions) *image.Gray {
	level := opts.Threshold
	if level == 0 {
		level = 1
	}

	grey := imaging.Grayscale(img)
	b := grey.Bounds()
	bin := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := grey.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			if c.A > 0 && c.R >= level {
				bin.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	if opts.ClosingRadius > 0 {
		closed := effect.Erode(effect.Dilate(bin, opts.ClosingRadius), opts.ClosingRadius)
		bin = segment.Threshold(closed, 128)
	}
	return bin
}

func (m *Mask) fill(bin *image.Gray) {
	b := bin.Bounds()
	m.Width, m.Height = b.Dx(), b.Dy()
	m.bits = make([]bool, m.Width*m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			m.bits[y*m.Width+x] = bin.GrayAt(b.Min.X+x, b.Min.Y+y).Y > 0
		}
	}
}

// At reports whether the pixel at column x, row y is channel. Pixels
// outside the image are not.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.bits[y*m.Width+x]
}

// Count returns the number of channel pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Area is the ground area of all channel pixels.
func (m *Mask) Area() float64 {
	return float64(m.Count()) * m.Transform.PixelArea()
}

// Polygon traces the outline of every channel region into one polygon in
// map coordinates. Holes are kept as inner rings.
func (m *Mask) Polygon() (geom.Polygon, error) {
	if m.Count() == 0 {
		return nil, ErrEmptyMask
	}

	rings := traceRings(m)
	poly := make(geom.Polygon, 0, len(rings))
	for _, ring := range rings {
		path := make(geom.Path, len(ring))
		for i, v := range ring {
			path[i] = m.Transform.Corner(v.x, v.y)
		}
		poly = append(poly, path)
	}
	return poly, nil
}
