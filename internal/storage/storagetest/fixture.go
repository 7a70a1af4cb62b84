// Package storagetest builds small, fully computed runs for backend tests.
package storagetest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/chrissnell/riveractivity/internal/mor"
	"github.com/chrissnell/riveractivity/internal/types"
	"github.com/ctessum/geom"
)

// Rect returns a closed axis-aligned rectangle.
func Rect(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}}
}

// Run computes a three-section run over a 30x10 valley where the channel
// shifts 2 units north between 1986 and 2016. Section "C" sees no channel.
func Run(tb testing.TB, keepGeometry bool) *types.Run {
	tb.Helper()
	return buildRun(tb, mor.Options{KeepGeometry: keepGeometry}, Rect(-1, 2, 19, 5))
}

// SkippedRun is Run with a corrupt 1986 polygon over section "B", computed
// with the skip policy so "B" is reported as skipped.
func SkippedRun(tb testing.TB) *types.Run {
	tb.Helper()
	broken := geom.Polygon{{{X: 12, Y: 6}, {X: 15, Y: 6}, {X: math.NaN(), Y: 8}, {X: 12, Y: 8}, {X: 12, Y: 6}}}
	return buildRun(tb, mor.Options{OnOverlayError: mor.PolicySkip}, Rect(-1, 2, 19, 5), broken)
}

func buildRun(tb testing.TB, opts mor.Options, channel1986 ...geom.Polygonal) *types.Run {
	tb.Helper()

	t1, err := mor.NewSnapshot("T1", 1986, channel1986)
	if err != nil {
		tb.Fatal(err)
	}
	t2, err := mor.NewSnapshot("T2", 2016, []geom.Polygonal{Rect(-1, 4, 19, 7)})
	if err != nil {
		tb.Fatal(err)
	}

	res, err := mor.Run(context.Background(), mor.Input{
		SectionPolygons: []geom.Polygonal{Rect(0, 0, 10, 10), Rect(10, 0, 20, 10), Rect(20, 0, 30, 10)},
		SectionIDs:      []string{"A", "B", "C"},
		T1:              t1,
		T2:              t2,
	}, opts)
	if err != nil {
		tb.Fatal(err)
	}

	run := types.NewRun("Ucayali", 1986, 2016)
	run.T1Label = "RIO_UCAYALI_1986"
	run.T2Label = "RIO_UCAYALI_2016"
	run.CRS = "+proj=utm +zone=18 +south +datum=WGS84 +units=m +no_defs"
	run.Result = res
	run.FinishedAt = run.StartedAt.Add(2 * time.Second)
	return run
}
