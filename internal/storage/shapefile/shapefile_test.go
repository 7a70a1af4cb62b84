package shapefile

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/chrissnell/riveractivity/internal/storage/storagetest"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLayer(t *testing.T, path string) ([]string, []float64, float64) {
	t.Helper()
	dec, err := shp.NewDecoder(path)
	require.NoError(t, err)
	defer dec.Close()

	var ids []string
	var areas []float64
	var total float64
	for {
		g, fields, more := dec.DecodeRowFields("TRAMO", "AREA")
		if !more {
			break
		}
		ids = append(ids, fields["TRAMO"])
		a, err := strconv.ParseFloat(fields["AREA"], 64)
		require.NoError(t, err)
		areas = append(areas, a)
		total += g.(geom.Polygonal).Area()
	}
	require.NoError(t, dec.Error())
	return ids, areas, total
}

func TestWriteRun(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "out"), nil)
	require.NoError(t, err)
	defer w.Close()

	run := storagetest.Run(t, true)
	require.NoError(t, w.WriteRun(context.Background(), run))

	erosion := w.Path(LayerErosion, run)
	assert.Equal(t, "EROSION_Ucayali_1986_2016.shp", filepath.Base(erosion))

	ids, areas, total := readLayer(t, erosion)
	assert.Equal(t, []string{"A", "B"}, ids)
	require.Len(t, areas, 2)
	assert.InDelta(t, 20, areas[0], 1e-6)
	assert.InDelta(t, 18, areas[1], 1e-6)
	assert.InDelta(t, run.Result.Summary.TotalErosion, total, 1e-6)

	ids, _, total = readLayer(t, w.Path(LayerPersistence, run))
	assert.Equal(t, []string{"A", "B"}, ids)
	assert.InDelta(t, run.Result.Summary.TotalPersistence, total, 1e-6)

	ids, _, _ = readLayer(t, w.Path(LayerDeposition, run))
	assert.Len(t, ids, 2)

	prj, err := os.ReadFile(filepath.Join(dir, "out", "DEPOSITION_Ucayali_1986_2016.prj"))
	require.NoError(t, err)
	assert.Equal(t, run.CRS, string(prj))
}

func TestWriteRunWithoutGeometry(t *testing.T) {
	w, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	err = w.WriteRun(context.Background(), storagetest.Run(t, false))
	assert.ErrorIs(t, err, ErrNoGeometry)
}
