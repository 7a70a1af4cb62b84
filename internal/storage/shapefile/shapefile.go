// Package shapefile writes the erosion, deposition and persistence polygons
// of a run as ESRI shapefiles.
package shapefile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/riveractivity/internal/types"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"go.uber.org/zap"
)

// ErrNoGeometry is returned for runs computed without keeping change polygons.
var ErrNoGeometry = errors.New("run has no change geometry")

// Change layers, in the order they are written
const (
	LayerErosion     = "EROSION"
	LayerDeposition  = "DEPOSITION"
	LayerPersistence = "PERSISTENCE"
)

// Feature is one record of a change layer
type Feature struct {
	geom.Polygon
	TRAMO  string
	AREA   float64
	YEAR_A int
	YEAR_B int
}

// Writer emits one shapefile per change layer into Dir
type Writer struct {
	Dir    string
	logger *zap.SugaredLogger
}

// New returns a writer for dir, creating the directory if needed
func New(dir string, logger *zap.SugaredLogger) (*Writer, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating shapefile directory %s: %w", dir, err)
	}
	return &Writer{Dir: dir, logger: logger}, nil
}

// Name identifies the backend in logs
func (w *Writer) Name() string {
	return "shapefile"
}

// Path returns the file a layer of run is written to
func (w *Writer) Path(layer string, run *types.Run) string {
	return filepath.Join(w.Dir, fmt.Sprintf("%s_%s.shp", layer, run.Tag()))
}

// WriteRun writes the three change layers. Sections with an empty change
// polygon produce no record in that layer.
func (w *Writer) WriteRun(ctx context.Context, run *types.Run) error {
	if run == nil || run.Result == nil {
		return fmt.Errorf("shapefile: run has no result")
	}

	layers := map[string][]Feature{}
	kept := false
	for _, sr := range run.Result.Sections {
		if sr.Geometry == nil || sr.Section == nil {
			continue
		}
		kept = true
		for layer, poly := range map[string]geom.Polygon{
			LayerErosion:     sr.Geometry.Erosion,
			LayerDeposition:  sr.Geometry.Deposition,
			LayerPersistence: sr.Geometry.Persistence,
		} {
			if len(poly) == 0 {
				continue
			}
			layers[layer] = append(layers[layer], Feature{
				Polygon: poly,
				TRAMO:   sr.Section.ID,
				AREA:    poly.Area(),
				YEAR_A:  run.YearT1,
				YEAR_B:  run.YearT2,
			})
		}
	}
	if !kept {
		return fmt.Errorf("shapefile: %w", ErrNoGeometry)
	}

	for _, layer := range []string{LayerErosion, LayerDeposition, LayerPersistence} {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := w.Path(layer, run)
		if err := writeLayer(path, layers[layer]); err != nil {
			return fmt.Errorf("shapefile: writing %s: %w", path, err)
		}
		if err := writePrj(path, run.CRS); err != nil {
			return fmt.Errorf("shapefile: writing projection for %s: %w", path, err)
		}
		w.logger.Infow("change layer written", "layer", layer, "path", path, "features", len(layers[layer]))
	}
	return nil
}

func writeLayer(path string, features []Feature) error {
	enc, err := shp.NewEncoder(path, Feature{})
	if err != nil {
		return err
	}
	for _, f := range features {
		if err := enc.Encode(f); err != nil {
			enc.Close()
			return fmt.Errorf("section %s: %w", f.TRAMO, err)
		}
	}
	enc.Close()
	return nil
}

func writePrj(shpPath, crs string) error {
	if crs == "" {
		return nil
	}
	prj := shpPath[:len(shpPath)-len(filepath.Ext(shpPath))] + ".prj"
	return os.WriteFile(prj, []byte(crs), 0o644)
}

// Close is a no-op; every layer is closed as soon as it is written
func (w *Writer) Close() error {
	return nil
}
