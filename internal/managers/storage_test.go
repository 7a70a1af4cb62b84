package managers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/chrissnell/riveractivity/internal/storage/storagetest"
	"github.com/chrissnell/riveractivity/internal/types"
	"github.com/chrissnell/riveractivity/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type fakeWriter struct {
	name     string
	writeErr error
	closeErr error

	mu     sync.Mutex
	runs   []*types.Run
	closed bool
}

func (f *fakeWriter) Name() string { return f.name }

func (f *fakeWriter) WriteRun(ctx context.Context, run *types.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return f.writeErr
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return f.closeErr
}

func TestWriteRunFansOut(t *testing.T) {
	a := &fakeWriter{name: "a"}
	b := &fakeWriter{name: "b", writeErr: errors.New("disk full")}
	c := &fakeWriter{name: "c", writeErr: errors.New("connection refused")}

	s := &StorageManager{}
	s.AddWriter(a)
	s.AddWriter(b)
	s.AddWriter(c)

	run := storagetest.Run(t, false)
	err := s.WriteRun(context.Background(), run)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), "b: disk full")
	assert.Contains(t, err.Error(), "c: connection refused")

	for _, w := range []*fakeWriter{a, b, c} {
		require.Len(t, w.runs, 1, w.name)
		assert.Same(t, run, w.runs[0])
	}
}

func TestCloseClosesEveryWriter(t *testing.T) {
	a := &fakeWriter{name: "a", closeErr: errors.New("busy")}
	b := &fakeWriter{name: "b"}

	s := &StorageManager{}
	s.AddWriter(a)
	s.AddWriter(b)

	err := s.Close()
	assert.EqualError(t, err, "a: busy")
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestNewStorageManager(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewStorageManager(ctx, config.OutputData{
		Shapefiles:   true,
		ReportFormat: "msgpack",
		SQLite:       &config.SQLiteData{Path: filepath.Join(dir, "runs.db")},
	}, filepath.Join(dir, "RIVER_ACTIVITY_1986_2016"), nil)
	require.NoError(t, err)
	defer s.Close()

	var names []string
	for _, w := range s.Writers {
		names = append(names, w.Name())
	}
	assert.Equal(t, []string{"report", "shapefile", "sqlite"}, names)
	assert.True(t, s.NeedsGeometry())

	run := storagetest.Run(t, true)
	require.NoError(t, s.WriteRun(ctx, run))

	for _, f := range []string{
		"SUMMARY_Ucayali_1986_2016.msgpack",
		"EROSION_Ucayali_1986_2016.shp",
		"DEPOSITION_Ucayali_1986_2016.shp",
		"PERSISTENCE_Ucayali_1986_2016.shp",
	} {
		_, err := os.Stat(filepath.Join(dir, "RIVER_ACTIVITY_1986_2016", f))
		assert.NoError(t, err, f)
	}
}

func TestNewStorageManagerReportDisabled(t *testing.T) {
	s, err := NewStorageManager(context.Background(), config.OutputData{ReportFormat: "none"}, t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, s.Writers)
	assert.False(t, s.NeedsGeometry())
}

func TestAddEngineUnknown(t *testing.T) {
	s := &StorageManager{}
	assert.Error(t, s.AddEngine(context.Background(), "influxdb", config.OutputData{}, t.TempDir()))
}
