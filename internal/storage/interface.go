// Package storage defines the interface and shared row layout for the
// backends that persist river activity runs.
package storage

import (
	"context"

	"github.com/chrissnell/riveractivity/internal/types"
)

// ResultWriter is implemented by every backend that persists a completed
// run. WriteRun is called once per run; Close releases the backend.
type ResultWriter interface {
	Name() string
	WriteRun(ctx context.Context, run *types.Run) error
	Close() error
}
