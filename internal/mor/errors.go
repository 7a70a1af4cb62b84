package mor

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is matching against the typed errors below.
var (
	ErrValidation       = errors.New("validation failed")
	ErrUnprojectedInput = errors.New("input reference system is not projected")
	ErrGeometryOverlay  = errors.New("geometry overlay failed")
	ErrTimeout          = errors.New("time budget exceeded")
	ErrInvariant        = errors.New("invariant violated")
)

// ValidationError reports malformed run input (mismatched lengths, empty snapshots).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// DuplicateSectionIDError is returned when a section identifier repeats.
type DuplicateSectionIDError struct {
	ID     string
	First  int
	Repeat int
}

func (e *DuplicateSectionIDError) Error() string {
	return fmt.Sprintf("duplicate section id %q at positions %d and %d", e.ID, e.First, e.Repeat)
}

func (e *DuplicateSectionIDError) Is(target error) bool {
	return target == ErrValidation
}

// DegenerateGeometryError is returned for a section polygon that is empty,
// self-intersecting or has no positive area.
type DegenerateGeometryError struct {
	SectionID string
	Index     int
	Reason    string
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("degenerate geometry for section %q (position %d): %s", e.SectionID, e.Index, e.Reason)
}

func (e *DegenerateGeometryError) Is(target error) bool {
	return target == ErrValidation
}

// UnprojectedInputError is returned when the run's reference system is
// geographic. Areas in degree space are meaningless.
type UnprojectedInputError struct {
	Reference string
}

func (e *UnprojectedInputError) Error() string {
	return fmt.Sprintf("reference system %q is geographic; a projected reference with linear units is required", e.Reference)
}

func (e *UnprojectedInputError) Is(target error) bool {
	return target == ErrUnprojectedInput
}

// GeometryOverlayError is returned when an overlay operation for one section
// produces a topologically invalid or out-of-bounds result.
type GeometryOverlayError struct {
	SectionID string
	Op        string
	Err       error
}

func (e *GeometryOverlayError) Error() string {
	return fmt.Sprintf("overlay %s failed for section %q: %v", e.Op, e.SectionID, e.Err)
}

func (e *GeometryOverlayError) Unwrap() error {
	return e.Err
}

func (e *GeometryOverlayError) Is(target error) bool {
	return target == ErrGeometryOverlay
}

// TimeoutError is returned when a run exceeds its time budget. No partial
// result accompanies it.
type TimeoutError struct {
	Budget    time.Duration
	Completed int
	Total     int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("time budget of %s exceeded after %d of %d sections", e.Budget, e.Completed, e.Total)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// InvariantError signals arithmetic over a value that upstream validation
// should have ruled out (negative or NaN area).
type InvariantError struct {
	SectionID string
	Field     string
	Value     float64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("section %q: %s has invalid value %v", e.SectionID, e.Field, e.Value)
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// WarningKind classifies non-fatal findings recorded in the valley summary.
type WarningKind string

const (
	WarningDegenerateSection WarningKind = "degenerate-section"
	WarningOverlaySkipped    WarningKind = "overlay-skipped"
	WarningRateOutOfRange    WarningKind = "rate-out-of-range"
	WarningSectionOverlap    WarningKind = "section-overlap"
)

// Warning is a non-fatal finding kept in the summary for audit.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	SectionID string      `json:"section_id"`
	Message   string      `json:"message"`
}
