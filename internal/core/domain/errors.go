package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// Catalog Errors
// ============================================================================

var (
	ErrDataLoad         = errors.New("metadata load failed")
	ErrEntityNotFound   = errors.New("mitochondrion not found")
	ErrInvalidNeuronID  = errors.New("neuron id must be an integer")
	ErrInvalidEntityID  = errors.New("mitochondrion id must be an integer")
	ErrInvalidPageParam = errors.New("page must be an integer")
)

// DataLoadError describes why the metadata source could not be loaded.
// Row is 1-based and zero when the failure is not tied to a row.
type DataLoadError struct {
	Source string
	Row    int
	Column string
	Err    error
}

func (e *DataLoadError) Error() string {
	var b strings.Builder
	b.WriteString("load ")
	b.WriteString(e.Source)
	if e.Row > 0 {
		fmt.Fprintf(&b, " row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DataLoadError) Unwrap() error { return e.Err }

func (e *DataLoadError) Is(target error) bool { return target == ErrDataLoad }

// ============================================================================
// Screenshot Errors
// ============================================================================

var (
	ErrRenderFailed          = errors.New("render failed")
	ErrRenderTimeout         = errors.New("render timed out")
	ErrCacheIO               = errors.New("screenshot cache io failed")
	ErrMeshNotFound          = errors.New("mesh not found")
	ErrUnsupportedMeshFormat = errors.New("unsupported mesh format")
	ErrEmptyMesh             = errors.New("mesh has no triangles")
)

// RenderError reports the view angles of one entity that could not be
// rendered. Timeout is set when any of them hit the per-call deadline.
type RenderError struct {
	EntityID int64
	Angles   []int
	Timeout  bool
	Err      error
}

func (e *RenderError) Error() string {
	msg := fmt.Sprintf("render mito %d angles %v", e.EntityID, e.Angles)
	if e.Timeout {
		msg += " (timeout)"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool {
	if target == ErrRenderFailed {
		return true
	}
	return target == ErrRenderTimeout && e.Timeout
}
