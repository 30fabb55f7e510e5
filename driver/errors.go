// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"errors"
	"fmt"
)

// ErrNoCompatibleMemory means that no memory type satisfies
// both the resource's requirements and the requested memory
// class.
var ErrNoCompatibleMemory = errors.New("driver: no compatible memory type")

// AllocError is returned when a resource allocation fails.
type AllocError struct {
	Size  int64
	Usage Usage
	Err   error
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("driver: failed to allocate %d bytes (%v): %v", e.Size, e.Usage, e.Err)
}

func (e *AllocError) Unwrap() error { return e.Err }

// BuildError is returned when building an acceleration
// structure fails.
// Stage is either "blas" or "tlas", and Index identifies
// the mesh of a failed BLAS build.
type BuildError struct {
	Stage string
	Index int
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("driver: %s build failed (index %d): %v", e.Stage, e.Index, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// ShaderError is returned when a shader stage cannot be
// compiled or loaded.
type ShaderError struct {
	Stage Stage
	Msg   string
}

func (e *ShaderError) Error() string {
	return fmt.Sprintf("driver: %v shader: %s", e.Stage, e.Msg)
}

// PresentError is returned when presentation fails for
// a reason other than an out of date swapchain.
type PresentError struct {
	Err error
}

func (e *PresentError) Error() string { return "driver: present failed: " + e.Err.Error() }

func (e *PresentError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err only means that the
// current frame must be skipped (i.e., the swapchain is out
// of date).
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrSwapchain)
}
