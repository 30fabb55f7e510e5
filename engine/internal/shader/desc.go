// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package shader

import (
	"github.com/gviegas/raytrace/driver"
)

// Binding numbers of the single descriptor heap.
// These must match the definitions in common.glsl.
const (
	AccelNr = iota
	ImageNr
	FrameNr
	ObjectNr
)

// Descriptors returns the descriptors of the heap used by
// the ray tracing pipeline.
func Descriptors() []driver.Descriptor {
	return []driver.Descriptor{
		{Type: driver.DAccel, Stages: driver.SRaygen | driver.SClosestHit, Nr: AccelNr, Len: 1},
		{Type: driver.DImage, Stages: driver.SRaygen, Nr: ImageNr, Len: 1},
		{Type: driver.DConstant, Stages: driver.SRaygen | driver.SClosestHit, Nr: FrameNr, Len: 1},
		{Type: driver.DBuffer, Stages: driver.SClosestHit, Nr: ObjectNr, Len: 1},
	}
}
