// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package shader

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/gviegas/raytrace/linear"
)

// FrameLayout is the layout of per-frame data.
// It is defined as follows:
//
//	[0:16]  | inverse view matrix
//	[16:32] | inverse projection matrix
//	[32:36] | light position
//	[36:40] | settings (soft shadows, reflections,
//	        | refraction, subsurface scattering)
//	[40]    | maximum ray depth
//	[41:44] | (unused)
type FrameLayout [44]float32

// FrameSize is the size in bytes of a FrameLayout.
const FrameSize = int(unsafe.Sizeof(FrameLayout{}))

// SetViewInv sets the inverse view matrix.
func (l *FrameLayout) SetViewInv(m *linear.M4) { copyM4(l[:16], m) }

// SetProjInv sets the inverse projection matrix.
func (l *FrameLayout) SetProjInv(m *linear.M4) { copyM4(l[16:32], m) }

// SetLight sets the light position.
func (l *FrameLayout) SetLight(p *linear.V4) { copy(l[32:36], p[:]) }

// SetSettings sets the settings vector.
// Each component is either 0 (off) or 1 (on).
func (l *FrameLayout) SetSettings(s *linear.V4) { copy(l[36:40], s[:]) }

// SetMaxDepth sets the maximum number of secondary
// bounces traced from a closest-hit invocation.
func (l *FrameLayout) SetMaxDepth(n int) { l[40] = float32(n) }

// Encode writes l into b, which must have at least
// FrameSize bytes.
func (l *FrameLayout) Encode(b []byte) { encodeF32(b, l[:]) }

func copyM4(dst []float32, m *linear.M4) {
	copy(dst, unsafe.Slice((*float32)(unsafe.Pointer(m)), 16))
}

func encodeF32(b []byte, s []float32) {
	_ = b[len(s)*4-1]
	for i, x := range s {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(x))
	}
}

// ObjectLayout is the layout of per-object data.
// It contains the device addresses of the object's
// vertices, indices and material, in this order.
type ObjectLayout [3]uint64

// ObjectSize is the size in bytes of an ObjectLayout.
const ObjectSize = int(unsafe.Sizeof(ObjectLayout{}))

// Encode writes l into b, which must have at least
// ObjectSize bytes.
func (l *ObjectLayout) Encode(b []byte) {
	_ = b[ObjectSize-1]
	for i, x := range l {
		binary.LittleEndian.PutUint64(b[i*8:], x)
	}
}

// Decode reads l from b.
func (l *ObjectLayout) Decode(b []byte) {
	_ = b[ObjectSize-1]
	for i := range l {
		l[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
}

// MaterialLayout is the layout of material data.
// It is defined as follows:
//
//	[0:4] | color
//	[4:8] | type, roughness, index of refraction,
//	      | subsurface amount
type MaterialLayout [8]float32

// MaterialSize is the size in bytes of a MaterialLayout.
const MaterialSize = int(unsafe.Sizeof(MaterialLayout{}))

// SetColor sets the base color.
func (l *MaterialLayout) SetColor(c *linear.V4) { copy(l[:4], c[:]) }

// SetParams sets the parameter vector.
func (l *MaterialLayout) SetParams(p *linear.V4) { copy(l[4:], p[:]) }

// Encode writes l into b, which must have at least
// MaterialSize bytes.
func (l *MaterialLayout) Encode(b []byte) { encodeF32(b, l[:]) }

// VertexLayout is the layout of vertex data: position,
// normal and color.
type VertexLayout [9]float32

// VertexSize is the size in bytes of a VertexLayout.
const VertexSize = int(unsafe.Sizeof(VertexLayout{}))

// Set sets every attribute.
func (l *VertexLayout) Set(pos, norm, color *linear.V3) {
	copy(l[:3], pos[:])
	copy(l[3:6], norm[:])
	copy(l[6:], color[:])
}

// Encode writes l into b, which must have at least
// VertexSize bytes.
func (l *VertexLayout) Encode(b []byte) { encodeF32(b, l[:]) }
