// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"encoding/binary"
	"math"
)

// AccelType is the type of acceleration structures.
type AccelType int

// Acceleration structure types.
const (
	// Bottom level, over triangles.
	ABottom AccelType = iota
	// Top level, over instances of bottom level
	// structures.
	ATop
)

// Accel is the interface that defines an acceleration
// structure.
type Accel interface {
	Destroyer

	// Type returns the type of the acceleration
	// structure.
	Type() AccelType

	// Addr returns the device address of the
	// acceleration structure, which is referenced by
	// instance records.
	Addr() uint64
}

// TriangleGeom describes an indexed triangle list.
// Vertex positions are three float32 values at the start
// of each vertex. Indices are uint32.
type TriangleGeom struct {
	VertexAddr   uint64
	VertexStride int64
	MaxVertex    int
	IndexAddr    uint64
	PrimCount    int
	Opaque       bool
}

// InstanceGeom describes an array of instance records
// (see AccelInstance).
type InstanceGeom struct {
	Addr  uint64
	Count int
}

// AccelGeom describes the geometry of an acceleration
// structure build.
// Triangles is used by ABottom structures and Instances by
// ATop structures.
type AccelGeom struct {
	Type      AccelType
	Triangles []TriangleGeom
	Instances InstanceGeom
	FastTrace bool
}

// AccelSizes are the sizes needed to build an acceleration
// structure.
type AccelSizes struct {
	Storage int64
	Scratch int64
}

// InstanceFlag is the type of per-instance flags.
type InstanceFlag uint8

// Instance flags.
const (
	InstanceCullDisable InstanceFlag = 1 << iota
	InstanceFlipFacing
	InstanceForceOpaque
	InstanceForceNoOpaque
)

// InstanceSize is the size in bytes of an encoded instance
// record.
const InstanceSize = 64

// AccelInstance describes an instance of a bottom level
// acceleration structure in a top level one.
type AccelInstance struct {
	// Row-major 3x4 object to world transform.
	Transform [12]float32
	// Only the low 24 bits are used.
	CustomIndex uint32
	Mask        uint8
	// Only the low 24 bits are used.
	SBTOffset uint32
	Flags     InstanceFlag
	// Device address of the bottom level structure.
	AccelAddr uint64
}

// Encode writes the instance record into b, which must have
// at least InstanceSize bytes.
func (in *AccelInstance) Encode(b []byte) {
	_ = b[InstanceSize-1]
	for i, x := range in.Transform {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(x))
	}
	binary.LittleEndian.PutUint32(b[48:], in.CustomIndex&0xffffff|uint32(in.Mask)<<24)
	binary.LittleEndian.PutUint32(b[52:], in.SBTOffset&0xffffff|uint32(in.Flags)<<24)
	binary.LittleEndian.PutUint64(b[56:], in.AccelAddr)
}

// Decode reads an instance record from b.
func (in *AccelInstance) Decode(b []byte) {
	_ = b[InstanceSize-1]
	for i := range in.Transform {
		in.Transform[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	x := binary.LittleEndian.Uint32(b[48:])
	in.CustomIndex, in.Mask = x&0xffffff, uint8(x>>24)
	x = binary.LittleEndian.Uint32(b[52:])
	in.SBTOffset, in.Flags = x&0xffffff, InstanceFlag(x>>24)
	in.AccelAddr = binary.LittleEndian.Uint64(b[56:])
}
