// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package driver

import "fmt"

// SBTRegion describes a region of a shader binding table
// buffer, in device address space.
type SBTRegion struct {
	Addr   uint64
	Stride int64
	Size   int64
}

// ShaderTable is the set of shader binding table regions
// used by a TraceRays command.
type ShaderTable struct {
	Raygen   SBTRegion
	Miss     SBTRegion
	Hit      SBTRegion
	Callable SBTRegion
}

// Regions of a shader binding table, in table order.
const (
	RRaygen = iota
	RMiss
	RHit
	RCallable
	nRegion
)

// SBTLayout describes how shader group handles are laid out
// in a shader binding table buffer.
type SBTLayout struct {
	// Size of one handle, as returned by the pipeline.
	HandleSize int
	// Distance between consecutive records.
	Stride int64
	// Offset and size of each region in the buffer.
	Off  [nRegion]int64
	Len  [nRegion]int64
	Size int64
	// Groups[r] lists the group indices whose handles
	// make up region r, in record order.
	Groups [nRegion][]int
}

func align(n, a int64) int64 {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}

// NewSBTLayout computes the layout of a shader binding table.
// groups[r] lists, in order, the shader groups whose
// handles are placed in region r (RRaygen, RMiss, RHit,
// RCallable). The raygen region must have exactly one
// group.
// The record stride is handleSize aligned to handleAlign,
// and each region starts at a multiple of baseAlign.
func NewSBTLayout(handleSize, handleAlign, baseAlign int, groups [nRegion][]int) (*SBTLayout, error) {
	if handleSize <= 0 {
		return nil, fmt.Errorf("driver: invalid shader group handle size %d", handleSize)
	}
	if len(groups[RRaygen]) != 1 {
		return nil, fmt.Errorf("driver: raygen region must have 1 record (have %d)", len(groups[RRaygen]))
	}
	l := &SBTLayout{
		HandleSize: handleSize,
		Stride:     align(int64(handleSize), int64(handleAlign)),
		Groups:     groups,
	}
	var off int64
	for r := range groups {
		n := int64(len(groups[r]))
		if n == 0 {
			continue
		}
		off = align(off, int64(baseAlign))
		l.Off[r] = off
		l.Len[r] = n * l.Stride
		off += l.Len[r]
	}
	l.Size = off
	return l, nil
}

// Fill writes the table into dst.
// handles must contain the handles of groups 0, 1, ..., in
// order, as returned by Pipeline.GroupHandles.
// dst must have at least l.Size bytes.
func (l *SBTLayout) Fill(dst, handles []byte) error {
	if int64(len(dst)) < l.Size {
		return fmt.Errorf("driver: SBT destination too small (%d < %d)", len(dst), l.Size)
	}
	hs := l.HandleSize
	for r := range l.Groups {
		for i, g := range l.Groups[r] {
			if g < 0 || (g+1)*hs > len(handles) {
				return fmt.Errorf("driver: missing handle for shader group %d", g)
			}
			off := l.Off[r] + int64(i)*l.Stride
			copy(dst[off:off+int64(hs)], handles[g*hs:(g+1)*hs])
		}
	}
	return nil
}

// Table returns the regions of the table when stored at
// device address addr.
// Empty regions have zero address and size.
func (l *SBTLayout) Table(addr uint64) ShaderTable {
	var rs [nRegion]SBTRegion
	for r := range rs {
		if l.Len[r] == 0 {
			continue
		}
		rs[r] = SBTRegion{
			Addr:   addr + uint64(l.Off[r]),
			Stride: l.Stride,
			Size:   l.Len[r],
		}
	}
	return ShaderTable{
		Raygen:   rs[RRaygen],
		Miss:     rs[RMiss],
		Hit:      rs[RHit],
		Callable: rs[RCallable],
	}
}
