// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Memory types resembling a discrete GPU.
var tTypes = []MemType{
	{0, 1},
	{PDeviceLocal, 0},
	{PHostVisible | PHostCoherent, 1},
	{PHostVisible | PHostCoherent | PHostCached, 1},
	{PDeviceLocal | PHostVisible | PHostCoherent, 2},
}

func TestMemClassProps(t *testing.T) {
	assert.Equal(t, PDeviceLocal, DeviceLocal.Props())
	assert.Equal(t, PHostVisible|PHostCoherent, HostVisible.Props())
	assert.Panics(t, func() { MemClass(-1).Props() })
}

func TestSelectMemory(t *testing.T) {
	for _, x := range [...]struct {
		bits uint32
		want MemProp
		idx  int
	}{
		{0x1f, PDeviceLocal, 1},
		{0x1f, HostVisible.Props(), 2},
		{0x18, HostVisible.Props(), 3},
		{0x10, HostVisible.Props() | PDeviceLocal, 4},
		{0x1f, PHostCached, 3},
		{0x01, 0, 0},
	} {
		i, err := SelectMemory(tTypes, x.bits, x.want)
		require.NoError(t, err, "SelectMemory(%#x, %#x)", x.bits, x.want)
		assert.Equal(t, x.idx, i, "SelectMemory(%#x, %#x)", x.bits, x.want)
	}
}

func TestSelectMemoryInvariant(t *testing.T) {
	// For all masks and classes with a match, the selected
	// index is allowed by the mask and has every property.
	for bits := uint32(0); bits < 1<<len(tTypes); bits++ {
		for _, c := range [...]MemClass{DeviceLocal, HostVisible} {
			want := c.Props()
			i, err := SelectMemory(tTypes, bits, want)
			if err != nil {
				assert.ErrorIs(t, err, ErrNoCompatibleMemory)
				for j := range tTypes {
					if bits&(1<<j) != 0 {
						assert.NotEqual(t, want, tTypes[j].Prop&want, "missed type %d for mask %#x", j, bits)
					}
				}
				continue
			}
			assert.NotZero(t, bits&(1<<i), "mask %#x, class %v", bits, c)
			assert.Equal(t, want, tTypes[i].Prop&want, "mask %#x, class %v", bits, c)
		}
	}
}

func TestSelectMemoryUnsatisfiable(t *testing.T) {
	// Device-local types only; host-visible requests must fail
	// rather than fall back.
	types := []MemType{{PDeviceLocal, 0}, {PDeviceLocal, 0}}
	i, err := SelectMemory(types, 0x3, HostVisible.Props())
	assert.ErrorIs(t, err, ErrNoCompatibleMemory)
	assert.Equal(t, -1, i)

	// Matching type exists but the mask excludes it.
	i, err = SelectMemory(tTypes, 0x3, HostVisible.Props())
	assert.ErrorIs(t, err, ErrNoCompatibleMemory)
	assert.Equal(t, -1, i)

	_, err = SelectMemory(nil, ^uint32(0), PDeviceLocal)
	assert.ErrorIs(t, err, ErrNoCompatibleMemory)
}
