// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccelInstanceEncode(t *testing.T) {
	in := AccelInstance{
		Transform:   [12]float32{1, 0, 0, 5, 0, 2, 0, 6, 0, 0, 3, 7},
		CustomIndex: 7,
		Mask:        0xff,
		SBTOffset:   0,
		Flags:       InstanceCullDisable,
		AccelAddr:   0xdeadbeef00,
	}
	var b [InstanceSize]byte
	in.Encode(b[:])

	for i, x := range in.Transform {
		have := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		assert.Equal(t, x, have, "transform[%d]", i)
	}
	assert.Equal(t, byte(7), b[48], "custom index low byte")
	assert.Equal(t, byte(0xff), b[51], "mask")
	assert.Equal(t, byte(InstanceCullDisable), b[55], "flags")
	assert.Equal(t, uint64(0xdeadbeef00), binary.LittleEndian.Uint64(b[56:]))

	var out AccelInstance
	out.Decode(b[:])
	assert.Equal(t, in, out)
}

func TestAccelInstanceTruncates(t *testing.T) {
	in := AccelInstance{
		CustomIndex: 0x12345678,
		Mask:        0x0f,
		SBTOffset:   0xffffffff,
		Flags:       InstanceForceOpaque,
	}
	var b [InstanceSize]byte
	in.Encode(b[:])
	var out AccelInstance
	out.Decode(b[:])
	assert.Equal(t, uint32(0x345678), out.CustomIndex)
	assert.Equal(t, uint8(0x0f), out.Mask)
	assert.Equal(t, uint32(0xffffff), out.SBTOffset)
	assert.Equal(t, InstanceForceOpaque, out.Flags)
}

func TestAccelInstanceShortBuffer(t *testing.T) {
	in := AccelInstance{}
	assert.Panics(t, func() { in.Encode(make([]byte, InstanceSize-1)) })
}
