// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/raytrace/driver"
	"github.com/gviegas/raytrace/engine/internal/shader"
	"github.com/gviegas/raytrace/linear"
	"github.com/gviegas/raytrace/scene"
)

// frameData decodes the uniform of a slot.
func frameData(s *slot) (l shader.FrameLayout) {
	b := s.frame.Bytes()
	for i := range l {
		l[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return
}

func TestNewRenderer(t *testing.T) {
	g := newFakeGPU()
	cfg := testConfig(t)
	r, err := NewOffscreen(g, scene.Demo(), cfg)
	require.NoError(t, err)

	w, h := r.Size()
	assert.Equal(t, cfg.Width, w)
	assert.Equal(t, cfg.Height, h)
	assert.Equal(t, driver.RGBA8un, r.tgt.img.Format())
	assert.Equal(t, linear.V3(cfg.CameraPos), r.Camera().Pos)
	assert.Equal(t, cfg.Settings, r.Settings())

	heap := r.pl.heap.(*fakeHeap)
	for i := 0; i < MaxFrame; i++ {
		assert.Same(t, r.accel.tlas, heap.accels[[2]int{i, shader.AccelNr}])
		assert.Same(t, r.tgt.view, heap.images[[2]int{i, shader.ImageNr}])
		assert.Same(t, r.slots[i].frame, heap.bufs[[2]int{i, shader.FrameNr}])
		assert.Same(t, r.scn.object, heap.bufs[[2]int{i, shader.ObjectNr}])
	}
	assert.NotSame(t, r.slots[0].frame, r.slots[1].frame)

	r.Close()
	assert.Empty(t, g.live)
	r.Close()
}

func TestNewRendererInvalid(t *testing.T) {
	g := newFakeGPU()
	cfg := testConfig(t)
	_, err := NewOffscreen(g, &scene.Scene{}, cfg)
	assert.Error(t, err)

	bad := *cfg
	bad.Width = 0
	_, err = NewOffscreen(g, scene.SingleCube(), &bad)
	assert.Error(t, err)

	// Failure after allocations releases them.
	g.lim.MaxRayRecursion = 1
	_, err = NewOffscreen(g, scene.SingleCube(), cfg)
	assert.Error(t, err)
	assert.Empty(t, g.live)

	_, err = NewOnscreen(g, scene.SingleCube(), cfg)
	assert.Error(t, err)
	assert.Empty(t, g.live)
	assert.Nil(t, g.sc)
}

func TestNewRendererTooLarge(t *testing.T) {
	g := newFakeGPU()
	cfg := testConfig(t)
	cfg.Width = g.lim.MaxImage2D + 1
	_, err := NewOffscreen(g, scene.SingleCube(), cfg)
	var aerr *driver.AllocError
	assert.ErrorAs(t, err, &aerr)
	assert.Empty(t, g.live)
}

func TestFrameUniform(t *testing.T) {
	g := newFakeGPU()
	cfg := testConfig(t)
	cfg.LightPos = [3]float32{1, 2, 3}
	r, err := NewOffscreen(g, scene.SingleCube(), cfg)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Render())
	l := frameData(&r.slots[0])
	assert.Equal(t, []float32{1, 2, 3, 1}, l[32:36])
	assert.Equal(t, []float32{1, 1, 1, 1}, l[36:40])
	assert.Equal(t, float32(MaxRecursion-1), l[40])

	view := r.Camera().View()
	var inv linear.M4
	inv.Invert(&view)
	for i := 0; i < 16; i++ {
		assert.InDelta(t, inv[i/4][i%4], l[i], 1e-5)
	}

	// Toggles take effect on the next frame and only
	// in that frame's slot.
	r.HandleInput(Key2, true)
	r.HandleInput(Key2, false)
	assert.False(t, r.Settings().Reflections)
	require.NoError(t, r.Render())
	l = frameData(&r.slots[1])
	assert.Equal(t, []float32{1, 0, 1, 1}, l[36:40])
	l = frameData(&r.slots[0])
	assert.Equal(t, []float32{1, 1, 1, 1}, l[36:40])
}

func TestHandleInput(t *testing.T) {
	g := newFakeGPU()
	r, err := NewOffscreen(g, scene.SingleCube(), testConfig(t))
	require.NoError(t, err)
	defer r.Close()

	pos := r.Camera().Pos
	yaw := r.Camera().Yaw
	r.HandleInput(KeyW, true)
	r.HandlePointer(5, 0)
	// Nothing happens until a frame is rendered.
	assert.Equal(t, pos, r.Camera().Pos)
	require.NoError(t, r.Render())
	assert.NotEqual(t, pos, r.Camera().Pos)
	assert.InDelta(t, yaw+5*r.Camera().Sensitivity, r.Camera().Yaw, 1e-5)

	r.HandleInput(KeyW, false)
	pos = r.Camera().Pos
	require.NoError(t, r.Render())
	assert.Equal(t, pos, r.Camera().Pos)
}

func TestSnapshot(t *testing.T) {
	g := newFakeGPU()
	cfg := testConfig(t)
	r, err := NewOffscreen(g, scene.SingleCube(), cfg)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Render())
	img, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, cfg.Width, img.Bounds().Dx())
	assert.Equal(t, cfg.Height, img.Bounds().Dy())
	require.Len(t, img.Pix, cfg.Width*cfg.Height*4)
	for i, x := range img.Pix {
		if x != byte(i%251) {
			t.Fatalf("Snapshot: Pix[%d]\nhave %d\nwant %d", i, x, byte(i%251))
		}
	}
	// The readback buffer is reused.
	nbuf := g.liveOf("buffer")
	_, err = r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, nbuf, g.liveOf("buffer"))

	// Resizing replaces it.
	r.Resize(32, 16)
	require.NoError(t, r.Render())
	img, err = r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
	assert.Equal(t, nbuf, g.liveOf("buffer"))
}
