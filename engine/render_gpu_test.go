// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/raytrace/driver"
	_ "github.com/gviegas/raytrace/driver/vk"
	"github.com/gviegas/raytrace/scene"
)

// TestRenderGPU renders the single cube scene on a real
// device and checks that the cube is visible against the
// sky.
func TestRenderGPU(t *testing.T) {
	drv, gpu, err := Open("vulkan", nil)
	if err != nil {
		t.Skipf("no ray tracing device: %v", err)
	}
	defer drv.Close()

	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 160, 120
	r, err := NewOffscreen(gpu, scene.SingleCube(), &cfg)
	if err != nil {
		var serr *driver.ShaderError
		if errors.As(err, &serr) {
			t.Skipf("shaders unavailable: %v", err)
		}
		t.Fatal(err)
	}
	defer r.Close()

	for i := 0; i < MaxFrame+1; i++ {
		require.NoError(t, r.Render())
	}
	img, err := r.Snapshot()
	require.NoError(t, err)

	// The sky only varies with the vertical direction, so
	// on any row the edge pixel is sky. Some row must show
	// the cube at its center.
	diff := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	var hit bool
	for y := 0; y < cfg.Height && !hit; y++ {
		edge := img.RGBAAt(0, y)
		mid := img.RGBAAt(cfg.Width/2, y)
		hit = diff(edge.R, mid.R) > 40 || diff(edge.G, mid.G) > 40 || diff(edge.B, mid.B) > 40
	}
	assert.True(t, hit, "cube not visible")
	assert.Equal(t, uint8(255), img.RGBAAt(0, 0).A)
}
