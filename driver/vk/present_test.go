// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"testing"

	"github.com/gviegas/raytrace/driver"
)

func TestSwapchainHeadless(t *testing.T) {
	tGPU(t)
	sc, err := tDrv.NewSwapchain(3)
	if err != driver.ErrCannotPresent {
		t.Errorf("tDrv.NewSwapchain(3)\nhave %v\nwant %v", err, driver.ErrCannotPresent)
	}
	if sc != nil {
		t.Errorf("tDrv.NewSwapchain(3)\nhave %v\nwant nil", sc)
	}
	if tDrv.sc != nil {
		t.Errorf("tDrv.sc\nhave %p\nwant nil", tDrv.sc)
	}
}

func TestClampExtent(t *testing.T) {
	cases := [...]struct {
		n             int
		min, max, out int
	}{
		{0, 1, 4096, 1},
		{-1, 1, 4096, 1},
		{800, 1, 4096, 800},
		{8000, 1, 4096, 4096},
		{600, 600, 600, 600},
	}
	for _, c := range cases {
		x := clampExtent(c.n, toU32(c.min), toU32(c.max))
		if int(x) != c.out {
			t.Errorf("clampExtent(%d, %d, %d)\nhave %d\nwant %d", c.n, c.min, c.max, x, c.out)
		}
	}
}
