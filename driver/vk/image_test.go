// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"fmt"
	"testing"

	"github.com/gviegas/raytrace/driver"
)

func TestImage(t *testing.T) {
	tGPU(t)
	cases := [...]struct {
		pf    driver.PixelFmt
		size  driver.Dim3D
		usage driver.Usage
	}{
		{driver.RGBA8un, driver.Dim3D{Width: 1024, Height: 1024}, driver.UStorage | driver.UCopySrc},
		{driver.RGBA8un, driver.Dim3D{Width: 1, Height: 1}, driver.UStorage},
		{driver.RGBA8un, driver.Dim3D{Width: 800, Height: 600, Depth: 1}, driver.UCopySrc | driver.UCopyDst},
		{driver.RGBA32f, driver.Dim3D{Width: 480, Height: 270}, driver.UStorage},
		{driver.RGBA16f, driver.Dim3D{Width: 16, Height: 2048}, driver.UStorage | driver.UCopySrc},
	}
	zi := image{}
	zv := imageView{}
	for _, c := range cases {
		call := fmt.Sprintf("tDrv.NewImage(%d, %v, %v)", c.pf, c.size, c.usage)
		// NewImage.
		img, err := tDrv.NewImage(c.pf, c.size, c.usage)
		if err != nil {
			t.Errorf("(error) %s: %v", call, err)
			continue
		}
		im := img.(*image)
		if im.m == nil || im.m.d != &tDrv {
			t.Errorf("%s: im.m\nhave %v\nwant memory of tDrv", call, im.m)
		}
		if im.s != nil {
			t.Errorf("%s: im.s\nhave %p\nwant nil", call, im.s)
		}
		if im.img == zi.img {
			t.Errorf("%s: im.img\nhave %v\nwant valid handle", call, im.img)
		}
		if x := im.Format(); x != c.pf {
			t.Errorf("im.Format()\nhave %d\nwant %d", x, c.pf)
		}
		want := driver.Dim3D{Width: c.size.Width, Height: c.size.Height, Depth: 1}
		if x := im.Size(); x != want {
			t.Errorf("im.Size()\nhave %v\nwant %v", x, want)
		}
		// NewView.
		iv, err := im.NewView()
		if err != nil {
			t.Errorf("(error) im.NewView(): %v", err)
		} else {
			v := iv.(*imageView)
			if v.i != im {
				t.Errorf("im.NewView(): v.i\nhave %p\nwant %p", v.i, im)
			}
			if v.view == zv.view {
				t.Errorf("im.NewView(): v.view\nhave %v\nwant valid handle", v.view)
			}
			v.Destroy()
			if v.i != nil || v.view != zv.view {
				t.Errorf("v.Destroy(): v\nhave %v\nwant %v", v, zv)
			}
		}
		// Destroy.
		im.Destroy()
		if im.m != nil || im.img != zi.img {
			t.Errorf("im.Destroy(): im\nhave %v\nwant %v", im, zi)
		}
	}
}

func TestImageTooLarge(t *testing.T) {
	tGPU(t)
	n := tDrv.Limits().MaxImage2D + 1
	img, err := tDrv.NewImage(driver.RGBA8un, driver.Dim3D{Width: n, Height: 1}, driver.UStorage)
	if err == nil {
		img.Destroy()
		t.Fatalf("tDrv.NewImage(_, {%d, 1}, _)\nhave nil error\nwant non-nil", n)
	}
	if _, ok := err.(*driver.AllocError); !ok {
		t.Errorf("tDrv.NewImage(_, {%d, 1}, _)\nhave %T\nwant *driver.AllocError", n, err)
	}
}

func TestPixelFmt(t *testing.T) {
	for _, pf := range [...]driver.PixelFmt{
		driver.RGBA8un,
		driver.RGBA8sRGB,
		driver.BGRA8un,
		driver.BGRA8sRGB,
		driver.RGBA16f,
		driver.RGBA32f,
	} {
		if x := pixelFmtOf(convPixelFmt(pf)); x != pf {
			t.Errorf("pixelFmtOf(convPixelFmt(%d))\nhave %d\nwant %d", pf, x, pf)
		}
	}
	if x := pixelFmtOf(convPixelFmt(driver.FInvalid)); x != driver.FInvalid {
		t.Errorf("pixelFmtOf(convPixelFmt(FInvalid))\nhave %d\nwant %d", x, driver.FInvalid)
	}
}
