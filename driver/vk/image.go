// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

// #include <proc.h>
import "C"

import (
	"github.com/gviegas/raytrace/driver"
)

// image implements driver.Image.
type image struct {
	m      *memory    // Created by Driver.NewImage (s field is nil).
	s      *swapchain // Created by Driver.NewSwapchain (m field is nil).
	img    C.VkImage
	pf     driver.PixelFmt
	fmt    C.VkFormat
	size   driver.Dim3D
	subres C.VkImageSubresourceRange
}

// NewImage creates a new image.
// Allocation failures are reported as *driver.AllocError.
func (d *Driver) NewImage(pf driver.PixelFmt, size driver.Dim3D, usg driver.Usage) (driver.Image, error) {
	if size.Width < 1 || size.Height < 1 {
		panic("cannot create image with zero extent")
	}
	if size.Width > d.lim.MaxImage2D || size.Height > d.lim.MaxImage2D {
		return nil, &driver.AllocError{Usage: usg, Err: errUnsupportedFormat}
	}
	format := convPixelFmt(pf)
	usage := convImageUsage(usg)
	// At least one valid usage must have been set.
	if usage == 0 {
		panic("cannot create image without a valid usage")
	}

	info := C.VkImageCreateInfo{
		sType:     C.VK_STRUCTURE_TYPE_IMAGE_CREATE_INFO,
		imageType: C.VK_IMAGE_TYPE_2D,
		format:    format,
		extent: C.VkExtent3D{
			width:  C.uint32_t(size.Width),
			height: C.uint32_t(size.Height),
			depth:  1,
		},
		mipLevels:     1,
		arrayLayers:   1,
		samples:       C.VK_SAMPLE_COUNT_1_BIT,
		tiling:        C.VK_IMAGE_TILING_OPTIMAL,
		usage:         usage,
		sharingMode:   C.VK_SHARING_MODE_EXCLUSIVE,
		initialLayout: C.VK_IMAGE_LAYOUT_UNDEFINED,
	}
	var img C.VkImage
	err := checkResult(C.vkCreateImage(d.dev, &info, nil, &img))
	if err != nil {
		return nil, &driver.AllocError{Usage: usg, Err: err}
	}

	var req C.VkMemoryRequirements
	C.vkGetImageMemoryRequirements(d.dev, img, &req)
	m, err := d.newMemory(req, driver.DeviceLocal, false)
	if err != nil {
		C.vkDestroyImage(d.dev, img, nil)
		return nil, &driver.AllocError{Size: int64(req.size), Usage: usg, Err: err}
	}
	err = checkResult(C.vkBindImageMemory(d.dev, img, m.mem, 0))
	if err != nil {
		m.free()
		C.vkDestroyImage(d.dev, img, nil)
		return nil, &driver.AllocError{Size: int64(req.size), Usage: usg, Err: err}
	}
	m.bound = true

	return &image{
		m:    m,
		img:  img,
		pf:   pf,
		fmt:  format,
		size: driver.Dim3D{Width: size.Width, Height: size.Height, Depth: 1},
		subres: C.VkImageSubresourceRange{
			aspectMask: C.VK_IMAGE_ASPECT_COLOR_BIT,
			levelCount: 1,
			layerCount: 1,
		},
	}, nil
}

// Format returns the pixel format of the image.
func (im *image) Format() driver.PixelFmt { return im.pf }

// Size returns the extent of the image.
func (im *image) Size() driver.Dim3D { return im.size }

// dev returns the device that owns the image.
func (im *image) dev() C.VkDevice {
	if im.m != nil {
		return im.m.d.dev
	}
	return im.s.d.dev
}

// Destroy destroys the image.
// Swapchain images are not destroyed.
func (im *image) Destroy() {
	if im == nil || im.s != nil {
		return
	}
	if im.m != nil {
		C.vkDestroyImage(im.m.d.dev, im.img, nil)
		im.m.free()
	}
	*im = image{}
}

// imageView implements driver.ImageView.
type imageView struct {
	i    *image
	view C.VkImageView
}

// NewView creates a new 2D image view.
func (im *image) NewView() (driver.ImageView, error) {
	info := C.VkImageViewCreateInfo{
		sType:    C.VK_STRUCTURE_TYPE_IMAGE_VIEW_CREATE_INFO,
		image:    im.img,
		viewType: C.VK_IMAGE_VIEW_TYPE_2D,
		format:   im.fmt,
		components: C.VkComponentMapping{
			r: C.VK_COMPONENT_SWIZZLE_IDENTITY,
			g: C.VK_COMPONENT_SWIZZLE_IDENTITY,
			b: C.VK_COMPONENT_SWIZZLE_IDENTITY,
			a: C.VK_COMPONENT_SWIZZLE_IDENTITY,
		},
		subresourceRange: im.subres,
	}
	var view C.VkImageView
	err := checkResult(C.vkCreateImageView(im.dev(), &info, nil, &view))
	if err != nil {
		return nil, err
	}
	return &imageView{
		i:    im,
		view: view,
	}, nil
}

// Destroy destroys the image view.
func (v *imageView) Destroy() {
	if v == nil {
		return
	}
	if v.i != nil {
		C.vkDestroyImageView(v.i.dev(), v.view, nil)
	}
	*v = imageView{}
}

// convImageUsage converts a driver.Usage to a
// VkImageUsageFlags.
func convImageUsage(usg driver.Usage) (u C.VkImageUsageFlags) {
	if usg&driver.UCopySrc != 0 {
		u |= C.VK_IMAGE_USAGE_TRANSFER_SRC_BIT
	}
	if usg&driver.UCopyDst != 0 {
		u |= C.VK_IMAGE_USAGE_TRANSFER_DST_BIT
	}
	if usg&driver.UStorage != 0 {
		u |= C.VK_IMAGE_USAGE_STORAGE_BIT
	}
	if usg&driver.URenderTarget != 0 {
		u |= C.VK_IMAGE_USAGE_COLOR_ATTACHMENT_BIT
	}
	return
}

// convPixelFmt converts a driver.PixelFmt to a VkFormat.
func convPixelFmt(pf driver.PixelFmt) C.VkFormat {
	switch pf {
	case driver.RGBA8un:
		return C.VK_FORMAT_R8G8B8A8_UNORM
	case driver.RGBA8sRGB:
		return C.VK_FORMAT_R8G8B8A8_SRGB
	case driver.BGRA8un:
		return C.VK_FORMAT_B8G8R8A8_UNORM
	case driver.BGRA8sRGB:
		return C.VK_FORMAT_B8G8R8A8_SRGB
	case driver.RGBA16f:
		return C.VK_FORMAT_R16G16B16A16_SFLOAT
	case driver.RGBA32f:
		return C.VK_FORMAT_R32G32B32A32_SFLOAT
	}
	return C.VK_FORMAT_UNDEFINED
}

// pixelFmtOf converts a VkFormat to a driver.PixelFmt.
// It returns driver.FInvalid if vf has no counterpart.
func pixelFmtOf(vf C.VkFormat) driver.PixelFmt {
	switch vf {
	case C.VK_FORMAT_R8G8B8A8_UNORM:
		return driver.RGBA8un
	case C.VK_FORMAT_R8G8B8A8_SRGB:
		return driver.RGBA8sRGB
	case C.VK_FORMAT_B8G8R8A8_UNORM:
		return driver.BGRA8un
	case C.VK_FORMAT_B8G8R8A8_SRGB:
		return driver.BGRA8sRGB
	case C.VK_FORMAT_R16G16B16A16_SFLOAT:
		return driver.RGBA16f
	case C.VK_FORMAT_R32G32B32A32_SFLOAT:
		return driver.RGBA32f
	}
	return driver.FInvalid
}
