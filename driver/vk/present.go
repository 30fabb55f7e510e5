// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

// #include <stdlib.h>
// #include <proc.h>
import "C"

import (
	"sync"
	"unsafe"

	"github.com/gviegas/raytrace/driver"
)

// swapchain implements driver.Swapchain.
type swapchain struct {
	d      *Driver
	sc     C.VkSwapchainKHR
	pf     driver.PixelFmt
	extent C.VkExtent2D
	imgs   []driver.Image
	nimg   int
	mu     sync.Mutex

	// presInfo contains C-allocated memory used during a call
	// to Present. The pWaitSemaphores, pSwapchains and
	// pImageIndices fields, along with the info structure
	// itself, all refer to C memory. They can hold a single
	// element each.
	presInfo *C.VkPresentInfoKHR

	// The swapchain is marked as 'broken' when either
	// suboptimal or out of date errors occur.
	// It is expected that Recreate or Destroy will be
	// called eventually.
	broken bool
}

// Surface formats in order of preference.
// The first one is the format that the blit targets.
var prefFmts = [...]struct {
	pf  driver.PixelFmt
	fmt C.VkFormat
}{
	{driver.BGRA8un, C.VK_FORMAT_B8G8R8A8_UNORM},
	{driver.RGBA8un, C.VK_FORMAT_R8G8B8A8_UNORM},
	{driver.BGRA8sRGB, C.VK_FORMAT_B8G8R8A8_SRGB},
	{driver.RGBA8sRGB, C.VK_FORMAT_R8G8B8A8_SRGB},
}

// NewSwapchain creates a new swapchain for the surface given
// to Open.
func (d *Driver) NewSwapchain(imageCount int) (driver.Swapchain, error) {
	if !d.exts[extSurface] || !d.exts[extSwapchain] {
		return nil, driver.ErrCannotPresent
	}
	if d.sc != nil {
		panic("only one swapchain can exist at a time")
	}
	s := &swapchain{
		d:    d,
		nimg: imageCount,
	}
	if err := s.initSwapchain(); err != nil {
		return nil, err
	}
	if err := s.newImages(); err != nil {
		C.vkDestroySwapchainKHR(d.dev, s.sc, nil)
		return nil, err
	}
	s.presInfo = (*C.VkPresentInfoKHR)(C.malloc(C.sizeof_VkPresentInfoKHR))
	*s.presInfo = C.VkPresentInfoKHR{
		sType:              C.VK_STRUCTURE_TYPE_PRESENT_INFO_KHR,
		waitSemaphoreCount: 1,
		pWaitSemaphores:    (*C.VkSemaphore)(C.malloc(C.sizeof_VkSemaphore)),
		swapchainCount:     1,
		pSwapchains:        (*C.VkSwapchainKHR)(C.malloc(C.sizeof_VkSwapchainKHR)),
		pImageIndices:      (*C.uint32_t)(C.malloc(C.sizeof_uint32_t)),
	}
	d.sc = s
	logger.Infof("swapchain created: %d images, %dx%d, %v", len(s.imgs), s.extent.width, s.extent.height, s.pf)
	return s, nil
}

// initSwapchain creates a new swapchain from s.d.sf.
// If s.sc is valid, it is passed as the old swapchain and
// then destroyed.
// It sets the sc, pf and extent fields of s.
func (s *swapchain) initSwapchain() error {
	pdev, sf := s.d.pdev, s.d.sf
	var capab C.VkSurfaceCapabilitiesKHR
	res := C.vkGetPhysicalDeviceSurfaceCapabilitiesKHR(pdev, sf, &capab)
	if err := checkResult(res); err != nil {
		return err
	}

	// Number of backbuffers.
	nimg := C.uint32_t(s.nimg)
	if capab.minImageCount > nimg {
		nimg = capab.minImageCount
	} else if capab.maxImageCount != 0 && capab.maxImageCount < nimg {
		nimg = capab.maxImageCount
	}

	// Image size.
	var extent C.VkExtent2D
	if capab.maxImageExtent == extent {
		return driver.ErrZeroExtent
	}
	if capab.currentExtent.width == ^C.uint32_t(0) {
		w, h := s.d.win.GetFramebufferSize()
		extent.width = clampExtent(w, capab.minImageExtent.width, capab.maxImageExtent.width)
		extent.height = clampExtent(h, capab.minImageExtent.height, capab.maxImageExtent.height)
	} else {
		extent = capab.currentExtent
	}
	if extent.width == 0 || extent.height == 0 {
		return driver.ErrZeroExtent
	}

	// Pre-transform.
	xform := capab.currentTransform
	if capab.supportedTransforms&C.VK_SURFACE_TRANSFORM_IDENTITY_BIT_KHR != 0 {
		xform = C.VK_SURFACE_TRANSFORM_IDENTITY_BIT_KHR
	}

	// Composite alpha.
	calpha := C.VkCompositeAlphaFlagBitsKHR(C.VK_COMPOSITE_ALPHA_OPAQUE_BIT_KHR)
	if C.VkFlags(calpha)&capab.supportedCompositeAlpha == 0 {
		calpha = 1
		for i := 0; i < 32; i++ {
			if C.VkFlags(calpha)&capab.supportedCompositeAlpha != 0 {
				break
			}
			calpha <<= 1
		}
	}

	// Image usage.
	// Images are written by blits only.
	usage := C.VkFlags(C.VK_IMAGE_USAGE_COLOR_ATTACHMENT_BIT | C.VK_IMAGE_USAGE_TRANSFER_DST_BIT)
	if capab.supportedUsageFlags&usage != usage {
		return driver.ErrCannotPresent
	}

	// Image format and color space.
	var nfmt C.uint32_t
	res = C.vkGetPhysicalDeviceSurfaceFormatsKHR(pdev, sf, &nfmt, nil)
	if err := checkResult(res); err != nil {
		return err
	}
	if nfmt == 0 {
		return driver.ErrCannotPresent
	}
	pfmt := (*C.VkSurfaceFormatKHR)(C.malloc(C.size_t(nfmt) * C.sizeof_VkSurfaceFormatKHR))
	defer C.free(unsafe.Pointer(pfmt))
	res = C.vkGetPhysicalDeviceSurfaceFormatsKHR(pdev, sf, &nfmt, pfmt)
	if err := checkResult(res); err != nil {
		return err
	}
	fmts := unsafe.Slice(pfmt, nfmt)
	ifmt := -1
fmtLoop:
	for i := range prefFmts {
		for j := range fmts {
			if prefFmts[i].fmt == fmts[j].format && fmts[j].colorSpace == C.VK_COLOR_SPACE_SRGB_NONLINEAR_KHR {
				s.pf = prefFmts[i].pf
				ifmt = j
				break fmtLoop
			}
		}
	}
	if ifmt == -1 {
		if len(fmts) == 1 && fmts[0].format == C.VK_FORMAT_UNDEFINED {
			// XXX: This is non-conformant behavior - advertising
			// undefined format is disallowed.
			fmts[0].format = prefFmts[0].fmt
			fmts[0].colorSpace = C.VK_COLOR_SPACE_SRGB_NONLINEAR_KHR
			s.pf = prefFmts[0].pf
			ifmt = 0
		} else {
			return driver.ErrCannotPresent
		}
	}
	var fprop C.VkFormatProperties
	C.vkGetPhysicalDeviceFormatProperties(pdev, fmts[ifmt].format, &fprop)
	if fprop.optimalTilingFeatures&C.VK_FORMAT_FEATURE_BLIT_DST_BIT == 0 {
		return driver.ErrCannotPresent
	}

	// Present mode.
	// FIFO is always supported.
	mode := C.VkPresentModeKHR(C.VK_PRESENT_MODE_FIFO_KHR)

	old := s.sc
	info := C.VkSwapchainCreateInfoKHR{
		sType:            C.VK_STRUCTURE_TYPE_SWAPCHAIN_CREATE_INFO_KHR,
		surface:          sf,
		minImageCount:    nimg,
		imageFormat:      fmts[ifmt].format,
		imageColorSpace:  fmts[ifmt].colorSpace,
		imageExtent:      extent,
		imageArrayLayers: 1,
		imageUsage:       usage,
		imageSharingMode: C.VK_SHARING_MODE_EXCLUSIVE,
		preTransform:     xform,
		compositeAlpha:   calpha,
		presentMode:      mode,
		clipped:          C.VK_TRUE,
		oldSwapchain:     old,
	}
	var sc C.VkSwapchainKHR
	res = C.vkCreateSwapchainKHR(s.d.dev, &info, nil, &sc)
	var null C.VkSwapchainKHR
	if old != null {
		C.vkDestroySwapchainKHR(s.d.dev, old, nil)
		s.sc = null
	}
	if err := checkResult(res); err != nil {
		return err
	}
	s.sc = sc
	s.extent = extent
	return nil
}

// newImages fetches the images of s.sc.
// It sets the imgs field of s.
func (s *swapchain) newImages() error {
	var nimg C.uint32_t
	res := C.vkGetSwapchainImagesKHR(s.d.dev, s.sc, &nimg, nil)
	if err := checkResult(res); err != nil {
		return err
	}
	p := (*C.VkImage)(C.malloc(C.size_t(nimg) * C.sizeof_VkImage))
	defer C.free(unsafe.Pointer(p))
	res = C.vkGetSwapchainImagesKHR(s.d.dev, s.sc, &nimg, p)
	if err := checkResult(res); err != nil {
		return err
	}
	s.imgs = make([]driver.Image, nimg)
	for i, img := range unsafe.Slice(p, nimg) {
		s.imgs[i] = &image{
			s:    s,
			img:  img,
			pf:   s.pf,
			fmt:  convPixelFmt(s.pf),
			size: driver.Dim3D{Width: int(s.extent.width), Height: int(s.extent.height), Depth: 1},
			subres: C.VkImageSubresourceRange{
				aspectMask: C.VK_IMAGE_ASPECT_COLOR_BIT,
				levelCount: 1,
				layerCount: 1,
			},
		}
	}
	return nil
}

// Images returns the list of images that comprises
// the swapchain.
func (s *swapchain) Images() []driver.Image {
	var imgs []driver.Image
	return append(imgs, s.imgs...)
}

// Next returns the index of the next writable image.
func (s *swapchain) Next(sem driver.Semaphore) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken {
		return -1, driver.ErrSwapchain
	}
	var idx C.uint32_t
	var null C.VkFence
	res := C.vkAcquireNextImageKHR(s.d.dev, s.sc, C.UINT64_MAX, sem.(*semaphore).sem, null, &idx)
	switch res {
	case C.VK_SUCCESS:
		return int(idx), nil
	case C.VK_SUBOPTIMAL_KHR:
		// The semaphore will be signaled, so the image
		// must be used. Recreation happens on Present.
		s.broken = true
		return int(idx), nil
	case C.VK_ERROR_OUT_OF_DATE_KHR:
		s.broken = true
		return -1, driver.ErrSwapchain
	default:
		return -1, checkResult(res)
	}
}

// Present presents the image identified by index.
func (s *swapchain) Present(index int, wait driver.Semaphore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.presInfo.pWaitSemaphores = wait.(*semaphore).sem
	*s.presInfo.pSwapchains = s.sc
	*s.presInfo.pImageIndices = C.uint32_t(index)
	s.d.qmu.Lock()
	res := C.vkQueuePresentKHR(s.d.que, s.presInfo)
	s.d.qmu.Unlock()
	switch res {
	case C.VK_SUCCESS:
		if s.broken {
			return driver.ErrSwapchain
		}
		return nil
	case C.VK_SUBOPTIMAL_KHR, C.VK_ERROR_OUT_OF_DATE_KHR:
		s.broken = true
		return driver.ErrSwapchain
	default:
		s.broken = true
		return &driver.PresentError{Err: checkResult(res)}
	}
}

// Recreate recreates the swapchain.
func (s *swapchain) Recreate() error {
	if err := s.d.WaitIdle(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initSwapchain(); err != nil {
		return err
	}
	if err := s.newImages(); err != nil {
		return err
	}
	s.broken = false
	logger.Infof("swapchain recreated: %dx%d", s.extent.width, s.extent.height)
	return nil
}

// Format returns the images' driver.PixelFmt.
func (s *swapchain) Format() driver.PixelFmt { return s.pf }

// Size returns the extent of the images.
func (s *swapchain) Size() driver.Dim3D {
	return driver.Dim3D{Width: int(s.extent.width), Height: int(s.extent.height), Depth: 1}
}

// Destroy destroys the swapchain.
// The surface is owned by the Driver and is not destroyed.
func (s *swapchain) Destroy() {
	if s == nil {
		return
	}
	if s.d != nil {
		s.d.WaitIdle()
		if s.presInfo != nil {
			C.free(unsafe.Pointer(s.presInfo.pWaitSemaphores))
			C.free(unsafe.Pointer(s.presInfo.pSwapchains))
			C.free(unsafe.Pointer(s.presInfo.pImageIndices))
			C.free(unsafe.Pointer(s.presInfo))
		}
		var null C.VkSwapchainKHR
		if s.sc != null {
			C.vkDestroySwapchainKHR(s.d.dev, s.sc, nil)
		}
		s.d.sc = nil
	}
	*s = swapchain{}
}

// clampExtent clamps a framebuffer dimension to the range
// supported by the surface.
func clampExtent(n int, min, max C.uint32_t) C.uint32_t {
	switch {
	case n < int(min):
		return min
	case n > int(max):
		return max
	}
	return C.uint32_t(n)
}
