// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"errors"
	"unsafe"
)

// ErrCannotPresent means that the driver and/or device do not
// support presentation.
var ErrCannotPresent = errors.New("driver: presentation not supported")

// ErrWindow represents an error related to a specific window.
// This error usually indicates that a window misconfiguration
// is preventing correct operation. For instance, a surface
// could not be created for the window.
var ErrWindow = errors.New("driver: window-related error")

// ErrZeroExtent means that the window has zero area (e.g.,
// it is minimized), so no swapchain can be created for it
// at the moment. Creation may succeed once the window is
// restored.
var ErrZeroExtent = errors.New("driver: window has zero area")

// ErrSurfaceLost means that the window's surface is no
// longer usable. It is not recoverable.
var ErrSurfaceLost = errors.New("driver: surface lost")

// ErrSwapchain represents an error related to a specific
// swapchain.
// This error usually indicates that changes to the window or
// compositor made the swapchain out of date. It is
// recoverable: the frame is skipped and the swapchain must
// be recreated.
var ErrSwapchain = errors.New("driver: swapchain-related error")

// Surface is the interface of windows that a driver can
// present to.
// *glfw.Window from github.com/go-gl/glfw satisfies it.
type Surface interface {
	// CreateWindowSurface creates a surface for the given
	// API instance. The returned value points to the
	// API-specific surface handle.
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)

	// GetFramebufferSize returns the size of the window's
	// framebuffer in pixels.
	GetFramebufferSize() (width, height int)
}

// Presenter is the interface that a GPU may implement
// to enable presentation on a display.
type Presenter interface {
	// NewSwapchain creates a new swapchain for the Surface
	// given to Driver.Open.
	// Only one swapchain can exist at a time.
	NewSwapchain(imageCount int) (Swapchain, error)
}

// Swapchain is the interface that defines a n-buffered
// swapchain for presentation.
// To present, one calls Next to obtain the index of an
// image to target, transitions the image to a valid
// layout (e.g., from LUndefined to LCopyDst), records
// commands as needed, transitions the image to the
// LPresent layout, submits these commands and then
// calls Present.
type Swapchain interface {
	Destroyer

	// Images returns the list of images that comprises
	// the swapchain.
	// This value remains unchanged as long as the
	// swapchain's Destroy or Recreate methods are
	// not called.
	// Swapchain images are owned by the swapchain, so
	// their Destroy methods do nothing.
	Images() []Image

	// Next returns the index of the next writable image.
	// sem is signaled when the image is ready for use.
	// If the swapchain is out of date, it returns
	// ErrSwapchain.
	Next(sem Semaphore) (int, error)

	// Present presents the image identified by index
	// after wait is signaled.
	// If the swapchain is out of date or suboptimal, it
	// returns ErrSwapchain. Other failures are reported
	// as *PresentError.
	Present(index int, wait Semaphore) error

	// Recreate recreates the swapchain.
	// It is meant to be called in response to a
	// ErrSwapchain error or a window resize. The GPU must
	// be idle.
	// If the window has zero area, it returns
	// ErrZeroExtent and the swapchain is left unchanged.
	Recreate() error

	// Format returns the image's PixelFmt.
	Format() PixelFmt

	// Size returns the extent of the images.
	Size() Dim3D
}
