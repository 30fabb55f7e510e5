// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

// #include <stdlib.h>
// #include <proc.h>
import "C"

import (
	"unsafe"

	"github.com/gviegas/raytrace/driver"
)

// ext identifies an instance or device extension.
type ext int

const (
	// Instance extensions.
	extSurface ext = iota
	extXCBSurface
	extXlibSurface
	extWaylandSurface
	extWin32Surface
	extMetalSurface

	// Device extensions.
	extSwapchain
	extAccelStruct
	extRTPipeline
	extDeferredOps
	extDeviceAddr
	extSPIRV14
	extFloatControls

	extN
)

var extNames = [extN]string{
	extSurface:        "VK_KHR_surface",
	extXCBSurface:     "VK_KHR_xcb_surface",
	extXlibSurface:    "VK_KHR_xlib_surface",
	extWaylandSurface: "VK_KHR_wayland_surface",
	extWin32Surface:   "VK_KHR_win32_surface",
	extMetalSurface:   "VK_EXT_metal_surface",
	extSwapchain:      "VK_KHR_swapchain",
	extAccelStruct:    "VK_KHR_acceleration_structure",
	extRTPipeline:     "VK_KHR_ray_tracing_pipeline",
	extDeferredOps:    "VK_KHR_deferred_host_operations",
	extDeviceAddr:     "VK_KHR_buffer_device_address",
	extSPIRV14:        "VK_KHR_spirv_1_4",
	extFloatControls:  "VK_KHR_shader_float_controls",
}

// name returns the extension name as advertised by the
// implementation.
func (e ext) name() string { return extNames[e] }

// Extensions that a device must support.
var requiredExts = []ext{extAccelStruct, extRTPipeline, extDeferredOps, extDeviceAddr}

// Extensions that are enabled if the device advertises them.
var optionalExts = []ext{extSPIRV14, extFloatControls}

// Required returns the names of the device extensions that
// a device must advertise to be selected.
// present indicates whether presentation is required.
func Required(present bool) []string {
	s := make([]string, 0, len(requiredExts)+1)
	if present {
		s = append(s, extSwapchain.name())
	}
	for _, e := range requiredExts {
		s = append(s, e.name())
	}
	return s
}

// instanceExts returns a list containing the names of all instance extensions
// advertised by the Vulkan implementation.
func instanceExts() (exts []string, err error) {
	var n C.uint32_t
	if err = checkResult(C.vkEnumerateInstanceExtensionProperties(nil, &n, nil)); err != nil {
		return
	}
	if n == 0 {
		return
	}
	p := (*C.VkExtensionProperties)(C.malloc(C.sizeof_VkExtensionProperties * C.size_t(n)))
	defer C.free(unsafe.Pointer(p))
	if err = checkResult(C.vkEnumerateInstanceExtensionProperties(nil, &n, p)); err != nil {
		return
	}
	props := unsafe.Slice(p, n)
	exts = make([]string, n)
	for i, prop := range props {
		prop.extensionName[len(prop.extensionName)-1] = 0
		exts[i] = C.GoString(&prop.extensionName[0])
	}
	return
}

// deviceExts returns a list containing the names of all device extensions
// advertised by the Vulkan implementation.
func deviceExts(d C.VkPhysicalDevice) (exts []string, err error) {
	if d == nil {
		panic("vk.deviceExts called with nil physical device")
	}
	var n C.uint32_t
	if err = checkResult(C.vkEnumerateDeviceExtensionProperties(d, nil, &n, nil)); err != nil {
		return
	}
	if n == 0 {
		return
	}
	p := (*C.VkExtensionProperties)(C.malloc(C.sizeof_VkExtensionProperties * C.size_t(n)))
	defer C.free(unsafe.Pointer(p))
	if err = checkResult(C.vkEnumerateDeviceExtensionProperties(d, nil, &n, p)); err != nil {
		return
	}
	props := unsafe.Slice(p, n)
	exts = make([]string, n)
	for i, prop := range props {
		prop.extensionName[len(prop.extensionName)-1] = 0
		exts[i] = C.GoString(&prop.extensionName[0])
	}
	return
}

// hasExt returns whether e is in from.
func hasExt(e ext, from []string) bool {
	for _, f := range from {
		if f == e.name() {
			return true
		}
	}
	return false
}

// selectExts creates an array of C strings that matches the contents of exts.
// exts must be a subset of from, otherwise errNoExtension is returned.
// Call the free closure to deallocate the names array and C strings.
func selectExts(exts []ext, from []string) (names **C.char, free func(), err error) {
	free = func() {}
	for _, e := range exts {
		if !hasExt(e, from) {
			err = errNoExtension
			return
		}
	}
	if len(exts) == 0 {
		return
	}
	names = (**C.char)(C.malloc(C.size_t(unsafe.Sizeof(*names)) * C.size_t(len(exts))))
	s := unsafe.Slice(names, len(exts))
	for i, e := range exts {
		s[i] = C.CString(e.name())
	}
	free = func() {
		for _, cs := range s {
			C.free(unsafe.Pointer(cs))
		}
		C.free(unsafe.Pointer(names))
	}
	return
}

// setInstanceExts sets the instance extensions to enable.
// When present is set, the surface extension and every
// advertised platform surface extension are enabled, so that
// the window system can create a surface for whichever
// platform it is using.
func (d *Driver) setInstanceExts(info *C.VkInstanceCreateInfo, present bool) (free func(), err error) {
	free = func() {}
	if !present {
		return
	}
	from, err := instanceExts()
	if err != nil {
		return
	}
	if !hasExt(extSurface, from) {
		return free, driver.ErrCannotPresent
	}
	exts := []ext{extSurface}
	for _, e := range [...]ext{extXCBSurface, extXlibSurface, extWaylandSurface, extWin32Surface, extMetalSurface} {
		if hasExt(e, from) {
			exts = append(exts, e)
		}
	}
	if len(exts) == 1 {
		return free, driver.ErrCannotPresent
	}
	names, free, err := selectExts(exts, from)
	if err != nil {
		return
	}
	for _, e := range exts {
		d.exts[e] = true
	}
	info.enabledExtensionCount = C.uint32_t(len(exts))
	info.ppEnabledExtensionNames = names
	return
}

// setDeviceExts sets the device extensions to enable.
// from must contain the extensions advertised by d.pdev.
func (d *Driver) setDeviceExts(info *C.VkDeviceCreateInfo, from []string) (free func(), err error) {
	exts := append([]ext(nil), requiredExts...)
	if d.exts[extSurface] {
		exts = append(exts, extSwapchain)
	}
	for _, e := range optionalExts {
		if hasExt(e, from) {
			exts = append(exts, e)
		}
	}
	names, free, err := selectExts(exts, from)
	if err != nil {
		return
	}
	for _, e := range exts {
		d.exts[e] = true
	}
	info.enabledExtensionCount = C.uint32_t(len(exts))
	info.ppEnabledExtensionNames = names
	return
}
