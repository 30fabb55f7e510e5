// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package vk

// #include <proc.h>
import "C"

import (
	"github.com/gviegas/raytrace/driver"
)

// fence implements driver.Fence.
type fence struct {
	d     *Driver
	fence C.VkFence
}

// NewFence creates a new fence.
func (d *Driver) NewFence(signaled bool) (driver.Fence, error) {
	info := C.VkFenceCreateInfo{
		sType: C.VK_STRUCTURE_TYPE_FENCE_CREATE_INFO,
	}
	if signaled {
		info.flags = C.VK_FENCE_CREATE_SIGNALED_BIT
	}
	var f C.VkFence
	if err := checkResult(C.vkCreateFence(d.dev, &info, nil, &f)); err != nil {
		return nil, err
	}
	return &fence{d: d, fence: f}, nil
}

// Wait blocks until the fence is signaled.
func (f *fence) Wait() error {
	for {
		switch res := C.vkWaitForFences(f.d.dev, 1, &f.fence, C.VK_TRUE, C.UINT64_MAX); res {
		case C.VK_SUCCESS:
			return nil
		case C.VK_TIMEOUT:
			continue
		default:
			return checkResult(res)
		}
	}
}

// Reset sets the fence to the unsignaled state.
func (f *fence) Reset() error {
	return checkResult(C.vkResetFences(f.d.dev, 1, &f.fence))
}

// Destroy destroys the fence.
func (f *fence) Destroy() {
	if f == nil {
		return
	}
	if f.d != nil {
		C.vkDestroyFence(f.d.dev, f.fence, nil)
	}
	*f = fence{}
}

// semaphore implements driver.Semaphore.
type semaphore struct {
	d   *Driver
	sem C.VkSemaphore
}

// NewSemaphore creates a new binary semaphore.
func (d *Driver) NewSemaphore() (driver.Semaphore, error) {
	info := C.VkSemaphoreCreateInfo{
		sType: C.VK_STRUCTURE_TYPE_SEMAPHORE_CREATE_INFO,
	}
	var s C.VkSemaphore
	if err := checkResult(C.vkCreateSemaphore(d.dev, &info, nil, &s)); err != nil {
		return nil, err
	}
	return &semaphore{d: d, sem: s}, nil
}

// Destroy destroys the semaphore.
func (s *semaphore) Destroy() {
	if s == nil {
		return
	}
	if s.d != nil {
		C.vkDestroySemaphore(s.d.dev, s.sem, nil)
	}
	*s = semaphore{}
}
