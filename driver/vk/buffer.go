// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

// #include <proc.h>
import "C"

import (
	"github.com/gviegas/raytrace/driver"
)

// buffer implements driver.Buffer.
type buffer struct {
	m    *memory
	buf  C.VkBuffer
	addr uint64
}

// NewBuffer creates a new buffer.
// Allocation failures are reported as *driver.AllocError.
func (d *Driver) NewBuffer(size int64, class driver.MemClass, usg driver.Usage) (driver.Buffer, error) {
	b, err := d.newBuffer(size, class, usg)
	if err != nil {
		return nil, &driver.AllocError{Size: size, Usage: usg, Err: err}
	}
	return b, nil
}

func (d *Driver) newBuffer(size int64, class driver.MemClass, usg driver.Usage) (*buffer, error) {
	info := C.VkBufferCreateInfo{
		sType:       C.VK_STRUCTURE_TYPE_BUFFER_CREATE_INFO,
		size:        C.VkDeviceSize(size),
		usage:       convBufferUsage(usg),
		sharingMode: C.VK_SHARING_MODE_EXCLUSIVE,
	}
	var buf C.VkBuffer
	err := checkResult(C.vkCreateBuffer(d.dev, &info, nil, &buf))
	if err != nil {
		return nil, err
	}

	var req C.VkMemoryRequirements
	C.vkGetBufferMemoryRequirements(d.dev, buf, &req)
	addr := usg&driver.UDeviceAddr != 0
	m, err := d.newMemory(req, class, addr)
	if err != nil {
		C.vkDestroyBuffer(d.dev, buf, nil)
		return nil, err
	}
	err = checkResult(C.vkBindBufferMemory(d.dev, buf, m.mem, 0))
	if err != nil {
		m.free()
		C.vkDestroyBuffer(d.dev, buf, nil)
		return nil, err
	}
	m.bound = true
	if m.vis {
		// Keep the memory mapped for the lifetime of the buffer.
		if err = m.mmap(); err != nil {
			m.free()
			C.vkDestroyBuffer(d.dev, buf, nil)
			return nil, err
		}
	}

	b := &buffer{
		m:   m,
		buf: buf,
	}
	if addr {
		ainfo := C.VkBufferDeviceAddressInfo{
			sType:  C.VK_STRUCTURE_TYPE_BUFFER_DEVICE_ADDRESS_INFO,
			buffer: buf,
		}
		b.addr = uint64(C.vkGetBufferDeviceAddress(d.dev, &ainfo))
	}
	return b, nil
}

// Visible returns whether the buffer is host visible.
func (b *buffer) Visible() bool { return b.m.vis }

// Bytes returns a slice of length b.Cap() referring to the underlying data.
func (b *buffer) Bytes() []byte { return b.m.p }

// Cap returns the capacity of the buffer in bytes.
func (b *buffer) Cap() int64 { return b.m.size }

// Addr returns the device address of the buffer.
func (b *buffer) Addr() uint64 { return b.addr }

// Destroy destroys the buffer.
func (b *buffer) Destroy() {
	if b == nil {
		return
	}
	if b.m != nil {
		C.vkDestroyBuffer(b.m.d.dev, b.buf, nil)
		b.m.free()
	}
	*b = buffer{}
}

// convBufferUsage converts a driver.Usage to a
// VkBufferUsageFlags.
func convBufferUsage(usg driver.Usage) (u C.VkBufferUsageFlags) {
	if usg&driver.UCopySrc != 0 {
		u |= C.VK_BUFFER_USAGE_TRANSFER_SRC_BIT
	}
	if usg&driver.UCopyDst != 0 {
		u |= C.VK_BUFFER_USAGE_TRANSFER_DST_BIT
	}
	if usg&driver.UStorage != 0 {
		u |= C.VK_BUFFER_USAGE_STORAGE_BUFFER_BIT
	}
	if usg&driver.UConstant != 0 {
		u |= C.VK_BUFFER_USAGE_UNIFORM_BUFFER_BIT
	}
	if usg&driver.UBuildInput != 0 {
		u |= C.VK_BUFFER_USAGE_ACCELERATION_STRUCTURE_BUILD_INPUT_READ_ONLY_BIT_KHR
	}
	if usg&driver.UShaderTable != 0 {
		u |= C.VK_BUFFER_USAGE_SHADER_BINDING_TABLE_BIT_KHR
	}
	if usg&driver.UAccelStorage != 0 {
		u |= C.VK_BUFFER_USAGE_ACCELERATION_STRUCTURE_STORAGE_BIT_KHR
	}
	if usg&driver.UDeviceAddr != 0 {
		u |= C.VK_BUFFER_USAGE_SHADER_DEVICE_ADDRESS_BIT
	}
	if u == 0 {
		// Vulkan forbids an empty usage.
		u = C.VK_BUFFER_USAGE_TRANSFER_SRC_BIT
	}
	return
}
