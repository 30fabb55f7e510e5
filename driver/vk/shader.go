// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

// #include <stdlib.h>
// #include <proc.h>
import "C"

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/gviegas/raytrace/driver"
)

// shaderCode implements driver.ShaderCode.
type shaderCode struct {
	d   *Driver
	mod C.VkShaderModule
}

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// NewShaderCode creates a new shader code.
// data must be a SPIR-V module in little-endian byte order.
func (d *Driver) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	n := len(data)
	if n < 20 || n&3 != 0 {
		return nil, fmt.Errorf("vk: invalid SPIR-V size (%d bytes)", n)
	}
	if m := binary.LittleEndian.Uint32(data); m != spirvMagic {
		return nil, fmt.Errorf("vk: invalid SPIR-V magic number %#08x", m)
	}
	// Code must be 4-byte aligned.
	p := C.malloc(C.size_t(n))
	defer C.free(p)
	copy(unsafe.Slice((*byte)(p), n), data)
	info := C.VkShaderModuleCreateInfo{
		sType:    C.VK_STRUCTURE_TYPE_SHADER_MODULE_CREATE_INFO,
		codeSize: C.size_t(n),
		pCode:    (*C.uint32_t)(p),
	}
	var mod C.VkShaderModule
	err := checkResult(C.vkCreateShaderModule(d.dev, &info, nil, &mod))
	if err != nil {
		return nil, err
	}
	logger.Debugf("shader module created (%d words)", n/4)
	return &shaderCode{
		d:   d,
		mod: mod,
	}, nil
}

// Destroy destroys the shader code.
func (c *shaderCode) Destroy() {
	if c == nil {
		return
	}
	if c.d != nil {
		C.vkDestroyShaderModule(c.d.dev, c.mod, nil)
	}
	*c = shaderCode{}
}
