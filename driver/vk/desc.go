// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

// #include <stdlib.h>
// #include <proc.h>
import "C"

import (
	"errors"
	"unsafe"

	"github.com/gviegas/raytrace/driver"
)

// descHeap implements driver.DescHeap.
type descHeap struct {
	d      *Driver
	layout C.VkDescriptorSetLayout
	pool   C.VkDescriptorPool
	sets   []C.VkDescriptorSet
	ds     []driver.Descriptor

	// Number of descriptors of each type in ds.
	// These values are needed every time that new sets
	// are allocated, so we compute them once.
	naccel int
	nimg   int
	nconst int
	nbuf   int
}

// NewDescHeap creates a new descriptor heap.
func (d *Driver) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) {
	h := &descHeap{d: d, ds: ds}
	p := (*C.VkDescriptorSetLayoutBinding)(C.malloc(C.size_t(len(ds)) * C.sizeof_VkDescriptorSetLayoutBinding))
	defer C.free(unsafe.Pointer(p))
	binds := unsafe.Slice(p, len(ds))

	for i := range ds {
		switch ds[i].Type {
		case driver.DAccel:
			h.naccel += ds[i].Len
		case driver.DImage:
			h.nimg += ds[i].Len
		case driver.DConstant:
			h.nconst += ds[i].Len
		case driver.DBuffer:
			h.nbuf += ds[i].Len
		}
		// Descriptor.Nr is the binding number in Vulkan, which must be
		// unique within a descriptor set.
		for j := i + 1; j < len(ds); j++ {
			if ds[i].Nr == ds[j].Nr {
				return nil, errors.New("descriptor number is not unique")
			}
		}
		binds[i] = C.VkDescriptorSetLayoutBinding{
			binding:         C.uint32_t(ds[i].Nr),
			descriptorType:  convDescType(ds[i].Type),
			descriptorCount: C.uint32_t(ds[i].Len),
			stageFlags:      convStage(ds[i].Stages),
		}
	}

	info := C.VkDescriptorSetLayoutCreateInfo{
		sType:        C.VK_STRUCTURE_TYPE_DESCRIPTOR_SET_LAYOUT_CREATE_INFO,
		bindingCount: C.uint32_t(len(binds)),
		pBindings:    p,
	}
	err := checkResult(C.vkCreateDescriptorSetLayout(d.dev, &info, nil, &h.layout))
	if err != nil {
		return nil, err
	}
	// Pool creation and descriptor set allocation is left to New.
	return h, nil
}

// New creates enough storage for n copies of each descriptor.
func (h *descHeap) New(n int) error {
	switch {
	case n == len(h.sets):
		return nil
	case len(h.sets) == 0:
		// Nothing to destroy/free.
	default:
		C.vkDestroyDescriptorPool(h.d.dev, h.pool, nil)
		C.free(unsafe.Pointer(&h.sets[0]))
		h.sets = nil
		if n == 0 {
			return nil
		}
	}

	const ntype = 4
	p := (*C.VkDescriptorPoolSize)(C.malloc(ntype * C.sizeof_VkDescriptorPoolSize))
	defer C.free(unsafe.Pointer(p))
	sizes := unsafe.Slice(p, ntype)
	dc := [ntype]struct {
		typ C.VkDescriptorType
		cnt C.uint32_t
	}{
		{C.VK_DESCRIPTOR_TYPE_ACCELERATION_STRUCTURE_KHR, C.uint32_t(h.naccel * n)},
		{C.VK_DESCRIPTOR_TYPE_STORAGE_IMAGE, C.uint32_t(h.nimg * n)},
		{C.VK_DESCRIPTOR_TYPE_UNIFORM_BUFFER, C.uint32_t(h.nconst * n)},
		{C.VK_DESCRIPTOR_TYPE_STORAGE_BUFFER, C.uint32_t(h.nbuf * n)},
	}
	nsize := 0
	for i := range dc {
		if dc[i].cnt == 0 {
			continue
		}
		sizes[nsize]._type = dc[i].typ
		sizes[nsize].descriptorCount = dc[i].cnt
		nsize++
	}

	info := C.VkDescriptorPoolCreateInfo{
		sType:         C.VK_STRUCTURE_TYPE_DESCRIPTOR_POOL_CREATE_INFO,
		maxSets:       C.uint32_t(n),
		poolSizeCount: C.uint32_t(nsize),
		pPoolSizes:    p,
	}
	var pool C.VkDescriptorPool
	err := checkResult(C.vkCreateDescriptorPool(h.d.dev, &info, nil, &pool))
	if err != nil {
		return err
	}

	// We need two arrays with the same length, one to receive the
	// descriptor set handles and another to indicate which layout
	// to use for each set (they will use the same layout here).
	// Only the pointer to descriptor sets is kept.
	sp := (*C.VkDescriptorSet)(C.malloc(C.size_t(n) * C.sizeof_VkDescriptorSet))
	lp := (*C.VkDescriptorSetLayout)(C.malloc(C.size_t(n) * C.sizeof_VkDescriptorSetLayout))
	defer C.free(unsafe.Pointer(lp))
	layouts := unsafe.Slice(lp, n)
	for i := range layouts {
		layouts[i] = h.layout
	}

	sinfo := C.VkDescriptorSetAllocateInfo{
		sType:              C.VK_STRUCTURE_TYPE_DESCRIPTOR_SET_ALLOCATE_INFO,
		descriptorPool:     pool,
		descriptorSetCount: C.uint32_t(n),
		pSetLayouts:        lp,
	}
	err = checkResult(C.vkAllocateDescriptorSets(h.d.dev, &sinfo, sp))
	if err != nil {
		C.vkDestroyDescriptorPool(h.d.dev, pool, nil)
		C.free(unsafe.Pointer(sp))
		return err
	}
	h.pool = pool
	h.sets = unsafe.Slice(sp, n)
	return nil
}

// SetBuffer updates the buffer range referred by the given descriptor
// of the given heap copy.
func (h *descHeap) SetBuffer(cpy, nr int, buf driver.Buffer, off, size int64) {
	p := (*C.VkDescriptorBufferInfo)(C.malloc(C.sizeof_VkDescriptorBufferInfo))
	defer C.free(unsafe.Pointer(p))
	*p = C.VkDescriptorBufferInfo{
		buffer: buf.(*buffer).buf,
		offset: C.VkDeviceSize(off),
		_range: C.VkDeviceSize(size),
	}
	write := C.VkWriteDescriptorSet{
		sType:           C.VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET,
		dstSet:          h.sets[cpy],
		dstBinding:      C.uint32_t(nr),
		descriptorCount: 1,
		descriptorType:  h.typeOf(nr),
		pBufferInfo:     p,
	}
	C.vkUpdateDescriptorSets(h.d.dev, 1, &write, 0, nil)
}

// SetImage updates the image view referred by the given descriptor
// of the given heap copy.
// The image is expected to be in the general layout.
func (h *descHeap) SetImage(cpy, nr int, iv driver.ImageView) {
	p := (*C.VkDescriptorImageInfo)(C.malloc(C.sizeof_VkDescriptorImageInfo))
	defer C.free(unsafe.Pointer(p))
	*p = C.VkDescriptorImageInfo{
		imageView:   iv.(*imageView).view,
		imageLayout: C.VK_IMAGE_LAYOUT_GENERAL,
	}
	write := C.VkWriteDescriptorSet{
		sType:           C.VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET,
		dstSet:          h.sets[cpy],
		dstBinding:      C.uint32_t(nr),
		descriptorCount: 1,
		descriptorType:  h.typeOf(nr),
		pImageInfo:      p,
	}
	C.vkUpdateDescriptorSets(h.d.dev, 1, &write, 0, nil)
}

// SetAccel updates the acceleration structure referred by the given
// descriptor of the given heap copy.
func (h *descHeap) SetAccel(cpy, nr int, acc driver.Accel) {
	pacc := (*C.VkAccelerationStructureKHR)(C.malloc(C.size_t(unsafe.Sizeof(acc.(*accel).accel))))
	defer C.free(unsafe.Pointer(pacc))
	*pacc = acc.(*accel).accel
	p := (*C.VkWriteDescriptorSetAccelerationStructureKHR)(C.malloc(C.sizeof_VkWriteDescriptorSetAccelerationStructureKHR))
	defer C.free(unsafe.Pointer(p))
	*p = C.VkWriteDescriptorSetAccelerationStructureKHR{
		sType:                      C.VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET_ACCELERATION_STRUCTURE_KHR,
		accelerationStructureCount: 1,
		pAccelerationStructures:    pacc,
	}
	write := C.VkWriteDescriptorSet{
		sType:           C.VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET,
		pNext:           unsafe.Pointer(p),
		dstSet:          h.sets[cpy],
		dstBinding:      C.uint32_t(nr),
		descriptorCount: 1,
		descriptorType:  C.VK_DESCRIPTOR_TYPE_ACCELERATION_STRUCTURE_KHR,
	}
	C.vkUpdateDescriptorSets(h.d.dev, 1, &write, 0, nil)
}

// Len returns the number of heap copies created by New.
func (h *descHeap) Len() int { return len(h.sets) }

// Destroy destroys the descriptor heap.
func (h *descHeap) Destroy() {
	if h == nil {
		return
	}
	if h.d != nil {
		C.vkDestroyDescriptorSetLayout(h.d.dev, h.layout, nil)
		// Note that h.pool is never cleared by New, just replaced.
		if len(h.sets) != 0 {
			C.vkDestroyDescriptorPool(h.d.dev, h.pool, nil)
			C.free(unsafe.Pointer(&h.sets[0]))
		}
	}
	*h = descHeap{}
}

// typeOf returns the VkDescriptorType of the descriptor in h
// identified by the binding descNr.
func (h *descHeap) typeOf(descNr int) C.VkDescriptorType {
	for i := range h.ds {
		if h.ds[i].Nr == descNr {
			return convDescType(h.ds[i].Type)
		}
	}
	panic("no such descriptor")
}

// descTable implements driver.DescTable.
type descTable struct {
	d      *Driver
	h      []*descHeap
	layout C.VkPipelineLayout
}

// NewDescTable creates a new descriptor table.
func (d *Driver) NewDescTable(dh []driver.DescHeap) (driver.DescTable, error) {
	h := make([]*descHeap, len(dh))
	for i := range h {
		h[i] = dh[i].(*descHeap)
	}
	var p *C.VkDescriptorSetLayout
	if len(h) > 0 {
		p = (*C.VkDescriptorSetLayout)(C.malloc(C.size_t(len(h)) * C.sizeof_VkDescriptorSetLayout))
		defer C.free(unsafe.Pointer(p))
		sl := unsafe.Slice(p, len(h))
		for i := range h {
			sl[i] = h[i].layout
		}
	}
	info := C.VkPipelineLayoutCreateInfo{
		sType:          C.VK_STRUCTURE_TYPE_PIPELINE_LAYOUT_CREATE_INFO,
		setLayoutCount: C.uint32_t(len(h)),
		pSetLayouts:    p,
	}
	var layout C.VkPipelineLayout
	err := checkResult(C.vkCreatePipelineLayout(d.dev, &info, nil, &layout))
	if err != nil {
		return nil, err
	}
	return &descTable{
		d:      d,
		h:      h,
		layout: layout,
	}, nil
}

// Heap returns the i-th heap of the table.
func (t *descTable) Heap(i int) driver.DescHeap { return t.h[i] }

// Destroy destroys the descriptor table.
// It does not destroy the heaps.
func (t *descTable) Destroy() {
	if t == nil {
		return
	}
	if t.d != nil {
		C.vkDestroyPipelineLayout(t.d.dev, t.layout, nil)
	}
	*t = descTable{}
}

// convDescType converts a driver.DescType to a VkDescriptorType.
func convDescType(typ driver.DescType) C.VkDescriptorType {
	switch typ {
	case driver.DAccel:
		return C.VK_DESCRIPTOR_TYPE_ACCELERATION_STRUCTURE_KHR
	case driver.DImage:
		return C.VK_DESCRIPTOR_TYPE_STORAGE_IMAGE
	case driver.DConstant:
		return C.VK_DESCRIPTOR_TYPE_UNIFORM_BUFFER
	case driver.DBuffer:
		return C.VK_DESCRIPTOR_TYPE_STORAGE_BUFFER
	}
	panic("undefined descriptor type")
}

// convStage converts a driver.Stage to a VkShaderStageFlags.
func convStage(stg driver.Stage) (flags C.VkShaderStageFlags) {
	if stg&driver.SRaygen != 0 {
		flags |= C.VK_SHADER_STAGE_RAYGEN_BIT_KHR
	}
	if stg&driver.SMiss != 0 {
		flags |= C.VK_SHADER_STAGE_MISS_BIT_KHR
	}
	if stg&driver.SClosestHit != 0 {
		flags |= C.VK_SHADER_STAGE_CLOSEST_HIT_BIT_KHR
	}
	if stg&driver.SAnyHit != 0 {
		flags |= C.VK_SHADER_STAGE_ANY_HIT_BIT_KHR
	}
	if stg&driver.SIntersection != 0 {
		flags |= C.VK_SHADER_STAGE_INTERSECTION_BIT_KHR
	}
	if stg&driver.SCallable != 0 {
		flags |= C.VK_SHADER_STAGE_CALLABLE_BIT_KHR
	}
	return
}
