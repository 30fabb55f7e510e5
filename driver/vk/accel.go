// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package vk

// #include <stdlib.h>
// #include <proc.h>
import "C"

import (
	"errors"
	"unsafe"

	"github.com/gviegas/raytrace/driver"
)

// accel implements driver.Accel.
type accel struct {
	d     *Driver
	accel C.VkAccelerationStructureKHR
	typ   driver.AccelType
	addr  uint64
}

// NewAccel creates a new acceleration structure backed by buf.
func (d *Driver) NewAccel(typ driver.AccelType, buf driver.Buffer, off, size int64) (driver.Accel, error) {
	b := buf.(*buffer)
	if off&255 != 0 {
		return nil, errors.New("vk: misaligned acceleration structure offset")
	}
	if off < 0 || size <= 0 || off+size > b.Cap() {
		return nil, errors.New("vk: acceleration structure range out of bounds")
	}
	info := C.VkAccelerationStructureCreateInfoKHR{
		sType:  C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_CREATE_INFO_KHR,
		buffer: b.buf,
		offset: C.VkDeviceSize(off),
		size:   C.VkDeviceSize(size),
		_type:  convAccelType(typ),
	}
	var acc C.VkAccelerationStructureKHR
	if err := checkResult(C.vkCreateAccelerationStructureKHR(d.dev, &info, nil, &acc)); err != nil {
		return nil, err
	}
	ainfo := C.VkAccelerationStructureDeviceAddressInfoKHR{
		sType:                 C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_DEVICE_ADDRESS_INFO_KHR,
		accelerationStructure: acc,
	}
	return &accel{
		d:     d,
		accel: acc,
		typ:   typ,
		addr:  uint64(C.vkGetAccelerationStructureDeviceAddressKHR(d.dev, &ainfo)),
	}, nil
}

// Type returns the type of the acceleration structure.
func (a *accel) Type() driver.AccelType { return a.typ }

// Addr returns the device address of the acceleration structure.
func (a *accel) Addr() uint64 { return a.addr }

// Destroy destroys the acceleration structure.
// It does not destroy the backing buffer.
func (a *accel) Destroy() {
	if a == nil {
		return
	}
	if a.d != nil {
		C.vkDestroyAccelerationStructureKHR(a.d.dev, a.accel, nil)
	}
	*a = accel{}
}

// AccelSizes computes the sizes needed to build an acceleration
// structure from geom.
func (d *Driver) AccelSizes(geom *driver.AccelGeom) (driver.AccelSizes, error) {
	bi := newBuildInfo(geom)
	defer bi.free()
	sizes := C.VkAccelerationStructureBuildSizesInfoKHR{
		sType: C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_SIZES_INFO_KHR,
	}
	C.vkGetAccelerationStructureBuildSizesKHR(d.dev, C.VK_ACCELERATION_STRUCTURE_BUILD_TYPE_DEVICE_KHR, bi.info, bi.prims, &sizes)
	if sizes.accelerationStructureSize == 0 {
		return driver.AccelSizes{}, errors.New("vk: empty acceleration structure geometry")
	}
	return driver.AccelSizes{
		Storage: int64(sizes.accelerationStructureSize),
		Scratch: int64(sizes.buildScratchSize),
	}, nil
}

// buildInfo holds the C memory that describes a build.
type buildInfo struct {
	info   *C.VkAccelerationStructureBuildGeometryInfoKHR
	geoms  *C.VkAccelerationStructureGeometryKHR
	ranges *C.VkAccelerationStructureBuildRangeInfoKHR
	prims  *C.uint32_t
}

// newBuildInfo creates a buildInfo from geom.
// The build mode, destination and scratch address are left
// unset. Call free to deallocate it.
func newBuildInfo(geom *driver.AccelGeom) *buildInfo {
	n := 1
	if geom.Type == driver.ABottom {
		n = len(geom.Triangles)
	}
	bi := &buildInfo{
		info:   (*C.VkAccelerationStructureBuildGeometryInfoKHR)(C.calloc(1, C.sizeof_VkAccelerationStructureBuildGeometryInfoKHR)),
		geoms:  (*C.VkAccelerationStructureGeometryKHR)(C.calloc(C.size_t(n), C.sizeof_VkAccelerationStructureGeometryKHR)),
		ranges: (*C.VkAccelerationStructureBuildRangeInfoKHR)(C.calloc(C.size_t(n), C.sizeof_VkAccelerationStructureBuildRangeInfoKHR)),
		prims:  (*C.uint32_t)(C.calloc(C.size_t(n), C.sizeof_uint32_t)),
	}
	geoms := unsafe.Slice(bi.geoms, n)
	ranges := unsafe.Slice(bi.ranges, n)
	prims := unsafe.Slice(bi.prims, n)

	switch geom.Type {
	case driver.ABottom:
		for i, t := range geom.Triangles {
			geoms[i].sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_KHR
			geoms[i].geometryType = C.VK_GEOMETRY_TYPE_TRIANGLES_KHR
			if t.Opaque {
				geoms[i].flags = C.VK_GEOMETRY_OPAQUE_BIT_KHR
			}
			tri := (*C.VkAccelerationStructureGeometryTrianglesDataKHR)(unsafe.Pointer(&geoms[i].geometry))
			*tri = C.VkAccelerationStructureGeometryTrianglesDataKHR{
				sType:        C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_TRIANGLES_DATA_KHR,
				vertexFormat: C.VK_FORMAT_R32G32B32_SFLOAT,
				vertexStride: C.VkDeviceSize(t.VertexStride),
				maxVertex:    C.uint32_t(t.MaxVertex),
				indexType:    C.VK_INDEX_TYPE_UINT32,
			}
			*(*C.VkDeviceAddress)(unsafe.Pointer(&tri.vertexData)) = C.VkDeviceAddress(t.VertexAddr)
			*(*C.VkDeviceAddress)(unsafe.Pointer(&tri.indexData)) = C.VkDeviceAddress(t.IndexAddr)
			ranges[i].primitiveCount = C.uint32_t(t.PrimCount)
			prims[i] = C.uint32_t(t.PrimCount)
		}
	case driver.ATop:
		geoms[0].sType = C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_KHR
		geoms[0].geometryType = C.VK_GEOMETRY_TYPE_INSTANCES_KHR
		inst := (*C.VkAccelerationStructureGeometryInstancesDataKHR)(unsafe.Pointer(&geoms[0].geometry))
		*inst = C.VkAccelerationStructureGeometryInstancesDataKHR{
			sType:           C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_GEOMETRY_INSTANCES_DATA_KHR,
			arrayOfPointers: C.VK_FALSE,
		}
		*(*C.VkDeviceAddress)(unsafe.Pointer(&inst.data)) = C.VkDeviceAddress(geom.Instances.Addr)
		ranges[0].primitiveCount = C.uint32_t(geom.Instances.Count)
		prims[0] = C.uint32_t(geom.Instances.Count)
	}

	*bi.info = C.VkAccelerationStructureBuildGeometryInfoKHR{
		sType:         C.VK_STRUCTURE_TYPE_ACCELERATION_STRUCTURE_BUILD_GEOMETRY_INFO_KHR,
		_type:         convAccelType(geom.Type),
		geometryCount: C.uint32_t(n),
		pGeometries:   bi.geoms,
	}
	if geom.FastTrace {
		bi.info.flags = C.VK_BUILD_ACCELERATION_STRUCTURE_PREFER_FAST_TRACE_BIT_KHR
	}
	return bi
}

// free deallocates the C memory of bi.
func (bi *buildInfo) free() {
	C.free(unsafe.Pointer(bi.info))
	C.free(unsafe.Pointer(bi.geoms))
	C.free(unsafe.Pointer(bi.ranges))
	C.free(unsafe.Pointer(bi.prims))
	*bi = buildInfo{}
}

// convAccelType converts a driver.AccelType to a
// VkAccelerationStructureTypeKHR.
func convAccelType(typ driver.AccelType) C.VkAccelerationStructureTypeKHR {
	if typ == driver.ATop {
		return C.VK_ACCELERATION_STRUCTURE_TYPE_TOP_LEVEL_KHR
	}
	return C.VK_ACCELERATION_STRUCTURE_TYPE_BOTTOM_LEVEL_KHR
}
