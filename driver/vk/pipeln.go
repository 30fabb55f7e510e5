// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

// #include <stdlib.h>
// #include <proc.h>
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/gviegas/raytrace/driver"
)

// pipeline implements driver.Pipeline.
type pipeline struct {
	d       *Driver
	pl      C.VkPipeline
	ngroups int
}

// NewRTPipeline creates a new ray tracing pipeline.
func (d *Driver) NewRTPipeline(state *driver.RTState) (driver.Pipeline, error) {
	if state.MaxRecursion < 1 || state.MaxRecursion > d.lim.MaxRayRecursion {
		return nil, fmt.Errorf("vk: ray recursion depth %d not in [1, %d]", state.MaxRecursion, d.lim.MaxRayRecursion)
	}
	if len(state.Stages) == 0 || len(state.Groups) == 0 {
		return nil, fmt.Errorf("vk: ray tracing pipeline has no stages or groups")
	}
	p := &pipeline{d: d, ngroups: len(state.Groups)}
	info := C.VkRayTracingPipelineCreateInfoKHR{
		sType:                        C.VK_STRUCTURE_TYPE_RAY_TRACING_PIPELINE_CREATE_INFO_KHR,
		maxPipelineRayRecursionDepth: C.uint32_t(state.MaxRecursion),
		layout:                       state.Desc.(*descTable).layout,
		basePipelineIndex:            -1,
	}
	free := [...]func(){
		setRTStages(state, &info),
		setRTGroups(state, &info),
	}
	var deferred C.VkDeferredOperationKHR
	var cache C.VkPipelineCache
	err := checkResult(C.vkCreateRayTracingPipelinesKHR(d.dev, deferred, cache, 1, &info, nil, &p.pl))
	for _, f := range free {
		f()
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// setRTStages sets the shader stages for ray tracing pipeline creation.
func setRTStages(rs *driver.RTState, info *C.VkRayTracingPipelineCreateInfoKHR) (free func()) {
	nstg := len(rs.Stages)
	pstg := (*C.VkPipelineShaderStageCreateInfo)(C.malloc(C.size_t(nstg) * C.sizeof_VkPipelineShaderStageCreateInfo))
	sstg := unsafe.Slice(pstg, nstg)
	for i, s := range rs.Stages {
		sstg[i] = C.VkPipelineShaderStageCreateInfo{
			sType:  C.VK_STRUCTURE_TYPE_PIPELINE_SHADER_STAGE_CREATE_INFO,
			stage:  C.VkShaderStageFlagBits(convStage(s.Stage)),
			module: s.Func.Code.(*shaderCode).mod,
			pName:  C.CString(s.Func.Name),
		}
	}
	info.stageCount = C.uint32_t(nstg)
	info.pStages = pstg
	return func() {
		for i := range sstg {
			C.free(unsafe.Pointer(sstg[i].pName))
		}
		C.free(unsafe.Pointer(pstg))
	}
}

// setRTGroups sets the shader groups for ray tracing pipeline creation.
func setRTGroups(rs *driver.RTState, info *C.VkRayTracingPipelineCreateInfoKHR) (free func()) {
	ngrp := len(rs.Groups)
	pgrp := (*C.VkRayTracingShaderGroupCreateInfoKHR)(C.malloc(C.size_t(ngrp) * C.sizeof_VkRayTracingShaderGroupCreateInfoKHR))
	sgrp := unsafe.Slice(pgrp, ngrp)
	for i, g := range rs.Groups {
		sgrp[i] = C.VkRayTracingShaderGroupCreateInfoKHR{
			sType:              C.VK_STRUCTURE_TYPE_RAY_TRACING_SHADER_GROUP_CREATE_INFO_KHR,
			generalShader:      convShaderIndex(g.General),
			closestHitShader:   convShaderIndex(g.ClosestHit),
			anyHitShader:       convShaderIndex(g.AnyHit),
			intersectionShader: C.VK_SHADER_UNUSED_KHR,
		}
		switch g.Type {
		case driver.GGeneral:
			sgrp[i]._type = C.VK_RAY_TRACING_SHADER_GROUP_TYPE_GENERAL_KHR
		case driver.GTriangles:
			sgrp[i]._type = C.VK_RAY_TRACING_SHADER_GROUP_TYPE_TRIANGLES_HIT_GROUP_KHR
		}
	}
	info.groupCount = C.uint32_t(ngrp)
	info.pGroups = pgrp
	return func() { C.free(unsafe.Pointer(pgrp)) }
}

// GroupHandles returns the shader group handles of n groups
// starting at first.
func (p *pipeline) GroupHandles(first, n int) ([]byte, error) {
	if first < 0 || n < 1 || first+n > p.ngroups {
		return nil, fmt.Errorf("vk: shader group range [%d, %d) out of bounds", first, first+n)
	}
	size := n * p.d.lim.ShaderGroupHandleSize
	data := C.malloc(C.size_t(size))
	defer C.free(data)
	res := C.vkGetRayTracingShaderGroupHandlesKHR(p.d.dev, p.pl, C.uint32_t(first), C.uint32_t(n), C.size_t(size), data)
	if err := checkResult(res); err != nil {
		return nil, err
	}
	return C.GoBytes(data, C.int(size)), nil
}

// Destroy destroys the pipeline.
func (p *pipeline) Destroy() {
	if p == nil {
		return
	}
	if p.d != nil {
		C.vkDestroyPipeline(p.d.dev, p.pl, nil)
	}
	*p = pipeline{}
}

// convShaderIndex converts a stage index to the value used in
// VkRayTracingShaderGroupCreateInfoKHR.
func convShaderIndex(i int) C.uint32_t {
	if i < 0 {
		return C.VK_SHADER_UNUSED_KHR
	}
	return C.uint32_t(i)
}
