// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

// #include <stdlib.h>
// #include <proc.h>
import "C"

import (
	"unsafe"

	"github.com/gviegas/raytrace/driver"
)

// cmdBuffer implements driver.CmdBuffer.
type cmdBuffer struct {
	d     *Driver
	pool  C.VkCommandPool
	cb    C.VkCommandBuffer
	begun bool
}

// NewCmdBuffer creates a new command buffer.
// The command buffer handle is allocated from an exclusive command pool.
func (d *Driver) NewCmdBuffer() (driver.CmdBuffer, error) {
	var pool C.VkCommandPool
	poolInfo := C.VkCommandPoolCreateInfo{
		sType:            C.VK_STRUCTURE_TYPE_COMMAND_POOL_CREATE_INFO,
		flags:            C.VK_COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT,
		queueFamilyIndex: d.qfam,
	}
	err := checkResult(C.vkCreateCommandPool(d.dev, &poolInfo, nil, &pool))
	if err != nil {
		return nil, err
	}
	var cb C.VkCommandBuffer
	cbInfo := C.VkCommandBufferAllocateInfo{
		sType:              C.VK_STRUCTURE_TYPE_COMMAND_BUFFER_ALLOCATE_INFO,
		commandPool:        pool,
		level:              C.VK_COMMAND_BUFFER_LEVEL_PRIMARY,
		commandBufferCount: 1,
	}
	err = checkResult(C.vkAllocateCommandBuffers(d.dev, &cbInfo, &cb))
	if err != nil {
		C.vkDestroyCommandPool(d.dev, pool, nil)
		return nil, err
	}
	return &cmdBuffer{
		d:    d,
		pool: pool,
		cb:   cb,
	}, nil
}

// Begin puts the command buffer in the recording state.
func (cb *cmdBuffer) Begin() error {
	if !cb.begun {
		info := C.VkCommandBufferBeginInfo{
			sType: C.VK_STRUCTURE_TYPE_COMMAND_BUFFER_BEGIN_INFO,
			flags: C.VK_COMMAND_BUFFER_USAGE_ONE_TIME_SUBMIT_BIT,
		}
		err := checkResult(C.vkBeginCommandBuffer(cb.cb, &info))
		if err != nil {
			return err
		}
		cb.begun = true
	}
	return nil
}

// SetPipeline sets the ray tracing pipeline.
func (cb *cmdBuffer) SetPipeline(pl driver.Pipeline) {
	C.vkCmdBindPipeline(cb.cb, C.VK_PIPELINE_BIND_POINT_RAY_TRACING_KHR, pl.(*pipeline).pl)
}

// SetDescTable sets a descriptor table range.
func (cb *cmdBuffer) SetDescTable(table driver.DescTable, start int, heapCopy []int) {
	desc := table.(*descTable)
	bp := C.VkPipelineBindPoint(C.VK_PIPELINE_BIND_POINT_RAY_TRACING_KHR)
	ncpy := len(heapCopy)
	switch {
	case ncpy == 1:
		set := desc.h[start].sets[heapCopy[0]]
		C.vkCmdBindDescriptorSets(cb.cb, bp, desc.layout, C.uint32_t(start), 1, &set, 0, nil)
	case ncpy > 1:
		p := (*C.VkDescriptorSet)(C.malloc(C.size_t(ncpy) * C.sizeof_VkDescriptorSet))
		defer C.free(unsafe.Pointer(p))
		set := unsafe.Slice(p, ncpy)
		for i := range set {
			set[i] = desc.h[start+i].sets[heapCopy[i]]
		}
		C.vkCmdBindDescriptorSets(cb.cb, bp, desc.layout, C.uint32_t(start), C.uint32_t(ncpy), p, 0, nil)
	}
}

// TraceRays dispatches ray generation invocations.
func (cb *cmdBuffer) TraceRays(sbt *driver.ShaderTable, width, height, depth int) {
	rgen := convSBTRegion(sbt.Raygen)
	miss := convSBTRegion(sbt.Miss)
	hit := convSBTRegion(sbt.Hit)
	call := convSBTRegion(sbt.Callable)
	C.vkCmdTraceRaysKHR(cb.cb, &rgen, &miss, &hit, &call, C.uint32_t(width), C.uint32_t(height), C.uint32_t(depth))
}

// BuildAccel records an acceleration structure build.
func (cb *cmdBuffer) BuildAccel(dst driver.Accel, geom *driver.AccelGeom, scratch uint64) {
	acc := dst.(*accel)
	if acc.typ != geom.Type {
		panic("acceleration structure type mismatch")
	}
	bi := newBuildInfo(geom)
	defer bi.free()
	bi.info.mode = C.VK_BUILD_ACCELERATION_STRUCTURE_MODE_BUILD_KHR
	bi.info.dstAccelerationStructure = acc.accel
	*(*C.VkDeviceAddress)(unsafe.Pointer(&bi.info.scratchData)) = C.VkDeviceAddress(scratch)

	pp := (**C.VkAccelerationStructureBuildRangeInfoKHR)(C.malloc(C.size_t(unsafe.Sizeof(bi.ranges))))
	defer C.free(unsafe.Pointer(pp))
	*pp = bi.ranges
	C.vkCmdBuildAccelerationStructuresKHR(cb.cb, 1, bi.info, pp)
}

// Barrier inserts a number of global barriers in the command buffer.
func (cb *cmdBuffer) Barrier(b []driver.Barrier) {
	for i := range b {
		mb := C.VkMemoryBarrier{
			sType:         C.VK_STRUCTURE_TYPE_MEMORY_BARRIER,
			srcAccessMask: convAccess(b[i].AccessBefore),
			dstAccessMask: convAccess(b[i].AccessAfter),
		}
		stg1 := convSync(b[i].SyncBefore, C.VK_PIPELINE_STAGE_TOP_OF_PIPE_BIT)
		stg2 := convSync(b[i].SyncAfter, C.VK_PIPELINE_STAGE_BOTTOM_OF_PIPE_BIT)
		C.vkCmdPipelineBarrier(cb.cb, stg1, stg2, 0, 1, &mb, 0, nil, 0, nil)
	}
}

// Transition inserts a number of image layout transitions in the
// command buffer.
func (cb *cmdBuffer) Transition(t []driver.Transition) {
	for i := range t {
		img := t[i].Img.(*image)
		imb := C.VkImageMemoryBarrier{
			sType:               C.VK_STRUCTURE_TYPE_IMAGE_MEMORY_BARRIER,
			srcAccessMask:       convAccess(t[i].AccessBefore),
			dstAccessMask:       convAccess(t[i].AccessAfter),
			oldLayout:           convLayout(t[i].LayoutBefore),
			newLayout:           convLayout(t[i].LayoutAfter),
			srcQueueFamilyIndex: C.VK_QUEUE_FAMILY_IGNORED,
			dstQueueFamilyIndex: C.VK_QUEUE_FAMILY_IGNORED,
			image:               img.img,
			subresourceRange:    img.subres,
		}
		stg1 := convSync(t[i].SyncBefore, C.VK_PIPELINE_STAGE_TOP_OF_PIPE_BIT)
		stg2 := convSync(t[i].SyncAfter, C.VK_PIPELINE_STAGE_BOTTOM_OF_PIPE_BIT)
		C.vkCmdPipelineBarrier(cb.cb, stg1, stg2, 0, 0, nil, 0, nil, 1, &imb)
	}
}

// Blit copies the whole extent of one image into another.
// param.From must be in the LCopySrc layout and param.To in
// the LCopyDst layout.
func (cb *cmdBuffer) Blit(param *driver.Blit) {
	from := param.From.(*image)
	to := param.To.(*image)
	blit := C.VkImageBlit{
		srcSubresource: C.VkImageSubresourceLayers{
			aspectMask: C.VK_IMAGE_ASPECT_COLOR_BIT,
			layerCount: 1,
		},
		dstSubresource: C.VkImageSubresourceLayers{
			aspectMask: C.VK_IMAGE_ASPECT_COLOR_BIT,
			layerCount: 1,
		},
	}
	blit.srcOffsets[1] = C.VkOffset3D{
		x: C.int32_t(param.FromSize.Width),
		y: C.int32_t(param.FromSize.Height),
		z: 1,
	}
	blit.dstOffsets[1] = C.VkOffset3D{
		x: C.int32_t(param.ToSize.Width),
		y: C.int32_t(param.ToSize.Height),
		z: 1,
	}
	var filter C.VkFilter = C.VK_FILTER_NEAREST
	if param.Filter == driver.FLinear {
		filter = C.VK_FILTER_LINEAR
	}
	C.vkCmdBlitImage(cb.cb, from.img, C.VK_IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL, to.img, C.VK_IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL, 1, &blit, filter)
}

// CopyImgToBuf copies data from an image to a buffer.
// Rows are tightly packed in the buffer.
func (cb *cmdBuffer) CopyImgToBuf(param *driver.ImgBufCopy) {
	img := param.Img.(*image)
	buf := param.Buf.(*buffer)
	cpy := C.VkBufferImageCopy{
		bufferOffset: C.VkDeviceSize(param.BufOff),
		imageSubresource: C.VkImageSubresourceLayers{
			aspectMask: img.subres.aspectMask,
			layerCount: 1,
		},
		imageExtent: C.VkExtent3D{
			width:  C.uint32_t(param.Size.Width),
			height: C.uint32_t(param.Size.Height),
			depth:  1,
		},
	}
	C.vkCmdCopyImageToBuffer(cb.cb, img.img, C.VK_IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL, buf.buf, 1, &cpy)
}

// End ends command recording and prepares the command buffer for execution.
func (cb *cmdBuffer) End() error {
	if cb.begun {
		cb.begun = false
		return checkResult(C.vkEndCommandBuffer(cb.cb))
	}
	return nil
}

// Reset discards all recorded commands from the command buffer.
func (cb *cmdBuffer) Reset() error {
	err := checkResult(C.vkResetCommandBuffer(cb.cb, 0))
	if err != nil {
		return err
	}
	cb.begun = false
	return nil
}

// Destroy destroys the command buffer.
func (cb *cmdBuffer) Destroy() {
	if cb == nil {
		return
	}
	if cb.d != nil {
		// TODO: Skip wait if not in pending state.
		cb.d.qmu.Lock()
		C.vkQueueWaitIdle(cb.d.que)
		cb.d.qmu.Unlock()
		C.vkDestroyCommandPool(cb.d.dev, cb.pool, nil)
	}
	*cb = cmdBuffer{}
}

// commitData contains common data used during a call to the
// Driver.Commit method.
// It is only safe to reuse the data after the Commit call
// writes to the provided channel.
type commitData struct {
	fence C.VkFence
	cb    []C.VkCommandBuffer // C memory.
}

// newCommitData creates new commit data.
func (d *Driver) newCommitData() (*commitData, error) {
	info := C.VkFenceCreateInfo{
		sType: C.VK_STRUCTURE_TYPE_FENCE_CREATE_INFO,
	}
	var fence C.VkFence
	err := checkResult(C.vkCreateFence(d.dev, &info, nil, &fence))
	if err != nil {
		return nil, err
	}
	const ncb = 4
	p := C.malloc(C.sizeof_VkCommandBuffer * ncb)
	return &commitData{
		fence: fence,
		cb:    unsafe.Slice((*C.VkCommandBuffer)(p), ncb),
	}, nil
}

// destroyCommitData destroys commit data.
func (d *Driver) destroyCommitData(cd *commitData) {
	if cd == nil {
		return
	}
	C.vkDestroyFence(d.dev, cd.fence, nil)
	C.free(unsafe.Pointer(&cd.cb[0]))
	*cd = commitData{}
}

// resizeCB resizes cd.cb.
func (cd *commitData) resizeCB(min int) {
	n := len(cd.cb)
	switch {
	case n < min:
		for n < min {
			n *= 2
		}
	case n >= 2*min:
		n = min
	default:
		return
	}
	p := C.realloc(unsafe.Pointer(&cd.cb[0]), C.sizeof_VkCommandBuffer*C.size_t(n))
	cd.cb = unsafe.Slice((*C.VkCommandBuffer)(p), n)
}

// Commit commits a batch of command buffers to the GPU for execution.
func (d *Driver) Commit(cb []driver.CmdBuffer, ch chan<- error) {
	if len(cb) == 0 {
		ch <- nil
		return
	}
	// Take commit data from the driver an return it when
	// this call completes.
	// If too many calls to Commit were issued, we will
	// block here waiting for data to become available.
	cd := <-d.cdata
	defer func() { d.cdata <- cd }()
	err := checkResult(C.vkResetFences(d.dev, 1, &cd.fence))
	if err != nil {
		ch <- err
		return
	}
	cd.resizeCB(len(cb))
	for i := range cb {
		cd.cb[i] = cb[i].(*cmdBuffer).cb
	}
	info := C.VkSubmitInfo{
		sType:              C.VK_STRUCTURE_TYPE_SUBMIT_INFO,
		commandBufferCount: C.uint32_t(len(cb)),
		pCommandBuffers:    &cd.cb[0],
	}
	d.qmu.Lock()
	res := C.vkQueueSubmit(d.que, 1, &info, cd.fence)
	d.qmu.Unlock()
	if err = checkResult(res); err != nil {
		ch <- err
		return
	}

	// Wait until queue submission has completed execution.
	for {
		res := C.vkWaitForFences(d.dev, 1, &cd.fence, C.VK_TRUE, C.UINT64_MAX)
		switch res {
		case C.VK_SUCCESS:
			ch <- nil
			return
		case C.VK_TIMEOUT:
		default:
			ch <- checkResult(res)
			return
		}
	}
}

// Submit submits a batch of command buffers to the GPU for
// execution. It does not wait for completion.
func (d *Driver) Submit(s *driver.Submission) error {
	if len(s.Wait) != len(s.WaitSync) {
		panic("mismatched wait semaphores and scopes")
	}
	nwait, nsig, ncb := len(s.Wait), len(s.Signal), len(s.Cmd)
	n := nwait + nsig
	var sp *C.VkSemaphore
	if n > 0 {
		sp = (*C.VkSemaphore)(C.malloc(C.size_t(n) * C.sizeof_VkSemaphore))
		defer C.free(unsafe.Pointer(sp))
	}
	sems := unsafe.Slice(sp, n)
	var stg []C.VkPipelineStageFlags
	if nwait > 0 {
		p := (*C.VkPipelineStageFlags)(C.malloc(C.size_t(nwait) * C.sizeof_VkPipelineStageFlags))
		defer C.free(unsafe.Pointer(p))
		stg = unsafe.Slice(p, nwait)
	}
	var cbs []C.VkCommandBuffer
	if ncb > 0 {
		p := (*C.VkCommandBuffer)(C.malloc(C.size_t(ncb) * C.sizeof_VkCommandBuffer))
		defer C.free(unsafe.Pointer(p))
		cbs = unsafe.Slice(p, ncb)
	}
	info := C.VkSubmitInfo{
		sType:                C.VK_STRUCTURE_TYPE_SUBMIT_INFO,
		waitSemaphoreCount:   C.uint32_t(nwait),
		commandBufferCount:   C.uint32_t(ncb),
		signalSemaphoreCount: C.uint32_t(nsig),
	}
	for i := range s.Wait {
		sems[i] = s.Wait[i].(*semaphore).sem
		stg[i] = convSync(s.WaitSync[i], C.VK_PIPELINE_STAGE_TOP_OF_PIPE_BIT)
	}
	if nwait > 0 {
		info.pWaitSemaphores = &sems[0]
		info.pWaitDstStageMask = &stg[0]
	}
	for i := range s.Signal {
		sems[nwait+i] = s.Signal[i].(*semaphore).sem
	}
	if nsig > 0 {
		info.pSignalSemaphores = &sems[nwait]
	}
	for i := range s.Cmd {
		cbs[i] = s.Cmd[i].(*cmdBuffer).cb
	}
	if ncb > 0 {
		info.pCommandBuffers = &cbs[0]
	}
	var fen C.VkFence
	if s.Fence != nil {
		fen = s.Fence.(*fence).fence
	}
	d.qmu.Lock()
	defer d.qmu.Unlock()
	return checkResult(C.vkQueueSubmit(d.que, 1, &info, fen))
}

// convSBTRegion converts a driver.SBTRegion to a
// VkStridedDeviceAddressRegionKHR.
func convSBTRegion(r driver.SBTRegion) C.VkStridedDeviceAddressRegionKHR {
	return C.VkStridedDeviceAddressRegionKHR{
		deviceAddress: C.VkDeviceAddress(r.Addr),
		stride:        C.VkDeviceSize(r.Stride),
		size:          C.VkDeviceSize(r.Size),
	}
}

// convSync converts a driver.Sync to a VkPipelineStageFlags.
// If sync is driver.SNone, it returns none instead.
func convSync(sync driver.Sync, none C.VkPipelineStageFlags) (flags C.VkPipelineStageFlags) {
	if sync == driver.SNone {
		return none
	}
	if sync&driver.SAll != 0 {
		return C.VK_PIPELINE_STAGE_ALL_COMMANDS_BIT
	}
	if sync&driver.SRayTracing != 0 {
		flags |= C.VK_PIPELINE_STAGE_RAY_TRACING_SHADER_BIT_KHR
	}
	if sync&driver.SCopy != 0 {
		flags |= C.VK_PIPELINE_STAGE_TRANSFER_BIT
	}
	if sync&driver.SAccelBuild != 0 {
		flags |= C.VK_PIPELINE_STAGE_ACCELERATION_STRUCTURE_BUILD_BIT_KHR
	}
	if sync&driver.SColorOutput != 0 {
		flags |= C.VK_PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT
	}
	if sync&driver.SHost != 0 {
		flags |= C.VK_PIPELINE_STAGE_HOST_BIT
	}
	if sync&driver.STop != 0 {
		flags |= C.VK_PIPELINE_STAGE_TOP_OF_PIPE_BIT
	}
	if sync&driver.SBottom != 0 {
		flags |= C.VK_PIPELINE_STAGE_BOTTOM_OF_PIPE_BIT
	}
	return
}

// convAccess converts a driver.Access to a VkAccessFlags.
func convAccess(acc driver.Access) (flags C.VkAccessFlags) {
	if acc&driver.AShaderRead != 0 {
		flags |= C.VK_ACCESS_SHADER_READ_BIT
	}
	if acc&driver.AShaderWrite != 0 {
		flags |= C.VK_ACCESS_SHADER_WRITE_BIT
	}
	if acc&driver.ACopyRead != 0 {
		flags |= C.VK_ACCESS_TRANSFER_READ_BIT
	}
	if acc&driver.ACopyWrite != 0 {
		flags |= C.VK_ACCESS_TRANSFER_WRITE_BIT
	}
	if acc&driver.AAccelRead != 0 {
		flags |= C.VK_ACCESS_ACCELERATION_STRUCTURE_READ_BIT_KHR
	}
	if acc&driver.AAccelWrite != 0 {
		flags |= C.VK_ACCESS_ACCELERATION_STRUCTURE_WRITE_BIT_KHR
	}
	if acc&driver.AHostWrite != 0 {
		flags |= C.VK_ACCESS_HOST_WRITE_BIT
	}
	if acc&driver.AHostRead != 0 {
		flags |= C.VK_ACCESS_HOST_READ_BIT
	}
	if acc&driver.AMemoryRead != 0 {
		flags |= C.VK_ACCESS_MEMORY_READ_BIT
	}
	if acc&driver.AMemoryWrite != 0 {
		flags |= C.VK_ACCESS_MEMORY_WRITE_BIT
	}
	return
}

// convLayout converts a driver.Layout to a VkImageLayout.
func convLayout(lay driver.Layout) C.VkImageLayout {
	switch lay {
	case driver.LCommon:
		return C.VK_IMAGE_LAYOUT_GENERAL
	case driver.LCopySrc:
		return C.VK_IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL
	case driver.LCopyDst:
		return C.VK_IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL
	case driver.LPresent:
		return C.VK_IMAGE_LAYOUT_PRESENT_SRC_KHR
	}
	return C.VK_IMAGE_LAYOUT_UNDEFINED
}
