// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package vk implements driver interfaces using the Vulkan API.
// It requires Vulkan 1.2 and the KHR ray tracing extensions.
package vk

// #cgo CFLAGS: -I${SRCDIR}
// #include <stdlib.h>
// #include <proc.h>
import "C"

import (
	"errors"
	"runtime"
	"sync"
	"unsafe"

	"github.com/gviegas/raytrace/driver"
	"github.com/gviegas/raytrace/internal/log"
)

const driverName = "vulkan"
const requiredAPIVersion = C.VK_API_VERSION_1_2

var logger = log.New("vk")

// Driver implements driver.Driver, driver.GPU and
// driver.Presenter.
type Driver struct {
	proc

	inst  C.VkInstance
	ivers C.uint32_t
	pdev  C.VkPhysicalDevice
	dname string
	dvers C.uint32_t
	dev   C.VkDevice
	que   C.VkQueue
	qfam  C.uint32_t

	// Queue submission requires that the queue handle
	// be externally synchronized.
	qmu sync.Mutex

	// Commit data created in advance.
	// The capacity of the channel limits the number
	// of concurrent Commit calls.
	cdata chan *commitData

	// Enabled extensions, indexed by ext* constants.
	exts [extN]bool

	// Presentation surface, if Open was called with a
	// non-nil driver.Surface.
	win driver.Surface
	sf  C.VkSurfaceKHR
	sc  *swapchain

	// Used device memory, indexed by heap indices.
	mused []int64
	mprop C.VkPhysicalDeviceMemoryProperties
	mtype []driver.MemType

	// Limits of pdev.
	lim driver.Limits
}

func init() {
	driver.Register(&Driver{})
}

// initInstance initializes the Vulkan instance.
// If present is set, surface extensions are enabled.
func (d *Driver) initInstance(present bool) error {
	C.getGlobalProcs()
	if C.enumerateInstanceVersion == nil || checkResult(C.vkEnumerateInstanceVersion(&d.ivers)) != nil {
		d.ivers = C.VK_API_VERSION_1_0
	}
	if isVariant(d.ivers) {
		// Do not support variants.
		return driver.ErrNoDevice
	}
	if d.ivers < requiredAPIVersion {
		logger.Errorf("instance version %d.%d is too old", versionMajor(d.ivers), versionMinor(d.ivers))
		return driver.ErrIncompatible
	}
	appInfo := (*C.VkApplicationInfo)(C.malloc(C.sizeof_VkApplicationInfo))
	defer C.free(unsafe.Pointer(appInfo))
	*appInfo = C.VkApplicationInfo{
		sType:      C.VK_STRUCTURE_TYPE_APPLICATION_INFO,
		apiVersion: requiredAPIVersion,
	}
	info := C.VkInstanceCreateInfo{
		sType:            C.VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO,
		pApplicationInfo: appInfo,
	}
	free, err := d.setInstanceExts(&info, present)
	defer free()
	if err != nil {
		return err
	}
	if err := checkResult(C.vkCreateInstance(&info, nil, &d.inst)); err != nil {
		return err
	}
	C.getInstanceProcs(d.inst)
	return nil
}

// initSurface creates a VkSurfaceKHR from win.
func (d *Driver) initSurface(win driver.Surface) error {
	p, err := win.CreateWindowSurface(d.inst, nil)
	if err != nil {
		logger.Errorf("surface creation failed: %v", err)
		return driver.ErrWindow
	}
	d.sf = *(*C.VkSurfaceKHR)(unsafe.Pointer(p))
	d.win = win
	return nil
}

// physDevices returns the physical devices exposed by the
// instance.
func (d *Driver) physDevices() ([]C.VkPhysicalDevice, error) {
	var n C.uint32_t
	if err := checkResult(C.vkEnumeratePhysicalDevices(d.inst, &n, nil)); err != nil {
		return nil, err
	}
	// The wording in the Vulkan registry seems to indicate that vkEnumeratePhysicalDevices
	// need not expose any devices at all. We assume that n could be zero here,
	// in which case no suitable device can be found.
	if n == 0 {
		return nil, nil
	}
	p := (*C.VkPhysicalDevice)(C.malloc(C.sizeof_VkPhysicalDevice * C.size_t(n)))
	defer C.free(unsafe.Pointer(p))
	if err := checkResult(C.vkEnumeratePhysicalDevices(d.inst, &n, p)); err != nil {
		return nil, err
	}
	devs := make([]C.VkPhysicalDevice, n)
	copy(devs, unsafe.Slice(p, n))
	return devs, nil
}

// deviceInfo describes pdev for selection.
// The queue family must support graphics and compute
// operations and, if d has a surface, presentation.
// Devices older than Vulkan 1.2 and variant implementations
// are reported with no usable queue family.
func (d *Driver) deviceInfo(pdev C.VkPhysicalDevice) driver.DeviceInfo {
	var prop C.VkPhysicalDeviceProperties
	C.vkGetPhysicalDeviceProperties(pdev, &prop)
	prop.deviceName[len(prop.deviceName)-1] = 0
	info := driver.DeviceInfo{
		Name:    C.GoString(&prop.deviceName[0]),
		Type:    convDeviceType(prop.deviceType),
		Queue:   -1,
		Version: [3]int{versionMajor(prop.apiVersion), versionMinor(prop.apiVersion), versionPatch(prop.apiVersion)},
	}
	info.Exts, _ = deviceExts(pdev)

	var mprop C.VkPhysicalDeviceMemoryProperties
	C.vkGetPhysicalDeviceMemoryProperties(pdev, &mprop)
	for _, h := range mprop.memoryHeaps[:mprop.memoryHeapCount] {
		if h.flags&C.VK_MEMORY_HEAP_DEVICE_LOCAL_BIT != 0 {
			info.LocalMemory += int64(h.size)
		}
	}

	if isVariant(prop.apiVersion) || prop.apiVersion < requiredAPIVersion {
		return info
	}
	var n C.uint32_t
	C.vkGetPhysicalDeviceQueueFamilyProperties(pdev, &n, nil)
	if n == 0 {
		return info
	}
	p := (*C.VkQueueFamilyProperties)(C.malloc(C.sizeof_VkQueueFamilyProperties * C.size_t(n)))
	defer C.free(unsafe.Pointer(p))
	C.vkGetPhysicalDeviceQueueFamilyProperties(pdev, &n, p)
	flg := C.VkFlags(C.VK_QUEUE_GRAPHICS_BIT | C.VK_QUEUE_COMPUTE_BIT)
	var null C.VkSurfaceKHR
	for i, qp := range unsafe.Slice(p, n) {
		if qp.queueFlags&flg != flg {
			continue
		}
		if d.sf != null {
			var sup C.VkBool32
			res := C.vkGetPhysicalDeviceSurfaceSupportKHR(pdev, C.uint32_t(i), d.sf, &sup)
			if checkResult(res) != nil || sup != C.VK_TRUE {
				continue
			}
		}
		info.Queue = i
		break
	}
	return info
}

// initDevice selects a physical device and initializes the
// Vulkan device.
func (d *Driver) initDevice() error {
	devs, err := d.physDevices()
	if err != nil {
		return err
	}
	var null C.VkSurfaceKHR
	required := Required(d.sf != null)
	infos := make([]driver.DeviceInfo, len(devs))
	for i, dev := range devs {
		infos[i] = d.deviceInfo(dev)
		logger.Debugf("device %d: %s (%v), score %d", i, infos[i].Name, infos[i].Type, driver.ScoreDevice(&infos[i], required))
	}
	idx, score, err := driver.SelectDevice(infos, required)
	if err != nil {
		return err
	}
	d.pdev = devs[idx]
	d.dname = infos[idx].Name
	d.qfam = C.uint32_t(infos[idx].Queue)
	var prop C.VkPhysicalDeviceProperties
	C.vkGetPhysicalDeviceProperties(d.pdev, &prop)
	d.dvers = prop.apiVersion
	logger.Noticef("using %s (%v), score %d", d.dname, infos[idx].Type, score)

	C.vkGetPhysicalDeviceMemoryProperties(d.pdev, &d.mprop)
	d.mused = make([]int64, d.mprop.memoryHeapCount)
	d.mtype = make([]driver.MemType, d.mprop.memoryTypeCount)
	for i := range d.mtype {
		d.mtype[i] = convMemType(d.mprop.memoryTypes[i])
	}
	d.setLimits(&prop.limits)

	quePrio := (*C.float)(C.malloc(C.sizeof_float))
	defer C.free(unsafe.Pointer(quePrio))
	*quePrio = 1.0
	queInfo := (*C.VkDeviceQueueCreateInfo)(C.malloc(C.sizeof_VkDeviceQueueCreateInfo))
	defer C.free(unsafe.Pointer(queInfo))
	*queInfo = C.VkDeviceQueueCreateInfo{
		sType:            C.VK_STRUCTURE_TYPE_DEVICE_QUEUE_CREATE_INFO,
		queueFamilyIndex: d.qfam,
		queueCount:       1,
		pQueuePriorities: quePrio,
	}
	info := C.VkDeviceCreateInfo{
		sType:                C.VK_STRUCTURE_TYPE_DEVICE_CREATE_INFO,
		queueCreateInfoCount: 1,
		pQueueCreateInfos:    queInfo,
	}
	free, err := d.setDeviceExts(&info, infos[idx].Exts)
	defer free()
	if err != nil {
		return err
	}
	freeFeat, err := d.setFeatures(&info)
	defer freeFeat()
	if err != nil {
		return err
	}
	if err := checkResult(C.vkCreateDevice(d.pdev, &info, nil, &d.dev)); err != nil {
		return err
	}
	C.getDeviceProcs(d.dev)
	C.vkGetDeviceQueue(d.dev, d.qfam, 0, &d.que)
	return nil
}

// setLimits sets d.lim.
// It queries the ray tracing properties of d.pdev.
func (d *Driver) setLimits(lim *C.VkPhysicalDeviceLimits) {
	rt := (*C.VkPhysicalDeviceRayTracingPipelinePropertiesKHR)(C.malloc(C.sizeof_VkPhysicalDeviceRayTracingPipelinePropertiesKHR))
	defer C.free(unsafe.Pointer(rt))
	as := (*C.VkPhysicalDeviceAccelerationStructurePropertiesKHR)(C.malloc(C.sizeof_VkPhysicalDeviceAccelerationStructurePropertiesKHR))
	defer C.free(unsafe.Pointer(as))
	prop := (*C.VkPhysicalDeviceProperties2)(C.malloc(C.sizeof_VkPhysicalDeviceProperties2))
	defer C.free(unsafe.Pointer(prop))
	*as = C.VkPhysicalDeviceAccelerationStructurePropertiesKHR{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_ACCELERATION_STRUCTURE_PROPERTIES_KHR,
	}
	*rt = C.VkPhysicalDeviceRayTracingPipelinePropertiesKHR{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_RAY_TRACING_PIPELINE_PROPERTIES_KHR,
		pNext: unsafe.Pointer(as),
	}
	*prop = C.VkPhysicalDeviceProperties2{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_PROPERTIES_2,
		pNext: unsafe.Pointer(rt),
	}
	C.vkGetPhysicalDeviceProperties2(d.pdev, prop)

	d.lim = driver.Limits{
		MaxImage2D: int(lim.maxImageDimension2D),

		MaxDescBufferRange:   int64(lim.maxStorageBufferRange),
		MaxDescConstantRange: int64(lim.maxUniformBufferRange),

		ShaderGroupHandleSize:      int(rt.shaderGroupHandleSize),
		ShaderGroupHandleAlignment: int(rt.shaderGroupHandleAlignment),
		ShaderGroupBaseAlignment:   int(rt.shaderGroupBaseAlignment),
		MaxRayRecursion:            int(rt.maxRayRecursionDepth),
		MaxRayDispatch:             int(rt.maxRayDispatchInvocationCount),

		MinScratchAlignment: int(as.minAccelerationStructureScratchOffsetAlignment),
	}
}

// setFeatures enables the features that ray tracing needs.
// It fails with driver.ErrNoDevice if the device does not
// support them.
func (d *Driver) setFeatures(info *C.VkDeviceCreateInfo) (free func(), err error) {
	rt := (*C.VkPhysicalDeviceRayTracingPipelineFeaturesKHR)(C.malloc(C.sizeof_VkPhysicalDeviceRayTracingPipelineFeaturesKHR))
	as := (*C.VkPhysicalDeviceAccelerationStructureFeaturesKHR)(C.malloc(C.sizeof_VkPhysicalDeviceAccelerationStructureFeaturesKHR))
	bda := (*C.VkPhysicalDeviceBufferDeviceAddressFeatures)(C.malloc(C.sizeof_VkPhysicalDeviceBufferDeviceAddressFeatures))
	feat := (*C.VkPhysicalDeviceFeatures2)(C.malloc(C.sizeof_VkPhysicalDeviceFeatures2))
	free = func() {
		C.free(unsafe.Pointer(rt))
		C.free(unsafe.Pointer(as))
		C.free(unsafe.Pointer(bda))
		C.free(unsafe.Pointer(feat))
	}
	*rt = C.VkPhysicalDeviceRayTracingPipelineFeaturesKHR{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_RAY_TRACING_PIPELINE_FEATURES_KHR,
	}
	*as = C.VkPhysicalDeviceAccelerationStructureFeaturesKHR{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_ACCELERATION_STRUCTURE_FEATURES_KHR,
		pNext: unsafe.Pointer(rt),
	}
	*bda = C.VkPhysicalDeviceBufferDeviceAddressFeatures{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_BUFFER_DEVICE_ADDRESS_FEATURES,
		pNext: unsafe.Pointer(as),
	}
	*feat = C.VkPhysicalDeviceFeatures2{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_FEATURES_2,
		pNext: unsafe.Pointer(bda),
	}
	C.vkGetPhysicalDeviceFeatures2(d.pdev, feat)
	if bda.bufferDeviceAddress != C.VK_TRUE || as.accelerationStructure != C.VK_TRUE || rt.rayTracingPipeline != C.VK_TRUE {
		logger.Errorf("%s lacks ray tracing features", d.dname)
		return free, driver.ErrNoDevice
	}

	// Only enable what is used. The query above may have set
	// other features.
	*feat = C.VkPhysicalDeviceFeatures2{
		sType: C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_FEATURES_2,
		pNext: unsafe.Pointer(bda),
		features: C.VkPhysicalDeviceFeatures{
			shaderInt64: feat.features.shaderInt64,
		},
	}
	*bda = C.VkPhysicalDeviceBufferDeviceAddressFeatures{
		sType:               C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_BUFFER_DEVICE_ADDRESS_FEATURES,
		pNext:               unsafe.Pointer(as),
		bufferDeviceAddress: C.VK_TRUE,
	}
	*as = C.VkPhysicalDeviceAccelerationStructureFeaturesKHR{
		sType:                 C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_ACCELERATION_STRUCTURE_FEATURES_KHR,
		pNext:                 unsafe.Pointer(rt),
		accelerationStructure: C.VK_TRUE,
	}
	*rt = C.VkPhysicalDeviceRayTracingPipelineFeaturesKHR{
		sType:              C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_RAY_TRACING_PIPELINE_FEATURES_KHR,
		rayTracingPipeline: C.VK_TRUE,
	}
	info.pEnabledFeatures = nil
	proxy := (*C.VkBaseOutStructure)(unsafe.Pointer(info))
	for proxy.pNext != nil {
		proxy = proxy.pNext
	}
	proxy.pNext = (*C.VkBaseOutStructure)(unsafe.Pointer(feat))
	return free, nil
}

// Open initializes the driver.
// If sf is not nil, a surface is created from it and only
// devices that can present to the surface are considered.
func (d *Driver) Open(sf driver.Surface) (gpu driver.GPU, err error) {
	if d.dev != nil {
		return d, nil
	}
	if err = d.open(); err != nil {
		goto fail
	}
	if err = d.initInstance(sf != nil); err != nil {
		goto fail
	}
	if sf != nil {
		if err = d.initSurface(sf); err != nil {
			goto fail
		}
	}
	if err = d.initDevice(); err != nil {
		goto fail
	}
	d.cdata = make(chan *commitData, runtime.NumCPU())
	for i := 0; i < cap(d.cdata); i++ {
		var cd *commitData
		if cd, err = d.newCommitData(); err != nil {
			goto fail
		}
		d.cdata <- cd
	}
	return d, nil
fail:
	d.Close()
	return nil, err
}

// Name returns the driver name.
func (d *Driver) Name() string { return driverName }

// Close deinitializes the driver.
func (d *Driver) Close() {
	if d == nil {
		return
	}
	// We check the instance and device handles here
	// because the procs might not have been loaded.
	if d.inst != nil {
		if d.dev != nil {
			C.vkDeviceWaitIdle(d.dev)
			if d.sc != nil {
				logger.Warning("swapchain not destroyed before Close")
				d.sc.Destroy()
			}
			for len(d.cdata) > 0 {
				d.destroyCommitData(<-d.cdata)
			}
			C.vkDestroyDevice(d.dev, nil)
		}
		var null C.VkSurfaceKHR
		if d.sf != null {
			C.vkDestroySurfaceKHR(d.inst, d.sf, nil)
		}
		C.vkDestroyInstance(d.inst, nil)
	}
	C.clearProcs()
	d.close()
	*d = Driver{}
}

// Devices describes the physical devices exposed by the
// Vulkan implementation, as seen by device selection when
// presentation is not required.
// It must not be called while a Driver is open.
func Devices() ([]driver.DeviceInfo, error) {
	d := &Driver{}
	defer d.Close()
	if err := d.open(); err != nil {
		return nil, err
	}
	if err := d.initInstance(false); err != nil {
		return nil, err
	}
	devs, err := d.physDevices()
	if err != nil {
		return nil, err
	}
	infos := make([]driver.DeviceInfo, len(devs))
	for i, dev := range devs {
		infos[i] = d.deviceInfo(dev)
	}
	return infos, nil
}

// memory represents a device memory allocation.
type memory struct {
	d     *Driver
	size  int64
	vis   bool
	bound bool
	p     []byte
	mem   C.VkDeviceMemory
	typ   int
	heap  int
}

// newMemory creates a new memory allocation.
// The memory type must have every property of class.
// addr indicates whether the memory will be bound to a
// buffer whose device address is queried.
func (d *Driver) newMemory(req C.VkMemoryRequirements, class driver.MemClass, addr bool) (*memory, error) {
	typ, err := driver.SelectMemory(d.mtype, uint32(req.memoryTypeBits), class.Props())
	if err != nil {
		return nil, err
	}
	info := C.VkMemoryAllocateInfo{
		sType:           C.VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_INFO,
		allocationSize:  req.size,
		memoryTypeIndex: C.uint32_t(typ),
	}
	if addr {
		flags := (*C.VkMemoryAllocateFlagsInfo)(C.malloc(C.sizeof_VkMemoryAllocateFlagsInfo))
		defer C.free(unsafe.Pointer(flags))
		*flags = C.VkMemoryAllocateFlagsInfo{
			sType: C.VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_FLAGS_INFO,
			flags: C.VK_MEMORY_ALLOCATE_DEVICE_ADDRESS_BIT,
		}
		info.pNext = unsafe.Pointer(flags)
	}
	var mem C.VkDeviceMemory
	if err := checkResult(C.vkAllocateMemory(d.dev, &info, nil, &mem)); err != nil {
		return nil, err
	}
	heap := d.mtype[typ].Heap
	d.mused[heap] += int64(req.size)

	return &memory{
		d:    d,
		size: int64(req.size),
		vis:  class == driver.HostVisible,
		mem:  mem,
		typ:  typ,
		heap: heap,
	}, nil
}

// mmap maps the memory for host access.
// The memory must be host visible (m.vis) and must have been bound to a
// resource (m.bound).
func (m *memory) mmap() error {
	if !m.vis {
		panic("cannot map memory that is not host visible")
	}
	if !m.bound {
		panic("cannot map memory that is not bound to a resource")
	}
	if len(m.p) == 0 {
		var p unsafe.Pointer
		if err := checkResult(C.vkMapMemory(m.d.dev, m.mem, 0, C.VK_WHOLE_SIZE, 0, &p)); err != nil {
			return err
		}
		m.p = unsafe.Slice((*byte)(p), m.size)
	}
	return nil
}

// unmap unmaps the memory.
func (m *memory) unmap() {
	if len(m.p) != 0 {
		C.vkUnmapMemory(m.d.dev, m.mem)
		m.p = nil
	}
}

// free deallocates and invalidates the memory.
func (m *memory) free() {
	if m == nil {
		return
	}
	if m.d != nil {
		m.unmap()
		C.vkFreeMemory(m.d.dev, m.mem, nil)
		m.d.mused[m.heap] -= m.size
	}
	*m = memory{}
}

// Driver returns the receiver (for driver.GPU conformance).
func (d *Driver) Driver() driver.Driver { return d }

// Limits returns the implementation limits.
func (d *Driver) Limits() driver.Limits { return d.lim }

// WaitIdle blocks until the device is idle.
func (d *Driver) WaitIdle() error {
	d.qmu.Lock()
	defer d.qmu.Unlock()
	return checkResult(C.vkDeviceWaitIdle(d.dev))
}

// checkResult returns an error derived from a VkResult value.
// If such value does not indicate an error, it returns nil instead.
func checkResult(res C.VkResult) error {
	if res >= 0 {
		// Not an error: VK_ERROR_* values are all negative.
		return nil
	}
	switch res {
	case C.VK_ERROR_OUT_OF_HOST_MEMORY:
		return errNoHostMemory
	case C.VK_ERROR_OUT_OF_DEVICE_MEMORY:
		return errNoDeviceMemory
	case C.VK_ERROR_INITIALIZATION_FAILED:
		return errInitFailed
	case C.VK_ERROR_DEVICE_LOST:
		return errDeviceLost
	case C.VK_ERROR_MEMORY_MAP_FAILED:
		return errMMapFailed
	case C.VK_ERROR_LAYER_NOT_PRESENT:
		return errNoLayer
	case C.VK_ERROR_EXTENSION_NOT_PRESENT:
		return errNoExtension
	case C.VK_ERROR_FEATURE_NOT_PRESENT:
		return errNoFeature
	case C.VK_ERROR_INCOMPATIBLE_DRIVER:
		return errDriverCompat
	case C.VK_ERROR_TOO_MANY_OBJECTS:
		return errTooManyObjects
	case C.VK_ERROR_FORMAT_NOT_SUPPORTED:
		return errUnsupportedFormat
	case C.VK_ERROR_FRAGMENTED_POOL:
		return errFragmentedPool
	case C.VK_ERROR_OUT_OF_POOL_MEMORY:
		return errNoPoolMemory
	case C.VK_ERROR_INVALID_OPAQUE_CAPTURE_ADDRESS:
		return errCaptureAddress
	case C.VK_ERROR_FRAGMENTATION:
		return errFragmentation
	case C.VK_ERROR_SURFACE_LOST_KHR:
		return errSurfaceLost
	case C.VK_ERROR_NATIVE_WINDOW_IN_USE_KHR:
		return errWindowInUse
	case C.VK_ERROR_OUT_OF_DATE_KHR:
		return errOutOfDate
	}
	return errUnknown
}

// Common Vulkan errors (VK_ERROR_*).
var (
	errNoHostMemory      = driver.ErrNoHostMemory
	errNoDeviceMemory    = driver.ErrNoDeviceMemory
	errInitFailed        = errors.New("vk: initialization failed")
	errDeviceLost        = driver.ErrFatal
	errMMapFailed        = errors.New("vk: memory map failed")
	errNoLayer           = errors.New("vk: layer not present")
	errNoExtension       = errors.New("vk: extension not present")
	errNoFeature         = errors.New("vk: feature not present")
	errDriverCompat      = driver.ErrIncompatible
	errTooManyObjects    = errors.New("vk: too many objects")
	errUnsupportedFormat = errors.New("vk: format not supported")
	errFragmentedPool    = errors.New("vk: fragmented pool")
	errUnknown           = errors.New("vk: unknown error")
	errNoPoolMemory      = errors.New("vk: out of pool memory")
	errCaptureAddress    = errors.New("vk: invalid opaque capture address")
	errFragmentation     = errors.New("vk: fragmentation")
	errSurfaceLost       = driver.ErrSurfaceLost
	errWindowInUse       = errors.New("vk: native window in use")
	errOutOfDate         = driver.ErrSwapchain
)

// DeviceName returns the name of the VkDevice that the driver
// is using.
func (d *Driver) DeviceName() string { return d.dname }

// InstanceVersion returns the version of the VkInstance that
// the driver is using.
func (d *Driver) InstanceVersion() (major, minor, patch int) {
	major = versionMajor(d.ivers)
	minor = versionMinor(d.ivers)
	patch = versionPatch(d.ivers)
	return
}

// DeviceVersion returns the version of the VkDevice that
// the driver is using.
func (d *Driver) DeviceVersion() (major, minor, patch int) {
	major = versionMajor(d.dvers)
	minor = versionMinor(d.dvers)
	patch = versionPatch(d.dvers)
	return
}

// convDeviceType converts a VkPhysicalDeviceType to a
// driver.DeviceType.
func convDeviceType(t C.VkPhysicalDeviceType) driver.DeviceType {
	switch t {
	case C.VK_PHYSICAL_DEVICE_TYPE_INTEGRATED_GPU:
		return driver.DIntegrated
	case C.VK_PHYSICAL_DEVICE_TYPE_DISCRETE_GPU:
		return driver.DDiscrete
	case C.VK_PHYSICAL_DEVICE_TYPE_VIRTUAL_GPU:
		return driver.DVirtual
	case C.VK_PHYSICAL_DEVICE_TYPE_CPU:
		return driver.DCPU
	}
	return driver.DOther
}

// convMemType converts a VkMemoryType to a driver.MemType.
func convMemType(t C.VkMemoryType) driver.MemType {
	var prop driver.MemProp
	if t.propertyFlags&C.VK_MEMORY_PROPERTY_DEVICE_LOCAL_BIT != 0 {
		prop |= driver.PDeviceLocal
	}
	if t.propertyFlags&C.VK_MEMORY_PROPERTY_HOST_VISIBLE_BIT != 0 {
		prop |= driver.PHostVisible
	}
	if t.propertyFlags&C.VK_MEMORY_PROPERTY_HOST_COHERENT_BIT != 0 {
		prop |= driver.PHostCoherent
	}
	if t.propertyFlags&C.VK_MEMORY_PROPERTY_HOST_CACHED_BIT != 0 {
		prop |= driver.PHostCached
	}
	return driver.MemType{Prop: prop, Heap: int(t.heapIndex)}
}

// versionMajor extracts the major version number from v.
// v must have been generated by VK_MAKE_API_VERSION.
func versionMajor(v C.uint32_t) int { return int(v >> 22 & 0x7f) }

// versionMinor extracts the minor version number from v.
// v must have been generated by VK_MAKE_API_VERSION.
func versionMinor(v C.uint32_t) int { return int(v >> 12 & 0x3ff) }

// versionPatch extracts the patch version number from v.
// v must have been generated by VK_MAKE_API_VERSION.
func versionPatch(v C.uint32_t) int { return int(v & 0xfff) }

// isVariant returns whether version v identifies a variant
// implementation of the Vulkan API.
// v must have been generated by VK_MAKE_API_VERSION.
func isVariant(v C.uint32_t) bool { return v>>29 != 0 }
