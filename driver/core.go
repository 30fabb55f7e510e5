// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

// GPU is the main interface to an underlying driver
// implementation.
// It is used to create other types and to execute commands.
// A GPU is obtained from a call to Driver.Open.
type GPU interface {
	// Driver returns the Driver that owns the GPU.
	Driver() Driver

	// Commit commits a batch of command buffers to the GPU
	// for execution.
	// This method sends the result to ch when all commands
	// complete execution. Command buffers in cb cannot be
	// used for recording until then.
	// It is meant for one-off work (e.g., building
	// acceleration structures) that must be waited on
	// before proceeding.
	Commit(cb []CmdBuffer, ch chan<- error)

	// Submit submits a batch of command buffers to the GPU
	// for execution, without waiting for completion.
	// Synchronization is defined entirely by the semaphores
	// and fence of s.
	Submit(s *Submission) error

	// WaitIdle blocks until the GPU has no pending work.
	WaitIdle() error

	// NewCmdBuffer creates a new command buffer.
	NewCmdBuffer() (CmdBuffer, error)

	// NewShaderCode creates a new shader code.
	// data must contain SPIR-V words.
	NewShaderCode(data []byte) (ShaderCode, error)

	// NewDescHeap creates a new descriptor heap.
	NewDescHeap(ds []Descriptor) (DescHeap, error)

	// NewDescTable creates a new descriptor table.
	NewDescTable(dh []DescHeap) (DescTable, error)

	// NewRTPipeline creates a new ray tracing pipeline.
	NewRTPipeline(state *RTState) (Pipeline, error)

	// NewBuffer creates a new buffer.
	// Its memory is allocated from a memory type that
	// has every property of class.
	// If usg contains UDeviceAddr, the buffer's address
	// is queried once, right after memory is bound, and
	// is available through Buffer.Addr.
	NewBuffer(size int64, class MemClass, usg Usage) (Buffer, error)

	// NewImage creates a new 2D image with a single layer
	// and mip level. Its memory is device local.
	NewImage(pf PixelFmt, size Dim3D, usg Usage) (Image, error)

	// AccelSizes computes the storage and scratch sizes
	// needed to build an acceleration structure from
	// geom.
	AccelSizes(geom *AccelGeom) (AccelSizes, error)

	// NewAccel creates a new acceleration structure.
	// Its storage is provided by buf, which must have been
	// created with UAccelStorage usage. The range
	// [off, off+size) must lie within buf and off must be
	// a multiple of 256.
	// The acceleration structure is empty until built by
	// a call to CmdBuffer.BuildAccel.
	NewAccel(typ AccelType, buf Buffer, off, size int64) (Accel, error)

	// NewFence creates a new fence.
	NewFence(signaled bool) (Fence, error)

	// NewSemaphore creates a new semaphore.
	NewSemaphore() (Semaphore, error)

	// Limits returns the implementation limits.
	// They are immutable for the lifetime of the GPU.
	Limits() Limits
}

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface may allocate external
// memory that is not managed by GC, so Destroy must be
// called explicitly to ensure such memory is deallocated.
type Destroyer interface {
	Destroy()
}

// Submission describes a queue submission.
type Submission struct {
	Cmd []CmdBuffer

	// Wait[i] is waited on at the WaitSync[i] scope.
	Wait     []Semaphore
	WaitSync []Sync

	// Signal is signaled when all commands complete.
	Signal []Semaphore

	// Fence, if not nil, is signaled when all commands
	// complete. It must be unsignaled.
	Fence Fence
}

// Fence is the interface that defines a GPU to CPU
// synchronization primitive.
type Fence interface {
	Destroyer

	// Wait blocks until the fence is signaled.
	Wait() error

	// Reset sets the fence to the unsignaled state.
	Reset() error
}

// Semaphore is the interface that defines a GPU to GPU
// synchronization primitive.
type Semaphore interface {
	Destroyer
}

// CmdBuffer is the interface that defines a command buffer.
// Commands are recorded into command buffers and later
// committed to the GPU for execution. The usage is as
// follows:
//
//	1. call Begin
//	2. call Set* methods to configure tracing state
//	3. call TraceRays, BuildAccel, Blit or CopyImgToBuf
//	4. call Barrier/Transition between dependent commands
//	5. call End and then GPU.Commit or GPU.Submit
//
// Commands are not synchronized with one another unless
// separated by barriers.
type CmdBuffer interface {
	Destroyer

	// Begin prepares the command buffer for recording.
	// This method must be called before any command
	// is recorded in the command buffer. It needs to
	// be called again if the command buffer is
	// executed or reset.
	// Recording is for one-time submission.
	Begin() error

	// SetPipeline sets the ray tracing pipeline.
	SetPipeline(pl Pipeline)

	// SetDescTable sets a descriptor table range for
	// ray tracing pipelines.
	// heapCopy[i] selects which copy of the heap at
	// start+i is bound.
	SetDescTable(table DescTable, start int, heapCopy []int)

	// TraceRays dispatches width*height*depth ray
	// generation invocations.
	// The shader binding table regions must refer to
	// handles of the pipeline set by SetPipeline.
	TraceRays(sbt *ShaderTable, width, height, depth int)

	// BuildAccel records a build of dst.
	// scratch is the device address of a buffer range
	// of at least AccelSizes.Scratch bytes.
	// geom must describe the same geometry that was used
	// to compute dst's sizes.
	BuildAccel(dst Accel, geom *AccelGeom, scratch uint64)

	// Barrier inserts a number of global barriers in the
	// command buffer.
	Barrier(b []Barrier)

	// Transition inserts a number of image layout
	// transitions in the command buffer.
	Transition(t []Transition)

	// Blit copies a region of one image into another,
	// scaling and converting as needed.
	Blit(param *Blit)

	// CopyImgToBuf copies data from an image to a buffer.
	CopyImgToBuf(param *ImgBufCopy)

	// End ends command recording and prepares the command
	// buffer for execution.
	// Calling End with no commands recorded is valid.
	End() error

	// Reset discards all recorded commands from the
	// command buffer.
	// The command buffer must not be pending execution.
	Reset() error
}

// Sync is the type of synchronization scopes.
type Sync int

// Synchronization scopes.
const (
	SRayTracing Sync = 1 << iota
	SCopy
	SAccelBuild
	SColorOutput
	SHost
	STop
	SBottom
	SAll
	SNone Sync = 0
)

// Access is the type of memory accesses.
type Access int

// Memory accesses.
const (
	AShaderRead Access = 1 << iota
	AShaderWrite
	ACopyRead
	ACopyWrite
	AAccelRead
	AAccelWrite
	AHostWrite
	AHostRead
	AMemoryRead
	AMemoryWrite
	ANone Access = 0
)

// Layout is the type of image layouts.
type Layout int

// Image layouts.
const (
	LUndefined Layout = iota
	// LCommon is the general layout, used for storage
	// images accessed by shaders.
	LCommon
	LCopySrc
	LCopyDst
	LPresent
)

// Barrier describes a global memory barrier.
type Barrier struct {
	SyncBefore   Sync
	SyncAfter    Sync
	AccessBefore Access
	AccessAfter  Access
}

// Transition describes an image layout transition.
type Transition struct {
	Barrier
	LayoutBefore Layout
	LayoutAfter  Layout
	Img          Image
}

// Blit describes the parameters of a Blit command.
// The whole extent of From is scaled into the whole
// extent of To.
type Blit struct {
	From     Image
	FromSize Dim3D
	To       Image
	ToSize   Dim3D
	Filter   Filter
}

// ImgBufCopy describes the parameters of a CopyImgToBuf
// command.
// The image must be in the LCopySrc layout.
type ImgBufCopy struct {
	Img    Image
	Size   Dim3D
	Buf    Buffer
	BufOff int64
}

// Filter is the type of blit filters.
type Filter int

// Filters.
const (
	FNearest Filter = iota
	FLinear
)

// ShaderCode is the interface that defines a shader binary
// for execution in a programmable pipeline stage.
type ShaderCode interface {
	Destroyer
}

// ShaderFunc references a specific entry point in a
// ShaderCode.
type ShaderFunc struct {
	Code ShaderCode
	Name string
}

// Stage is the type of ray tracing shader stages.
type Stage int

// Shader stages.
const (
	SRaygen Stage = 1 << iota
	SMiss
	SClosestHit
	SAnyHit
	SIntersection
	SCallable
)

// String implements fmt.Stringer.
func (s Stage) String() string {
	switch s {
	case SRaygen:
		return "raygen"
	case SMiss:
		return "miss"
	case SClosestHit:
		return "closesthit"
	case SAnyHit:
		return "anyhit"
	case SIntersection:
		return "intersection"
	case SCallable:
		return "callable"
	}
	return "stage(mixed)"
}

// DescType is the type of a descriptor.
type DescType int

// Descriptor types.
const (
	// Acceleration structure (top level).
	DAccel DescType = iota
	// Storage image, read/write, LCommon layout.
	DImage
	// Uniform buffer.
	DConstant
	// Storage buffer.
	DBuffer
)

// Descriptor describes a descriptor binding.
type Descriptor struct {
	Type   DescType
	Stages Stage
	Nr     int
	Len    int
}

// DescHeap is the interface that defines a set of
// descriptors for use in shaders.
// A heap can have any number of copies, each one
// containing an independent set of bindings.
type DescHeap interface {
	Destroyer

	// New creates n copies of the heap.
	// It replaces existing copies.
	New(n int) error

	// SetBuffer updates the buffer range of a DConstant
	// or DBuffer descriptor.
	SetBuffer(cpy, nr int, buf Buffer, off, size int64)

	// SetImage updates the image view of a DImage
	// descriptor.
	SetImage(cpy, nr int, iv ImageView)

	// SetAccel updates the acceleration structure of a
	// DAccel descriptor.
	SetAccel(cpy, nr int, acc Accel)

	// Len returns the number of copies.
	Len() int
}

// DescTable is the interface that defines the layout of
// descriptor heaps seen by a pipeline.
type DescTable interface {
	Destroyer

	// Heap returns the i-th heap of the table.
	Heap(i int) DescHeap
}

// GroupType is the type of shader groups.
type GroupType int

// Shader group types.
const (
	// Raygen, miss or callable stage.
	GGeneral GroupType = iota
	// Closest-hit and/or any-hit stages for triangles.
	GTriangles
)

// Unused marks an absent stage in a ShaderGroup.
const Unused = -1

// ShaderGroup describes a shader group of a ray tracing
// pipeline.
// Fields index RTState.Stages.
type ShaderGroup struct {
	Type       GroupType
	General    int
	ClosestHit int
	AnyHit     int
}

// ShaderStage pairs a stage with its shader function.
type ShaderStage struct {
	Stage Stage
	Func  ShaderFunc
}

// RTState defines the state of a ray tracing pipeline.
type RTState struct {
	Stages       []ShaderStage
	Groups       []ShaderGroup
	Desc         DescTable
	MaxRecursion int
}

// Pipeline is the interface that defines a ray tracing
// pipeline.
type Pipeline interface {
	Destroyer

	// GroupHandles returns the opaque handles of n groups
	// starting at first, concatenated in group order.
	// Each handle has Limits.ShaderGroupHandleSize bytes.
	GroupHandles(first, n int) ([]byte, error)
}

// Usage is the type of resource usages.
type Usage int

// Resource usages.
const (
	UCopySrc Usage = 1 << iota
	UCopyDst
	// Storage buffer or storage image.
	UStorage
	// Uniform buffer.
	UConstant
	// Input of acceleration structure builds.
	UBuildInput
	// Shader binding table.
	UShaderTable
	// Storage of acceleration structures.
	UAccelStorage
	// Buffer has a device address.
	UDeviceAddr
	// Swapchain images.
	URenderTarget
)

// String implements fmt.Stringer.
func (u Usage) String() string {
	names := [...]string{
		"copysrc", "copydst", "storage", "constant",
		"buildinput", "shadertable", "accelstorage",
		"deviceaddr", "rendertarget",
	}
	var s string
	for i, n := range names {
		if u&(1<<i) != 0 {
			if s != "" {
				s += "|"
			}
			s += n
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

// Buffer is the interface that defines a GPU buffer.
type Buffer interface {
	Destroyer

	// Visible returns whether the buffer is host visible.
	Visible() bool

	// Bytes returns a slice of length Cap referring to the
	// underlying data. If the buffer is not host visible,
	// it returns nil instead.
	// The slice is valid for the lifetime of the buffer.
	// Host visible memory is coherent, so writes need no
	// flushing.
	Bytes() []byte

	// Cap returns the capacity of the buffer in bytes,
	// which may be greater than the size requested during
	// buffer creation.
	Cap() int64

	// Addr returns the device address of the buffer, or
	// zero if it was not created with UDeviceAddr.
	Addr() uint64
}

// PixelFmt describes the format of a pixel.
type PixelFmt int

// Pixel formats.
const (
	RGBA8un PixelFmt = iota
	RGBA8sRGB
	BGRA8un
	BGRA8sRGB
	RGBA16f
	RGBA32f
	FInvalid PixelFmt = -1
)

// Size returns the number of bytes in a pixel of format f.
func (f PixelFmt) Size() int {
	switch f {
	case RGBA8un, RGBA8sRGB, BGRA8un, BGRA8sRGB:
		return 4
	case RGBA16f:
		return 8
	case RGBA32f:
		return 16
	}
	return 0
}

// Dim3D is a three-dimensional size.
type Dim3D struct {
	Width, Height, Depth int
}

// Image is the interface that defines a GPU image.
type Image interface {
	Destroyer

	// NewView creates a new 2D image view.
	// All views created from a given image must be
	// destroyed before the image itself is destroyed.
	NewView() (ImageView, error)

	// Format returns the pixel format of the image.
	Format() PixelFmt

	// Size returns the extent of the image.
	Size() Dim3D
}

// ImageView is the interface that defines a typed view of
// an Image resource.
type ImageView interface {
	Destroyer
}

// Limits describes implementation limits.
type Limits struct {
	MaxImage2D int

	MaxDescBufferRange   int64
	MaxDescConstantRange int64

	// Ray tracing pipeline properties.
	ShaderGroupHandleSize      int
	ShaderGroupHandleAlignment int
	ShaderGroupBaseAlignment   int
	MaxRayRecursion            int
	MaxRayDispatch             int

	// Acceleration structure properties.
	MinScratchAlignment int
}
