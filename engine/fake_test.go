// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gviegas/raytrace/driver"
	"github.com/gviegas/raytrace/engine/internal/shader"
)

// fakeGPU is a driver.GPU that executes nothing.
// It records the calls that matter for ordering and
// keeps track of live resources.
type fakeGPU struct {
	lim    driver.Limits
	events []string
	ids    int
	addr   uint64
	live   map[driver.Destroyer]string
	bufs   []*fakeBuffer

	builds  []fakeBuild
	submits []driver.Submission
	sc      *fakeSwapchain

	// Window extent reported on swapchain recreation.
	winW, winH int

	// Error injection.
	sizesErr map[int]error
	nsizes   int
}

// fakeBuild is a recorded acceleration structure build.
type fakeBuild struct {
	dst     *fakeAccel
	geom    driver.AccelGeom
	scratch uint64
	inst    []driver.AccelInstance
}

func newFakeGPU() *fakeGPU {
	return &fakeGPU{
		lim: driver.Limits{
			MaxImage2D:                 16384,
			MaxDescBufferRange:         1 << 27,
			MaxDescConstantRange:       65536,
			ShaderGroupHandleSize:      32,
			ShaderGroupHandleAlignment: 32,
			ShaderGroupBaseAlignment:   64,
			MaxRayRecursion:            31,
			MaxRayDispatch:             1 << 30,
			MinScratchAlignment:        128,
		},
		addr: 1 << 16,
		live: make(map[driver.Destroyer]string),
		winW: 800,
		winH: 600,
	}
}

func (g *fakeGPU) event(format string, args ...any) {
	g.events = append(g.events, fmt.Sprintf(format, args...))
}

func (g *fakeGPU) newID() int { g.ids++; return g.ids }

func (g *fakeGPU) add(d driver.Destroyer, what string) { g.live[d] = what }

func (g *fakeGPU) remove(d driver.Destroyer) {
	if _, ok := g.live[d]; !ok {
		panic("fakeGPU: double destroy")
	}
	delete(g.live, d)
}

// liveOf counts the live resources named what.
func (g *fakeGPU) liveOf(what string) (n int) {
	for _, w := range g.live {
		if w == what {
			n++
		}
	}
	return
}

// bufferAt returns the buffer and offset of addr.
func (g *fakeGPU) bufferAt(addr uint64) (*fakeBuffer, int64) {
	for _, b := range g.bufs {
		if b.addr != 0 && addr >= b.addr && addr < b.addr+uint64(len(b.data)) {
			return b, int64(addr - b.addr)
		}
	}
	return nil, 0
}

func (g *fakeGPU) Driver() driver.Driver { return nil }

func (g *fakeGPU) Commit(cb []driver.CmdBuffer, ch chan<- error) {
	for _, c := range cb {
		g.event("commit cb%d", c.(*fakeCmdBuffer).id)
	}
	ch <- nil
}

func (g *fakeGPU) Submit(s *driver.Submission) error {
	g.submits = append(g.submits, *s)
	g.event("submit cb%d", s.Cmd[0].(*fakeCmdBuffer).id)
	return nil
}

func (g *fakeGPU) WaitIdle() error {
	g.event("idle")
	for d := range g.live {
		if f, ok := d.(*fakeFence); ok {
			f.signaled = true
		}
	}
	return nil
}

func (g *fakeGPU) NewCmdBuffer() (driver.CmdBuffer, error) {
	cb := &fakeCmdBuffer{g: g, id: g.newID()}
	g.add(cb, "cmdbuffer")
	return cb, nil
}

func (g *fakeGPU) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	c := &fakeShaderCode{g: g, data: data}
	g.add(c, "shader")
	return c, nil
}

func (g *fakeGPU) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) {
	h := &fakeHeap{g: g, ds: ds}
	g.add(h, "heap")
	return h, nil
}

func (g *fakeGPU) NewDescTable(dh []driver.DescHeap) (driver.DescTable, error) {
	t := &fakeTable{g: g, dh: dh}
	g.add(t, "table")
	return t, nil
}

func (g *fakeGPU) NewRTPipeline(state *driver.RTState) (driver.Pipeline, error) {
	p := &fakePipeline{g: g, state: *state}
	g.add(p, "pipeline")
	return p, nil
}

func (g *fakeGPU) NewBuffer(size int64, class driver.MemClass, usg driver.Usage) (driver.Buffer, error) {
	b := &fakeBuffer{g: g, data: make([]byte, size), class: class, usg: usg}
	if usg&driver.UDeviceAddr != 0 {
		// Addresses are only 16-byte aligned.
		b.addr = g.addr + 16
		g.addr += uint64(size) + 4096
	}
	g.bufs = append(g.bufs, b)
	g.add(b, "buffer")
	return b, nil
}

func (g *fakeGPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, usg driver.Usage) (driver.Image, error) {
	if size.Width > g.lim.MaxImage2D || size.Height > g.lim.MaxImage2D {
		return nil, &driver.AllocError{Usage: usg, Err: errors.New("too large")}
	}
	img := &fakeImage{g: g, id: g.newID(), pf: pf, size: size}
	g.add(img, "image")
	return img, nil
}

func (g *fakeGPU) AccelSizes(geom *driver.AccelGeom) (driver.AccelSizes, error) {
	n := g.nsizes
	g.nsizes++
	if err := g.sizesErr[n]; err != nil {
		return driver.AccelSizes{}, err
	}
	return driver.AccelSizes{Storage: 1024, Scratch: 512}, nil
}

func (g *fakeGPU) NewAccel(typ driver.AccelType, buf driver.Buffer, off, size int64) (driver.Accel, error) {
	b := buf.(*fakeBuffer)
	if b.usg&driver.UAccelStorage == 0 {
		return nil, errors.New("fakeGPU: buffer lacks UAccelStorage")
	}
	a := &fakeAccel{g: g, typ: typ, addr: b.addr + uint64(off) + 1<<40}
	g.add(a, "accel")
	return a, nil
}

func (g *fakeGPU) NewFence(signaled bool) (driver.Fence, error) {
	f := &fakeFence{g: g, id: g.newID(), signaled: signaled}
	g.add(f, "fence")
	return f, nil
}

func (g *fakeGPU) NewSemaphore() (driver.Semaphore, error) {
	s := &fakeSemaphore{g: g, id: g.newID()}
	g.add(s, "semaphore")
	return s, nil
}

func (g *fakeGPU) Limits() driver.Limits { return g.lim }

func (g *fakeGPU) NewSwapchain(imageCount int) (driver.Swapchain, error) {
	if g.sc != nil {
		return nil, errors.New("fakeGPU: swapchain exists")
	}
	sc := &fakeSwapchain{g: g, size: driver.Dim3D{Width: g.winW, Height: g.winH, Depth: 1}}
	for i := 0; i < imageCount; i++ {
		sc.imgs = append(sc.imgs, &fakeImage{g: g, id: g.newID(), pf: driver.BGRA8un, size: sc.size})
	}
	g.sc = sc
	g.add(sc, "swapchain")
	return sc, nil
}

type fakeBuffer struct {
	g     *fakeGPU
	data  []byte
	class driver.MemClass
	usg   driver.Usage
	addr  uint64
}

func (b *fakeBuffer) Destroy()     { b.g.remove(b) }
func (b *fakeBuffer) Visible() bool { return b.class == driver.HostVisible }
func (b *fakeBuffer) Cap() int64    { return int64(len(b.data)) }
func (b *fakeBuffer) Addr() uint64  { return b.addr }

func (b *fakeBuffer) Bytes() []byte {
	if !b.Visible() {
		return nil
	}
	return b.data
}

type fakeImage struct {
	g    *fakeGPU
	id   int
	pf   driver.PixelFmt
	size driver.Dim3D
}

func (m *fakeImage) Destroy() {
	if m.g.sc != nil {
		for _, x := range m.g.sc.imgs {
			if x == m {
				return
			}
		}
	}
	m.g.remove(m)
}

func (m *fakeImage) NewView() (driver.ImageView, error) {
	v := &fakeView{g: m.g, img: m}
	m.g.add(v, "view")
	return v, nil
}

func (m *fakeImage) Format() driver.PixelFmt { return m.pf }
func (m *fakeImage) Size() driver.Dim3D      { return m.size }

type fakeView struct {
	g   *fakeGPU
	img *fakeImage
}

func (v *fakeView) Destroy() { v.g.remove(v) }

type fakeAccel struct {
	g    *fakeGPU
	typ  driver.AccelType
	addr uint64
}

func (a *fakeAccel) Destroy()               { a.g.remove(a) }
func (a *fakeAccel) Type() driver.AccelType { return a.typ }
func (a *fakeAccel) Addr() uint64           { return a.addr }

type fakeFence struct {
	g        *fakeGPU
	id       int
	signaled bool
}

func (f *fakeFence) Destroy() { f.g.remove(f) }

func (f *fakeFence) Wait() error {
	f.g.event("wait fence%d", f.id)
	if !f.signaled {
		// Submitted work completes immediately.
		f.signaled = true
	}
	return nil
}

func (f *fakeFence) Reset() error {
	f.g.event("reset fence%d", f.id)
	f.signaled = false
	return nil
}

type fakeSemaphore struct {
	g  *fakeGPU
	id int
}

func (s *fakeSemaphore) Destroy() { s.g.remove(s) }

type fakeShaderCode struct {
	g    *fakeGPU
	data []byte
}

func (c *fakeShaderCode) Destroy() { c.g.remove(c) }

type fakeHeap struct {
	g      *fakeGPU
	ds     []driver.Descriptor
	n      int
	bufs   map[[2]int]driver.Buffer
	images map[[2]int]driver.ImageView
	accels map[[2]int]driver.Accel
}

func (h *fakeHeap) Destroy() { h.g.remove(h) }

func (h *fakeHeap) New(n int) error {
	h.n = n
	h.bufs = make(map[[2]int]driver.Buffer)
	h.images = make(map[[2]int]driver.ImageView)
	h.accels = make(map[[2]int]driver.Accel)
	return nil
}

func (h *fakeHeap) SetBuffer(cpy, nr int, buf driver.Buffer, off, size int64) {
	h.bufs[[2]int{cpy, nr}] = buf
}

func (h *fakeHeap) SetImage(cpy, nr int, iv driver.ImageView) { h.images[[2]int{cpy, nr}] = iv }
func (h *fakeHeap) SetAccel(cpy, nr int, acc driver.Accel)    { h.accels[[2]int{cpy, nr}] = acc }
func (h *fakeHeap) Len() int                                  { return h.n }

type fakeTable struct {
	g  *fakeGPU
	dh []driver.DescHeap
}

func (t *fakeTable) Destroy()                    { t.g.remove(t) }
func (t *fakeTable) Heap(i int) driver.DescHeap { return t.dh[i] }

type fakePipeline struct {
	g     *fakeGPU
	state driver.RTState
}

func (p *fakePipeline) Destroy() { p.g.remove(p) }

// GroupHandles fills the handle of group i with i+1.
func (p *fakePipeline) GroupHandles(first, n int) ([]byte, error) {
	hs := p.g.lim.ShaderGroupHandleSize
	b := make([]byte, n*hs)
	for i := 0; i < n; i++ {
		for j := 0; j < hs; j++ {
			b[i*hs+j] = byte(first + i + 1)
		}
	}
	return b, nil
}

// fakeCmdBuffer records command names.
type fakeCmdBuffer struct {
	g    *fakeGPU
	id   int
	cmds []string

	heapCopy []int
	dispatch [3]int
	trans    []driver.Transition
	blits    []driver.Blit
}

func (c *fakeCmdBuffer) Destroy() { c.g.remove(c) }

func (c *fakeCmdBuffer) Begin() error {
	c.cmds = c.cmds[:0]
	c.trans = c.trans[:0]
	c.blits = c.blits[:0]
	c.cmds = append(c.cmds, "begin")
	return nil
}

func (c *fakeCmdBuffer) SetPipeline(pl driver.Pipeline) { c.cmds = append(c.cmds, "pipeline") }

func (c *fakeCmdBuffer) SetDescTable(table driver.DescTable, start int, heapCopy []int) {
	c.cmds = append(c.cmds, "desc")
	c.heapCopy = append([]int(nil), heapCopy...)
}

func (c *fakeCmdBuffer) TraceRays(sbt *driver.ShaderTable, width, height, depth int) {
	c.cmds = append(c.cmds, "trace")
	c.dispatch = [3]int{width, height, depth}
}

func (c *fakeCmdBuffer) BuildAccel(dst driver.Accel, geom *driver.AccelGeom, scratch uint64) {
	c.cmds = append(c.cmds, "build")
	b := fakeBuild{dst: dst.(*fakeAccel), geom: *geom, scratch: scratch}
	if geom.Type == driver.ATop {
		buf, off := c.g.bufferAt(geom.Instances.Addr)
		for i := 0; i < geom.Instances.Count; i++ {
			var in driver.AccelInstance
			in.Decode(buf.data[off+int64(i*driver.InstanceSize):])
			b.inst = append(b.inst, in)
		}
	}
	c.g.builds = append(c.g.builds, b)
}

func (c *fakeCmdBuffer) Barrier(b []driver.Barrier) { c.cmds = append(c.cmds, "barrier") }

func (c *fakeCmdBuffer) Transition(t []driver.Transition) {
	c.cmds = append(c.cmds, "transition")
	c.trans = append(c.trans, t...)
}

func (c *fakeCmdBuffer) Blit(param *driver.Blit) {
	c.cmds = append(c.cmds, "blit")
	c.blits = append(c.blits, *param)
}

// CopyImgToBuf writes the byte index of every byte,
// modulo 251, into the buffer.
func (c *fakeCmdBuffer) CopyImgToBuf(param *driver.ImgBufCopy) {
	c.cmds = append(c.cmds, "copy")
	b := param.Buf.(*fakeBuffer).data[param.BufOff:]
	n := param.Size.Width * param.Size.Height * param.Img.Format().Size()
	for i := 0; i < n; i++ {
		b[i] = byte(i % 251)
	}
}

func (c *fakeCmdBuffer) End() error {
	c.cmds = append(c.cmds, "end")
	return nil
}

func (c *fakeCmdBuffer) Reset() error {
	c.g.event("reset cb%d", c.id)
	c.cmds = c.cmds[:0]
	return nil
}

// fakeSwapchain cycles through its images.
// Errors in nextErr, presentErr and recreateErr are
// consumed one per call.
type fakeSwapchain struct {
	g           *fakeGPU
	imgs        []*fakeImage
	size        driver.Dim3D
	next        int
	nextErr     []error
	presentErr  []error
	recreateErr []error
	recreated   int
}

func (s *fakeSwapchain) Destroy() {
	s.g.remove(s)
	s.g.sc = nil
}

func (s *fakeSwapchain) Images() []driver.Image {
	imgs := make([]driver.Image, len(s.imgs))
	for i := range s.imgs {
		imgs[i] = s.imgs[i]
	}
	return imgs
}

func (s *fakeSwapchain) Next(sem driver.Semaphore) (int, error) {
	if len(s.nextErr) > 0 {
		err := s.nextErr[0]
		s.nextErr = s.nextErr[1:]
		if err != nil {
			s.g.event("next failed")
			return 0, err
		}
	}
	i := s.next
	s.next = (s.next + 1) % len(s.imgs)
	s.g.event("next %d sem%d", i, sem.(*fakeSemaphore).id)
	return i, nil
}

func (s *fakeSwapchain) Present(index int, wait driver.Semaphore) error {
	s.g.event("present %d sem%d", index, wait.(*fakeSemaphore).id)
	if len(s.presentErr) > 0 {
		err := s.presentErr[0]
		s.presentErr = s.presentErr[1:]
		return err
	}
	return nil
}

func (s *fakeSwapchain) Recreate() error {
	s.g.event("recreate")
	if len(s.recreateErr) > 0 {
		err := s.recreateErr[0]
		s.recreateErr = s.recreateErr[1:]
		return err
	}
	s.recreated++
	s.size = driver.Dim3D{Width: s.g.winW, Height: s.g.winH, Depth: 1}
	for _, m := range s.imgs {
		m.size = s.size
	}
	return nil
}

func (s *fakeSwapchain) Format() driver.PixelFmt { return driver.BGRA8un }
func (s *fakeSwapchain) Size() driver.Dim3D      { return s.size }

// testConfig returns the default configuration with a
// shader directory holding precompiled SPIR-V, so no
// compiler is needed.
func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	for p := shader.Prog(0); p < shader.NProg; p++ {
		spv := []byte{0x03, 0x02, 0x23, 0x07, byte(p), 0, 0, 0}
		if err := os.WriteFile(filepath.Join(dir, p.File()+".spv"), spv, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := DefaultConfig()
	cfg.ShaderDir = dir
	cfg.Compiler = filepath.Join(dir, "no-such-compiler")
	cfg.Width = 64
	cfg.Height = 48
	return &cfg
}
