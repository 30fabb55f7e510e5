// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"image"

	"github.com/pkg/errors"

	"github.com/gviegas/raytrace/camera"
	"github.com/gviegas/raytrace/driver"
	"github.com/gviegas/raytrace/engine/internal/shader"
	"github.com/gviegas/raytrace/linear"
	"github.com/gviegas/raytrace/scene"
)

func newRendErr(s string) error { return errors.New("renderer: " + s) }

// Format of the storage image that rays are traced into.
const targetFmt = driver.RGBA8un

// target is the storage image that rays are traced into.
type target struct {
	img  driver.Image
	view driver.ImageView
	size driver.Dim3D
}

func (t *target) destroy() {
	if t.view != nil {
		t.view.Destroy()
	}
	if t.img != nil {
		t.img.Destroy()
	}
	*t = target{}
}

// Renderer is a real-time ray tracing renderer.
// It is not safe for concurrent use.
type Renderer struct {
	gpu driver.GPU
	// nil for offscreen renderers.
	sc driver.Swapchain

	ar    arena
	scn   *sceneData
	accel *accelSet
	pl    *pipeline
	tgt   target
	rb    driver.Buffer

	slots  [MaxFrame]slot
	cur    int
	nframe int64

	cam   *camera.Camera
	set   Settings
	in    input
	light linear.V4

	resize        bool
	width, height int
}

// NewOnscreen creates a renderer that presents to the
// surface that gpu was opened with.
func NewOnscreen(gpu driver.GPU, scn *scene.Scene, cfg *Config) (*Renderer, error) {
	pres, ok := gpu.(driver.Presenter)
	if !ok {
		return nil, errors.Wrap(driver.ErrCannotPresent, "renderer: NewOnscreen requires driver.Presenter")
	}
	sc, err := pres.NewSwapchain(MaxFrame + 1)
	if err != nil {
		return nil, errors.Wrap(err, "renderer: creating swapchain")
	}
	sz := sc.Size()
	r, err := newRenderer(gpu, sc, scn, cfg, sz.Width, sz.Height)
	if err != nil {
		sc.Destroy()
		return nil, err
	}
	return r, nil
}

// NewOffscreen creates a renderer that traces into an
// image of cfg.Width by cfg.Height pixels.
// Use Snapshot to read the result.
func NewOffscreen(gpu driver.GPU, scn *scene.Scene, cfg *Config) (*Renderer, error) {
	return newRenderer(gpu, nil, scn, cfg, cfg.Width, cfg.Height)
}

func newRenderer(gpu driver.GPU, sc driver.Swapchain, scn *scene.Scene, cfg *Config, width, height int) (r *Renderer, err error) {
	if err = cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "renderer: invalid config")
	}
	if err = scn.Validate(); err != nil {
		return nil, errors.Wrap(err, "renderer: invalid scene")
	}
	cam := camera.New(linear.V3(cfg.CameraPos))
	cam.Speed = cfg.MoveSpeed
	cam.Sensitivity = cfg.MouseSensitivity
	r = &Renderer{
		gpu:    gpu,
		sc:     sc,
		cam:    cam,
		set:    cfg.Settings,
		light:  linear.V4{cfg.LightPos[0], cfg.LightPos[1], cfg.LightPos[2], 1},
		width:  width,
		height: height,
	}
	defer func() {
		if err != nil {
			r.sc = nil
			r.Close()
			r = nil
		}
	}()

	if r.scn, err = uploadScene(gpu, &r.ar, scn); err != nil {
		return
	}
	if r.accel, err = buildAccel(gpu, &r.ar, scn, r.scn); err != nil {
		return
	}
	if r.pl, err = newPipeline(gpu, &r.ar, cfg); err != nil {
		return
	}
	for i := range r.slots {
		if r.slots[i], err = newSlot(gpu); err != nil {
			err = errors.Wrap(err, "renderer: frame slot")
			return
		}
		r.pl.heap.SetAccel(i, shader.AccelNr, r.accel.tlas)
		r.pl.heap.SetBuffer(i, shader.FrameNr, r.slots[i].frame, 0, int64(shader.FrameSize))
		r.pl.heap.SetBuffer(i, shader.ObjectNr, r.scn.object, 0, r.scn.objectSize())
	}
	if width == 0 || height == 0 {
		// Minimized window; the target is created when it
		// gets a non-zero extent.
		r.resize = true
		return
	}
	err = r.newTarget(width, height)
	return
}

// newTarget replaces the storage image with a new one of
// the given extent, binds it and transitions it to the
// layout used for tracing.
// The GPU must be idle.
func (r *Renderer) newTarget(width, height int) error {
	lim := r.gpu.Limits()
	if lim.MaxRayDispatch > 0 && width*height > lim.MaxRayDispatch {
		return newRendErr("target extent exceeds ray dispatch limit")
	}
	r.tgt.destroy()
	size := driver.Dim3D{Width: width, Height: height, Depth: 1}
	img, err := r.gpu.NewImage(targetFmt, size, driver.UStorage|driver.UCopySrc)
	if err != nil {
		return errors.Wrap(err, "renderer: storage image")
	}
	view, err := img.NewView()
	if err != nil {
		img.Destroy()
		return errors.Wrap(err, "renderer: storage image view")
	}
	r.tgt = target{img: img, view: view, size: size}
	for i := range r.slots {
		r.pl.heap.SetImage(i, shader.ImageNr, view)
	}
	err = oneShot(r.gpu, func(cb driver.CmdBuffer) {
		cb.Transition([]driver.Transition{{
			Barrier: driver.Barrier{
				SyncBefore:   driver.STop,
				SyncAfter:    driver.SRayTracing,
				AccessBefore: driver.ANone,
				AccessAfter:  driver.AShaderWrite,
			},
			LayoutBefore: driver.LUndefined,
			LayoutAfter:  driver.LCommon,
			Img:          img,
		}})
	})
	if err != nil {
		return errors.Wrap(err, "renderer: storage image transition")
	}
	if r.rb != nil {
		r.rb.Destroy()
		r.rb = nil
	}
	logger.Infof("render target is %dx%d", width, height)
	return nil
}

// recreate handles a pending resize.
// It returns false if rendering must be skipped because
// the extent is zero.
func (r *Renderer) recreate() (bool, error) {
	if r.width == 0 || r.height == 0 {
		return false, nil
	}
	if err := r.gpu.WaitIdle(); err != nil {
		return false, err
	}
	w, h := r.width, r.height
	if r.sc != nil {
		if err := r.sc.Recreate(); err != nil {
			if errors.Is(err, driver.ErrZeroExtent) {
				logger.Debugf("window has zero area, frame skipped")
				return false, nil
			}
			return false, errors.Wrap(err, "renderer: recreating swapchain")
		}
		sz := r.sc.Size()
		w, h = sz.Width, sz.Height
		r.width, r.height = w, h
	}
	if err := r.newTarget(w, h); err != nil {
		return false, err
	}
	r.resize = false
	return true, nil
}

// Resize informs r that the window's framebuffer has a
// new extent.
// Resources are recreated by the next call to Render.
// A zero extent pauses rendering.
func (r *Renderer) Resize(width, height int) {
	if width < 0 || height < 0 {
		return
	}
	logger.Debugf("resize to %dx%d requested", width, height)
	r.width, r.height = width, height
	r.resize = true
}

// HandleInput records a key press or release.
// Movement keys move the camera once per frame while
// held. Keys 1 through 4 toggle soft shadows,
// reflections, refraction and subsurface scattering
// when pressed.
func (r *Renderer) HandleInput(key Key, pressed bool) { r.in.key(key, pressed, &r.set) }

// HandlePointer records a pointer motion, in pixels.
// It rotates the camera on the next frame.
func (r *Renderer) HandlePointer(dx, dy float32) { r.in.pointer(dx, dy) }

// Settings returns the current effect toggles.
func (r *Renderer) Settings() Settings { return r.set }

// Camera returns the camera.
func (r *Renderer) Camera() *camera.Camera { return r.cam }

// Frames returns the number of frames submitted so far.
func (r *Renderer) Frames() int64 { return r.nframe }

// Size returns the extent of the render target.
func (r *Renderer) Size() (width, height int) { return r.tgt.size.Width, r.tgt.size.Height }

// Snapshot waits for the GPU to become idle and copies
// the last rendered frame into a new image.
func (r *Renderer) Snapshot() (*image.RGBA, error) {
	if r.tgt.img == nil {
		return nil, newRendErr("no render target")
	}
	if err := r.gpu.WaitIdle(); err != nil {
		return nil, err
	}
	sz := r.tgt.size
	n := int64(sz.Width * sz.Height * targetFmt.Size())
	if r.rb == nil {
		rb, err := newBuffer(r.gpu, "readback", n, driver.HostVisible, driver.UCopyDst)
		if err != nil {
			return nil, err
		}
		r.rb = rb
	}
	src := toCopySrc
	src.Img = r.tgt.img
	gen := toGeneral
	gen.Img = r.tgt.img
	err := oneShot(r.gpu, func(cb driver.CmdBuffer) {
		cb.Transition([]driver.Transition{src})
		cb.CopyImgToBuf(&driver.ImgBufCopy{
			Img:  r.tgt.img,
			Size: sz,
			Buf:  r.rb,
		})
		cb.Transition([]driver.Transition{gen})
		cb.Barrier([]driver.Barrier{{
			SyncBefore:   driver.SCopy,
			SyncAfter:    driver.SHost,
			AccessBefore: driver.ACopyWrite,
			AccessAfter:  driver.AHostRead,
		}})
	})
	if err != nil {
		return nil, errors.Wrap(err, "renderer: snapshot")
	}
	img := image.NewRGBA(image.Rect(0, 0, sz.Width, sz.Height))
	copy(img.Pix, r.rb.Bytes()[:n])
	return img, nil
}

// Close waits for the GPU to become idle and destroys
// every resource of r, including the swapchain.
func (r *Renderer) Close() {
	if r.gpu == nil {
		return
	}
	if err := r.gpu.WaitIdle(); err != nil {
		logger.Warningf("WaitIdle failed on close: %v", err)
	}
	for i := range r.slots {
		r.slots[i].destroy()
	}
	if r.rb != nil {
		r.rb.Destroy()
	}
	r.tgt.destroy()
	r.ar.free()
	if r.sc != nil {
		r.sc.Destroy()
	}
	*r = Renderer{}
}
