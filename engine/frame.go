// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"github.com/pkg/errors"

	"github.com/gviegas/raytrace/driver"
	"github.com/gviegas/raytrace/engine/internal/shader"
)

// slot is the per-frame state of a frame in flight.
// The fence is signaled when the GPU is done with the
// slot, so cb and frame can be reused only after
// waiting on it.
type slot struct {
	cb    driver.CmdBuffer
	avail driver.Semaphore
	done  driver.Semaphore
	fence driver.Fence
	frame driver.Buffer
}

// newSlot creates a slot whose fence is initially
// signaled.
func newSlot(gpu driver.GPU) (s slot, err error) {
	defer func() {
		if err != nil {
			s.destroy()
		}
	}()
	if s.cb, err = gpu.NewCmdBuffer(); err != nil {
		return
	}
	if s.avail, err = gpu.NewSemaphore(); err != nil {
		return
	}
	if s.done, err = gpu.NewSemaphore(); err != nil {
		return
	}
	if s.fence, err = gpu.NewFence(true); err != nil {
		return
	}
	s.frame, err = newBuffer(gpu, "frame", int64(shader.FrameSize), driver.HostVisible, driver.UConstant)
	return
}

func (s *slot) destroy() {
	for _, d := range [...]driver.Destroyer{s.cb, s.avail, s.done, s.fence, s.frame} {
		if d != nil {
			d.Destroy()
		}
	}
	*s = slot{}
}

// writeFrame writes the per-frame uniform of s.
func (r *Renderer) writeFrame(s *slot) error {
	view := r.cam.View()
	aspect := float32(r.tgt.size.Width) / float32(r.tgt.size.Height)
	proj := r.cam.Proj(aspect)
	var l shader.FrameLayout
	view.Invert(&view)
	proj.Invert(&proj)
	l.SetViewInv(&view)
	l.SetProjInv(&proj)
	l.SetLight(&r.light)
	set := r.set.Vec()
	l.SetSettings(&set)
	l.SetMaxDepth(r.pl.recursion - 1)
	b := make([]byte, shader.FrameSize)
	l.Encode(b)
	return upload(s.frame, 0, b)
}

// Transitions of the storage image around the copy to
// a swapchain image or readback buffer.
var (
	toCopySrc = driver.Transition{
		Barrier: driver.Barrier{
			SyncBefore:   driver.SRayTracing,
			SyncAfter:    driver.SCopy,
			AccessBefore: driver.AShaderWrite,
			AccessAfter:  driver.ACopyRead,
		},
		LayoutBefore: driver.LCommon,
		LayoutAfter:  driver.LCopySrc,
	}
	toGeneral = driver.Transition{
		Barrier: driver.Barrier{
			SyncBefore:   driver.SCopy,
			SyncAfter:    driver.SRayTracing,
			AccessBefore: driver.ACopyRead,
			AccessAfter:  driver.AShaderWrite | driver.AShaderRead,
		},
		LayoutBefore: driver.LCopySrc,
		LayoutAfter:  driver.LCommon,
	}
)

// trace records the ray dispatch of slot r.cur into cb.
func (r *Renderer) trace(cb driver.CmdBuffer) {
	cb.SetPipeline(r.pl.pl)
	cb.SetDescTable(r.pl.table, 0, []int{r.cur})
	sz := r.tgt.size
	cb.TraceRays(&r.pl.st, sz.Width, sz.Height, 1)
}

// record records the commands of an onscreen frame that
// targets the swapchain image img.
func (r *Renderer) record(cb driver.CmdBuffer, img driver.Image) error {
	if err := cb.Begin(); err != nil {
		return err
	}
	r.trace(cb)

	src := toCopySrc
	src.Img = r.tgt.img
	cb.Transition([]driver.Transition{
		src,
		{
			Barrier: driver.Barrier{
				SyncBefore:   driver.SColorOutput,
				SyncAfter:    driver.SCopy,
				AccessBefore: driver.ANone,
				AccessAfter:  driver.ACopyWrite,
			},
			LayoutBefore: driver.LUndefined,
			LayoutAfter:  driver.LCopyDst,
			Img:          img,
		},
	})
	cb.Blit(&driver.Blit{
		From:     r.tgt.img,
		FromSize: r.tgt.size,
		To:       img,
		ToSize:   r.sc.Size(),
		Filter:   driver.FNearest,
	})
	gen := toGeneral
	gen.Img = r.tgt.img
	cb.Transition([]driver.Transition{
		{
			Barrier: driver.Barrier{
				SyncBefore:   driver.SCopy,
				SyncAfter:    driver.SBottom,
				AccessBefore: driver.ACopyWrite,
				AccessAfter:  driver.ANone,
			},
			LayoutBefore: driver.LCopyDst,
			LayoutAfter:  driver.LPresent,
			Img:          img,
		},
		gen,
	})
	return cb.End()
}

// begin waits for the current slot to become available
// and returns it.
func (r *Renderer) begin() (*slot, error) {
	s := &r.slots[r.cur]
	if err := s.fence.Wait(); err != nil {
		return nil, errors.Wrap(err, "engine: waiting for frame")
	}
	return s, nil
}

// prepare resets s and writes its uniform.
// s's fence must have been waited.
func (r *Renderer) prepare(s *slot) error {
	if err := s.fence.Reset(); err != nil {
		return err
	}
	if err := s.cb.Reset(); err != nil {
		return err
	}
	r.in.apply(r.cam)
	return r.writeFrame(s)
}

// advance moves to the next slot.
func (r *Renderer) advance() {
	r.nframe++
	r.cur = (r.cur + 1) % MaxFrame
}

// Render renders a frame.
// An onscreen renderer presents the frame. An out of
// date swapchain causes the frame to be skipped and the
// swapchain to be recreated on the next call; this is
// not an error.
// An offscreen renderer only traces into its target,
// which Snapshot reads back.
func (r *Renderer) Render() error {
	if r.resize {
		ok, err := r.recreate()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	if r.sc == nil {
		return r.renderOffscreen()
	}

	s, err := r.begin()
	if err != nil {
		return err
	}
	idx, err := r.sc.Next(s.avail)
	if err != nil {
		if driver.IsRecoverable(err) {
			logger.Debugf("swapchain out of date on acquire")
			r.resize = true
			return nil
		}
		return errors.Wrap(err, "engine: acquiring swapchain image")
	}
	if err = r.prepare(s); err != nil {
		return err
	}
	if err = r.record(s.cb, r.sc.Images()[idx]); err != nil {
		return err
	}
	err = r.gpu.Submit(&driver.Submission{
		Cmd:      []driver.CmdBuffer{s.cb},
		Wait:     []driver.Semaphore{s.avail},
		WaitSync: []driver.Sync{driver.SColorOutput},
		Signal:   []driver.Semaphore{s.done},
		Fence:    s.fence,
	})
	if err != nil {
		return errors.Wrap(err, "engine: submitting frame")
	}
	err = r.sc.Present(idx, s.done)
	r.advance()
	if err != nil {
		if driver.IsRecoverable(err) {
			logger.Debugf("swapchain out of date on present")
			r.resize = true
			return nil
		}
		return err
	}
	return nil
}

// renderOffscreen traces a frame without presenting.
func (r *Renderer) renderOffscreen() error {
	s, err := r.begin()
	if err != nil {
		return err
	}
	if err = r.prepare(s); err != nil {
		return err
	}
	if err = s.cb.Begin(); err != nil {
		return err
	}
	// Frames in flight share the target.
	s.cb.Barrier([]driver.Barrier{{
		SyncBefore:   driver.SRayTracing | driver.SCopy,
		SyncAfter:    driver.SRayTracing,
		AccessBefore: driver.AShaderWrite | driver.ACopyRead,
		AccessAfter:  driver.AShaderWrite,
	}})
	r.trace(s.cb)
	if err = s.cb.End(); err != nil {
		return err
	}
	err = r.gpu.Submit(&driver.Submission{
		Cmd:   []driver.CmdBuffer{s.cb},
		Fence: s.fence,
	})
	if err != nil {
		return errors.Wrap(err, "engine: submitting frame")
	}
	r.advance()
	return nil
}
