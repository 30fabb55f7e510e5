// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/gviegas/raytrace/engine"
)

const (
	title       = "raytrace"
	fpsInterval = 500 * time.Millisecond
)

var keyMap = map[glfw.Key]engine.Key{
	glfw.KeyW: engine.KeyW,
	glfw.KeyA: engine.KeyA,
	glfw.KeyS: engine.KeyS,
	glfw.KeyD: engine.KeyD,
	glfw.KeyQ: engine.KeyQ,
	glfw.KeyE: engine.KeyE,
	glfw.Key1: engine.Key1,
	glfw.Key2: engine.Key2,
	glfw.Key3: engine.Key3,
	glfw.Key4: engine.Key4,
}

const banner = `Controls:
  W/A/S/D  move    Q/E  down/up    mouse  look
  1 soft shadows   2 reflections   3 refraction   4 subsurface
  Esc quit`

// run renders interactively in a window.
func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	scn := loadScene(ctx)

	// glfw must be called from the main thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "initializing glfw")
	}
	defer glfw.Terminate()
	if !glfw.VulkanSupported() {
		return errors.New("glfw: Vulkan is not supported on this system")
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, title, nil, nil)
	if err != nil {
		return errors.Wrap(err, "creating window")
	}
	defer win.Destroy()

	drv, gpu, err := engine.Open(cfg.Driver, win)
	if err != nil {
		return err
	}
	defer drv.Close()
	r, err := engine.NewOnscreen(gpu, scn, cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	win.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
			return
		}
		k, ok := keyMap[key]
		if !ok {
			return
		}
		switch action {
		case glfw.Press:
			r.HandleInput(k, true)
		case glfw.Release:
			r.HandleInput(k, false)
		}
	})
	win.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	var lastX, lastY float64
	first := true
	win.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		if first {
			lastX, lastY, first = x, y, false
			return
		}
		r.HandlePointer(float32(x-lastX), float32(y-lastY))
		lastX, lastY = x, y
	})
	win.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		r.Resize(width, height)
	})

	fmt.Println(banner)
	logger.Noticef("rendering %d objects", len(scn.Objects))

	var nframe int
	last := time.Now()
	for !win.ShouldClose() {
		glfw.PollEvents()
		if err := r.Render(); err != nil {
			return err
		}
		nframe++
		if d := time.Since(last); d >= fpsInterval {
			fps := float64(nframe) / d.Seconds()
			win.SetTitle(fmt.Sprintf("%s - %.1f FPS", title, fps))
			logger.Debugf("%.1f FPS", fps)
			nframe = 0
			last = time.Now()
		}
	}
	return nil
}
