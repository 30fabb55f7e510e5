// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/gviegas/raytrace/driver"
	"github.com/gviegas/raytrace/driver/vk"
	"github.com/gviegas/raytrace/engine"
	"github.com/gviegas/raytrace/internal/log"
	"github.com/gviegas/raytrace/scene"
)

var logger = log.New("raytrace")

func setupLogging(ctx *cli.Context) error {
	if s := ctx.GlobalString("log-level"); s != "" {
		l, err := log.ParseLevel(s)
		if err != nil {
			return err
		}
		log.SetLevel(l)
	}
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}
	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
	return nil
}

// loadConfig loads the configuration named by the global
// config flag, or the default one, and applies the
// command's overrides.
func loadConfig(ctx *cli.Context) (*engine.Config, error) {
	cfg := engine.DefaultConfig()
	if path := ctx.GlobalString("config"); path != "" {
		var err error
		if cfg, err = engine.LoadConfig(path); err != nil {
			return nil, err
		}
		logger.Infof("configuration loaded from %s", path)
	}
	if w := ctx.Int("width"); w > 0 {
		cfg.Width = w
	}
	if h := ctx.Int("height"); h > 0 {
		cfg.Height = h
	}
	return &cfg, cfg.Validate()
}

// loadScene returns the scene selected by the command's
// flags.
func loadScene(ctx *cli.Context) *scene.Scene {
	if ctx.Bool("cube") {
		return scene.SingleCube()
	}
	return scene.Demo()
}

// hint returns advice for a fatal error, if any.
func hint(err error) string {
	var (
		aerr *driver.AllocError
		serr *driver.ShaderError
	)
	cause := pkgerrors.Cause(err)
	switch {
	case errors.Is(err, driver.ErrNoDevice):
		return "No device supports hardware ray tracing. Devices need a queue family with graphics and compute, and the extensions:\n  " +
			strings.Join(vk.Required(true), "\n  ") +
			"\nRun 'raytrace devices' to see what each device is missing."
	case errors.Is(err, driver.ErrNoCompatibleMemory):
		return "The device has no memory type that the renderer can use for this resource. " +
			"Ray tracing needs host-visible memory with device addresses; update the GPU driver or try another device."
	case errors.Is(err, driver.ErrIncompatible), errors.Is(err, driver.ErrNotInstalled):
		return "The Vulkan driver is missing or incompatible. This is common with MoltenVK (macOS) and outdated drivers. " +
			"Update the GPU driver and make sure it supports ray tracing."
	case errors.Is(err, driver.ErrNoHostMemory), errors.Is(err, driver.ErrNoDeviceMemory), errors.As(err, &aerr):
		return "Out of memory. Close other applications using the GPU or reduce the window size. " +
			"Integrated GPUs share a small amount of memory with the system, and memory fragmentation can also cause this."
	case errors.As(err, &serr):
		return "A shader could not be compiled. Install glslc (Vulkan SDK / shaderc) or set shader_dir in the configuration to a directory with precompiled .spv files."
	case errors.Is(err, driver.ErrSurfaceLost):
		return "The window surface was lost. Restart the program, or use 'raytrace frame' to render offscreen."
	case errors.Is(err, driver.ErrCannotPresent):
		return "The device cannot present to this window. Try 'raytrace frame' to render offscreen."
	case cause != err:
		return fmt.Sprintf("Cause: %v", cause)
	}
	return ""
}
