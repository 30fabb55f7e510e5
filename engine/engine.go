// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package engine implements real-time ray traced
// rendering of static scenes.
package engine

import (
	"bytes"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/gviegas/raytrace/internal/log"
)

var logger = log.New("engine")

const (
	// The maximum number of frames in flight.
	MaxFrame = 2

	// The ray recursion budget requested from the
	// pipeline, subject to device limits.
	MaxRecursion = 10

	// The smallest recursion depth that the shaders
	// can work with (primary and shadow rays).
	minRecursion = 2

	dflWidth  = 1280
	dflHeight = 720
)

// Config is used to configure the engine.
// The zero value is not valid; start from DefaultConfig.
type Config struct {
	// The initial extent of the render target.
	// Presenting renderers use the swapchain's
	// extent instead.
	//
	// Default is 1280x720.
	Width  int `toml:"width"`
	Height int `toml:"height"`

	// The maximum ray recursion depth.
	// It is clamped to the device limit.
	//
	// Default is MaxRecursion.
	MaxRecursion int `toml:"max_recursion"`

	// The world position of the point light.
	//
	// Default is (10, 10, 10).
	LightPos [3]float32 `toml:"light_pos"`

	// The initial effect toggles.
	//
	// Default is every effect enabled.
	Settings Settings `toml:"settings"`

	// A directory containing shader sources and/or
	// precompiled SPIR-V (<name>.spv) that replace the
	// embedded sources.
	//
	// Default is "" (embedded sources only).
	ShaderDir string `toml:"shader_dir"`

	// The glslc executable.
	//
	// Default is "glslc".
	Compiler string `toml:"compiler"`

	// The initial camera position.
	//
	// Default is (0, 2, 10).
	CameraPos [3]float32 `toml:"camera_pos"`

	// Camera speed in world units per frame and mouse
	// sensitivity in degrees per pixel.
	//
	// Default is 0.1 for both.
	MoveSpeed        float32 `toml:"move_speed"`
	MouseSensitivity float32 `toml:"mouse_sensitivity"`

	// The name of the GPU driver to open.
	//
	// Default is "vulkan".
	Driver string `toml:"driver"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Width:            dflWidth,
		Height:           dflHeight,
		MaxRecursion:     MaxRecursion,
		LightPos:         [3]float32{10, 10, 10},
		Settings:         Settings{true, true, true, true},
		Compiler:         "glslc",
		CameraPos:        [3]float32{0, 2, 10},
		MoveSpeed:        0.1,
		MouseSensitivity: 0.1,
		Driver:           "vulkan",
	}
}

// LoadConfig reads a TOML configuration file.
// Keys absent from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "engine: reading config")
	}
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "engine: decoding %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "engine: %s", path)
	}
	return cfg, nil
}

// Validate checks that cfg is usable.
func (cfg *Config) Validate() error {
	switch {
	case cfg.Width <= 0 || cfg.Height <= 0:
		return errors.Errorf("invalid extent %dx%d", cfg.Width, cfg.Height)
	case cfg.MaxRecursion < minRecursion:
		return errors.Errorf("max recursion must be at least %d (have %d)", minRecursion, cfg.MaxRecursion)
	case cfg.MoveSpeed < 0 || cfg.MouseSensitivity < 0:
		return errors.New("negative camera speed or sensitivity")
	}
	return nil
}
