// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"github.com/gviegas/raytrace/camera"
	"github.com/gviegas/raytrace/internal/bitm"
	"github.com/gviegas/raytrace/linear"
)

// Settings are the effect toggles seen by the shaders.
type Settings struct {
	SoftShadows bool `toml:"soft_shadows"`
	Reflections bool `toml:"reflections"`
	Refraction  bool `toml:"refraction"`
	SSS         bool `toml:"sss"`
}

// Vec returns s as a shader vector.
func (s *Settings) Vec() linear.V4 {
	b := func(x bool) float32 {
		if x {
			return 1
		}
		return 0
	}
	return linear.V4{b(s.SoftShadows), b(s.Reflections), b(s.Refraction), b(s.SSS)}
}

// toggle flips the i-th setting.
func (s *Settings) toggle(i int) {
	switch i {
	case 0:
		s.SoftShadows = !s.SoftShadows
	case 1:
		s.Reflections = !s.Reflections
	case 2:
		s.Refraction = !s.Refraction
	case 3:
		s.SSS = !s.SSS
	}
}

// Key is the type of keys understood by the renderer.
type Key int

// Keys.
const (
	KeyW Key = iota
	KeyA
	KeyS
	KeyD
	KeyQ
	KeyE
	Key1
	Key2
	Key3
	Key4

	NKey
)

// String implements fmt.Stringer.
func (k Key) String() string {
	if k < 0 || k >= NKey {
		return "Key(?)"
	}
	return [NKey]string{"W", "A", "S", "D", "Q", "E", "1", "2", "3", "4"}[k]
}

var moveKeys = [...]struct {
	key Key
	dir camera.Dir
}{
	{KeyW, camera.Forward},
	{KeyS, camera.Backward},
	{KeyA, camera.Left},
	{KeyD, camera.Right},
	{KeyE, camera.Up},
	{KeyQ, camera.Down},
}

// input accumulates window input between frames.
type input struct {
	held   bitm.Bitm[uint16]
	dx, dy float32
}

// key records a key event.
// Toggle keys change s on the press edge only, so key
// repeats and releases have no effect.
func (in *input) key(k Key, pressed bool, s *Settings) {
	if k < 0 || k >= NKey {
		return
	}
	if in.held.Cap() == 0 {
		in.held.Grow(1)
	}
	if !pressed {
		in.held.Unset(int(k))
		return
	}
	if in.held.IsSet(int(k)) {
		return
	}
	in.held.Set(int(k))
	if k >= Key1 && k <= Key4 {
		s.toggle(int(k - Key1))
	}
}

// pointer accumulates a pointer motion.
func (in *input) pointer(dx, dy float32) {
	in.dx += dx
	in.dy += dy
}

// apply moves cam once for every held movement key and
// rotates it by the accumulated pointer motion, which is
// then cleared.
func (in *input) apply(cam *camera.Camera) {
	if in.held.Len() > 0 {
		for _, m := range moveKeys {
			if in.held.IsSet(int(m.key)) {
				cam.Move(m.dir, 1)
			}
		}
	}
	if in.dx != 0 || in.dy != 0 {
		cam.Look(in.dx, in.dy)
		in.dx, in.dy = 0, 0
	}
}
