// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package camera implements a free-fly camera.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/gviegas/raytrace/linear"
)

// Default camera parameters.
const (
	Yaw         = -90
	Pitch       = 0
	Speed       = 0.1
	Sensitivity = 0.1
	MaxPitch    = 89
	FOV         = 45
	ZNear       = 0.1
	ZFar        = 1000
)

// Dir is the type of movement directions.
type Dir int

// Movement directions.
const (
	Forward Dir = iota
	Backward
	Left
	Right
	Up
	Down
)

var worldUp = linear.V3{0, 1, 0}

// Camera is a free-fly camera.
// Angles are in degrees.
type Camera struct {
	Pos         linear.V3
	Yaw         float32
	Pitch       float32
	Speed       float32
	Sensitivity float32

	forward linear.V3
	right   linear.V3
	up      linear.V3
}

// New creates a camera at pos looking towards -Z.
func New(pos linear.V3) *Camera {
	c := &Camera{
		Pos:         pos,
		Yaw:         Yaw,
		Pitch:       Pitch,
		Speed:       Speed,
		Sensitivity: Sensitivity,
	}
	c.update()
	return c
}

// update recomputes the basis from yaw and pitch.
func (c *Camera) update() {
	y := linear.Radians(c.Yaw)
	p := linear.Radians(c.Pitch)
	c.forward = linear.V3{
		math32.Cos(y) * math32.Cos(p),
		math32.Sin(p),
		math32.Sin(y) * math32.Cos(p),
	}
	c.forward.Norm(&c.forward)
	c.right.Cross(&c.forward, &worldUp)
	c.right.Norm(&c.right)
	c.up.Cross(&c.right, &c.forward)
	c.up.Norm(&c.up)
}

// Basis returns the forward, right and up vectors.
func (c *Camera) Basis() (forward, right, up linear.V3) {
	return c.forward, c.right, c.up
}

// Move moves the camera in direction d by n steps of
// c.Speed.
// Up and Down move along the world's Y axis.
func (c *Camera) Move(d Dir, n float32) {
	var v linear.V3
	switch d {
	case Forward:
		v = c.forward
	case Backward:
		v.Scale(-1, &c.forward)
	case Right:
		v = c.right
	case Left:
		v.Scale(-1, &c.right)
	case Up:
		v = worldUp
	case Down:
		v.Scale(-1, &worldUp)
	default:
		return
	}
	v.Scale(n*c.Speed, &v)
	c.Pos.Add(&c.Pos, &v)
}

// Look rotates the camera by pointer deltas.
// Moving the pointer up (negative dy) pitches up.
func (c *Camera) Look(dx, dy float32) {
	c.Yaw += dx * c.Sensitivity
	c.Pitch -= dy * c.Sensitivity
	if c.Pitch > MaxPitch {
		c.Pitch = MaxPitch
	} else if c.Pitch < -MaxPitch {
		c.Pitch = -MaxPitch
	}
	c.update()
}

// View returns the view matrix.
func (c *Camera) View() (m linear.M4) {
	var center linear.V3
	center.Add(&c.Pos, &c.forward)
	m.LookAt(&c.Pos, &center, &c.up)
	return
}

// Proj returns the projection matrix for the given aspect
// ratio. Y is flipped to match Vulkan's clip space.
func (c *Camera) Proj(aspect float32) (m linear.M4) {
	m.Perspective(linear.Radians(FOV), aspect, ZNear, ZFar)
	m[1][1] *= -1
	return
}
