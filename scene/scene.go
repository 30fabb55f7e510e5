// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package scene defines the static content that is
// rendered: meshes, materials and objects placing meshes
// in the world.
package scene

import (
	"fmt"

	"github.com/gviegas/raytrace/linear"
)

// Vertex is a mesh vertex.
type Vertex struct {
	Pos   linear.V3
	Norm  linear.V3
	Color linear.V3
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// MatType is the type of material models understood by the
// closest-hit shader.
type MatType int

// Material models.
const (
	Diffuse MatType = iota
	Metal
	Glass
	Skin
)

// Material describes the appearance of a surface.
type Material struct {
	Color     linear.V4
	Type      MatType
	Roughness float32
	IOR       float32
	SSS       float32
}

// Params returns the parameter vector of m as seen by
// shaders: type, roughness, index of refraction and
// subsurface amount.
func (m *Material) Params() linear.V4 {
	return linear.V4{float32(m.Type), m.Roughness, m.IOR, m.SSS}
}

// Object places a mesh in the world.
type Object struct {
	Name      string
	Mesh      int
	Transform linear.M4
	Material  int
}

// Scene is a static scene.
type Scene struct {
	Meshes    []Mesh
	Materials []Material
	Objects   []Object
}

// Place computes the transform of an object that is scaled
// by s and then translated by t.
func Place(s, t linear.V3) (m linear.M4) {
	var sm, tm linear.M4
	sm.Scale(&s)
	tm.Translate(&t)
	m.Mul(&tm, &sm)
	return
}

// Validate checks that every index in s is in range and
// that every mesh is a non-empty triangle list.
func (s *Scene) Validate() error {
	if len(s.Objects) == 0 {
		return fmt.Errorf("scene: no objects")
	}
	for i := range s.Meshes {
		m := &s.Meshes[i]
		if len(m.Vertices) == 0 || len(m.Indices) == 0 {
			return fmt.Errorf("scene: mesh %d is empty", i)
		}
		if len(m.Indices)%3 != 0 {
			return fmt.Errorf("scene: mesh %d: index count %d is not a multiple of 3", i, len(m.Indices))
		}
		for _, x := range m.Indices {
			if int(x) >= len(m.Vertices) {
				return fmt.Errorf("scene: mesh %d: index %d out of range", i, x)
			}
		}
	}
	for i := range s.Objects {
		o := &s.Objects[i]
		if o.Mesh < 0 || o.Mesh >= len(s.Meshes) {
			return fmt.Errorf("scene: object %d: mesh %d out of range", i, o.Mesh)
		}
		if o.Material < 0 || o.Material >= len(s.Materials) {
			return fmt.Errorf("scene: object %d: material %d out of range", i, o.Material)
		}
	}
	return nil
}
