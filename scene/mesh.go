// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package scene

import (
	"github.com/chewxy/math32"

	"github.com/gviegas/raytrace/linear"
)

var white = linear.V3{1, 1, 1}

// Cube creates a unit cube centered at the origin.
// Each face has its own four vertices so that normals are
// flat.
func Cube() Mesh {
	faces := [6]struct {
		norm linear.V3
		pos  [4]linear.V3
	}{
		{linear.V3{0, 0, 1}, [4]linear.V3{{-.5, -.5, .5}, {.5, -.5, .5}, {.5, .5, .5}, {-.5, .5, .5}}},
		{linear.V3{0, 0, -1}, [4]linear.V3{{-.5, -.5, -.5}, {-.5, .5, -.5}, {.5, .5, -.5}, {.5, -.5, -.5}}},
		{linear.V3{0, 1, 0}, [4]linear.V3{{-.5, .5, -.5}, {-.5, .5, .5}, {.5, .5, .5}, {.5, .5, -.5}}},
		{linear.V3{0, -1, 0}, [4]linear.V3{{-.5, -.5, -.5}, {.5, -.5, -.5}, {.5, -.5, .5}, {-.5, -.5, .5}}},
		{linear.V3{1, 0, 0}, [4]linear.V3{{.5, -.5, -.5}, {.5, .5, -.5}, {.5, .5, .5}, {.5, -.5, .5}}},
		{linear.V3{-1, 0, 0}, [4]linear.V3{{-.5, -.5, -.5}, {-.5, -.5, .5}, {-.5, .5, .5}, {-.5, .5, -.5}}},
	}
	var m Mesh
	m.Vertices = make([]Vertex, 0, 24)
	m.Indices = make([]uint32, 0, 36)
	for i, f := range faces {
		for _, p := range f.pos {
			m.Vertices = append(m.Vertices, Vertex{p, f.norm, white})
		}
		b := uint32(i * 4)
		m.Indices = append(m.Indices, b, b+1, b+2, b, b+2, b+3)
	}
	return m
}

// Sphere creates a UV sphere of radius 0.5 centered at the
// origin.
func Sphere(slices, stacks int) Mesh {
	var m Mesh
	m.Vertices = make([]Vertex, 0, (slices+1)*(stacks+1))
	m.Indices = make([]uint32, 0, slices*stacks*6)
	for i := 0; i <= stacks; i++ {
		phi := float32(i) / float32(stacks) * math32.Pi
		for j := 0; j <= slices; j++ {
			theta := float32(j) / float32(slices) * 2 * math32.Pi
			n := linear.V3{
				math32.Cos(theta) * math32.Sin(phi),
				math32.Cos(phi),
				math32.Sin(theta) * math32.Sin(phi),
			}
			var p linear.V3
			p.Scale(0.5, &n)
			m.Vertices = append(m.Vertices, Vertex{p, n, white})
		}
	}
	for i := 0; i < stacks; i++ {
		for j := 0; j < slices; j++ {
			a := uint32(i*(slices+1) + j)
			b := a + uint32(slices) + 1
			m.Indices = append(m.Indices, a, b, a+1, b, b+1, a+1)
		}
	}
	return m
}
