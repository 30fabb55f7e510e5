// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/raytrace/linear"
)

func TestCube(t *testing.T) {
	m := Cube()
	require.Len(t, m.Vertices, 24)
	require.Len(t, m.Indices, 36)
	for i := 0; i < len(m.Indices); i += 3 {
		a := m.Vertices[m.Indices[i]].Pos
		b := m.Vertices[m.Indices[i+1]].Pos
		c := m.Vertices[m.Indices[i+2]].Pos
		var e1, e2, n linear.V3
		e1.Sub(&b, &a)
		e2.Sub(&c, &a)
		n.Cross(&e1, &e2)
		// Counter-clockwise winding faces the normal.
		vn := m.Vertices[m.Indices[i]].Norm
		assert.Greater(t, n.Dot(&vn), float32(0), "triangle %d", i/3)
	}
	for _, v := range m.Vertices {
		for _, x := range v.Pos {
			assert.Equal(t, float32(0.5), abs(x))
		}
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func TestSphere(t *testing.T) {
	m := Sphere(16, 16)
	assert.Len(t, m.Vertices, 17*17)
	assert.Len(t, m.Indices, 16*16*6)
	for i, v := range m.Vertices {
		assert.InDelta(t, 0.5, v.Pos.Len(), 1e-5, "vertex %d radius", i)
		assert.InDelta(t, 1, v.Norm.Len(), 1e-5, "vertex %d normal", i)
	}
	for _, x := range m.Indices {
		assert.Less(t, int(x), len(m.Vertices))
	}
}

func TestDemo(t *testing.T) {
	s := Demo()
	require.NoError(t, s.Validate())
	assert.Len(t, s.Meshes, 2)
	assert.Len(t, s.Materials, 9)
	assert.Len(t, s.Objects, 9)

	glass := s.Materials[5]
	assert.Equal(t, linear.V4{float32(Glass), 0, 1.5, 0}, glass.Params())

	window := s.Objects[3]
	assert.Equal(t, "window", window.Name)
	assert.Equal(t, 5, window.Material)
	assert.Equal(t, [12]float32{1, 0, 0, -5, 0, 1, 0, 1.5, 0, 0, 0.1, -0.9}, window.Transform.RowMajor3x4())

	leaves := s.Objects[5]
	assert.Equal(t, SphereMesh, leaves.Mesh)
}

func TestValidate(t *testing.T) {
	s := SingleCube()
	require.NoError(t, s.Validate())

	bad := *s
	bad.Objects = []Object{{Mesh: 1}}
	assert.Error(t, bad.Validate())

	bad = *s
	bad.Objects = []Object{{Mesh: 0, Material: 3}}
	assert.Error(t, bad.Validate())

	bad = *s
	bad.Meshes = []Mesh{{Vertices: s.Meshes[0].Vertices, Indices: []uint32{0, 1}}}
	assert.Error(t, bad.Validate())

	bad.Meshes = []Mesh{{Vertices: s.Meshes[0].Vertices[:3], Indices: []uint32{0, 1, 3}}}
	assert.Error(t, bad.Validate())

	assert.Error(t, (&Scene{}).Validate())
}
