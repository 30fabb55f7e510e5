// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package scene

import (
	"github.com/gviegas/raytrace/linear"
)

// Mesh indices of the demo scene.
const (
	CubeMesh = iota
	SphereMesh
)

// Demo creates the built-in scene: a street corner with a
// house, a tree, a car, a person and a puddle.
func Demo() *Scene {
	mat := func(r, g, b float32, typ MatType, rough, ior, sss float32) Material {
		return Material{linear.V4{r, g, b, 1}, typ, rough, ior, sss}
	}
	s := &Scene{
		Meshes: []Mesh{Cube(), Sphere(16, 16)},
		Materials: []Material{
			mat(.5, .5, .5, Diffuse, 1, 0, 0),   // concrete
			mat(.1, .8, .1, Diffuse, 1, 0, 0),   // leaves
			mat(.4, .2, .1, Diffuse, 1, 0, 0),   // bark
			mat(.8, .3, .2, Diffuse, 1, 0, 0),   // brick
			mat(.2, .2, .9, Metal, .2, 0, 0),    // car paint
			mat(1, 1, 1, Glass, 0, 1.5, 0),      // glass
			mat(.8, .8, 1, Metal, .05, 1.33, 0), // water
			mat(.9, .7, .6, Skin, .5, 0, 1),     // skin
			mat(.2, .2, .2, Diffuse, 1, 0, 0),   // asphalt
		},
	}
	obj := func(name string, mesh int, sc, tr linear.V3, mat int) {
		s.Objects = append(s.Objects, Object{name, mesh, Place(sc, tr), mat})
	}
	obj("ground", CubeMesh, linear.V3{20, .1, 20}, linear.V3{0, -.1, 0}, 8)
	obj("puddle", CubeMesh, linear.V3{3, .05, 3}, linear.V3{5, -.05, 2}, 6)
	obj("house", CubeMesh, linear.V3{4, 3, 4}, linear.V3{-5, 1.5, -5}, 3)
	obj("window", CubeMesh, linear.V3{1, 1, .1}, linear.V3{-5, 1.5, -.9}, 5)
	obj("trunk", CubeMesh, linear.V3{.5, 2, .5}, linear.V3{5, 1, -5}, 2)
	obj("leaves", SphereMesh, linear.V3{2, 2, 2}, linear.V3{5, 3, -5}, 1)
	obj("car", CubeMesh, linear.V3{1.5, .5, 3}, linear.V3{2, .5, 5}, 4)
	obj("head", SphereMesh, linear.V3{.3, .3, .3}, linear.V3{-2, 1.6, 2}, 7)
	obj("body", CubeMesh, linear.V3{.4, .7, .2}, linear.V3{-2, .7, 2}, 0)
	return s
}

// SingleCube creates a scene with one cube at the origin
// using a gray diffuse material.
func SingleCube() *Scene {
	var id linear.M4
	id.I()
	return &Scene{
		Meshes:    []Mesh{Cube()},
		Materials: []Material{{Color: linear.V4{.5, .5, .5, 1}, Type: Diffuse, Roughness: 1}},
		Objects:   []Object{{Name: "cube", Mesh: 0, Transform: id, Material: 0}},
	}
}
