// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"encoding/binary"

	"github.com/gviegas/raytrace/driver"
	"github.com/gviegas/raytrace/engine/internal/shader"
	"github.com/gviegas/raytrace/scene"
)

// Usage of buffers read both by shaders (through device
// addresses) and by acceleration structure builds.
const geomUsage = driver.UStorage | driver.UBuildInput | driver.UDeviceAddr

// meshRange locates a mesh's data in the scene buffers.
type meshRange struct {
	vertexAddr uint64
	indexAddr  uint64
	nvertex    int
	nprim      int
}

// sceneData is the GPU copy of a scene.
type sceneData struct {
	vertex   driver.Buffer
	index    driver.Buffer
	material driver.Buffer
	object   driver.Buffer

	meshes  []meshRange
	objects []shader.ObjectLayout
}

// uploadScene creates the scene buffers, fills them and
// computes the address table.
// Every buffer is owned by ar.
func uploadScene(gpu driver.GPU, ar *arena, scn *scene.Scene) (*sceneData, error) {
	var nvert, nidx int
	for i := range scn.Meshes {
		nvert += len(scn.Meshes[i].Vertices)
		nidx += len(scn.Meshes[i].Indices)
	}
	sd := &sceneData{
		meshes:  make([]meshRange, len(scn.Meshes)),
		objects: make([]shader.ObjectLayout, len(scn.Objects)),
	}
	var err error

	if sd.vertex, err = newBuffer(gpu, "vertex", int64(nvert*shader.VertexSize), driver.HostVisible, geomUsage); err != nil {
		return nil, err
	}
	ar.own(sd.vertex)
	if sd.index, err = newBuffer(gpu, "index", int64(nidx*4), driver.HostVisible, geomUsage); err != nil {
		return nil, err
	}
	ar.own(sd.index)

	vb := make([]byte, nvert*shader.VertexSize)
	ib := make([]byte, nidx*4)
	var voff, ioff int
	for i := range scn.Meshes {
		m := &scn.Meshes[i]
		sd.meshes[i] = meshRange{
			vertexAddr: sd.vertex.Addr() + uint64(voff),
			indexAddr:  sd.index.Addr() + uint64(ioff),
			nvertex:    len(m.Vertices),
			nprim:      len(m.Indices) / 3,
		}
		for j := range m.Vertices {
			v := &m.Vertices[j]
			var l shader.VertexLayout
			l.Set(&v.Pos, &v.Norm, &v.Color)
			l.Encode(vb[voff:])
			voff += shader.VertexSize
		}
		for _, x := range m.Indices {
			binary.LittleEndian.PutUint32(ib[ioff:], x)
			ioff += 4
		}
	}
	if err = upload(sd.vertex, 0, vb); err != nil {
		return nil, err
	}
	if err = upload(sd.index, 0, ib); err != nil {
		return nil, err
	}

	n := len(scn.Materials)
	if sd.material, err = newBuffer(gpu, "material", int64(n*shader.MaterialSize), driver.HostVisible, driver.UStorage|driver.UDeviceAddr); err != nil {
		return nil, err
	}
	ar.own(sd.material)
	mb := make([]byte, n*shader.MaterialSize)
	for i := range scn.Materials {
		m := &scn.Materials[i]
		p := m.Params()
		var l shader.MaterialLayout
		l.SetColor(&m.Color)
		l.SetParams(&p)
		l.Encode(mb[i*shader.MaterialSize:])
	}
	if err = upload(sd.material, 0, mb); err != nil {
		return nil, err
	}

	n = len(scn.Objects)
	if sd.object, err = newBuffer(gpu, "object", int64(n*shader.ObjectSize), driver.HostVisible, driver.UStorage); err != nil {
		return nil, err
	}
	ar.own(sd.object)
	ob := make([]byte, n*shader.ObjectSize)
	for i := range scn.Objects {
		o := &scn.Objects[i]
		mr := &sd.meshes[o.Mesh]
		sd.objects[i] = shader.ObjectLayout{
			mr.vertexAddr,
			mr.indexAddr,
			sd.material.Addr() + uint64(o.Material*shader.MaterialSize),
		}
		sd.objects[i].Encode(ob[i*shader.ObjectSize:])
	}
	if err = upload(sd.object, 0, ob); err != nil {
		return nil, err
	}

	logger.Infof("scene uploaded: %d meshes, %d vertices, %d triangles, %d objects", len(scn.Meshes), nvert, nidx/3, n)
	return sd, nil
}

// objectSize returns the byte size of the object buffer's
// contents.
func (sd *sceneData) objectSize() int64 { return int64(len(sd.objects) * shader.ObjectSize) }
