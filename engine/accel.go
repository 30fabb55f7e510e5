// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"github.com/gviegas/raytrace/driver"
	"github.com/gviegas/raytrace/engine/internal/shader"
	"github.com/gviegas/raytrace/scene"
)

// Instance mask that every ray traced by the shaders
// accepts.
const instanceMask = 0xff

// accelSet is the set of acceleration structures of a
// scene.
type accelSet struct {
	blas []driver.Accel
	tlas driver.Accel
}

// buildAccel builds one BLAS per mesh of sd and then the
// TLAS instancing them as described by scn's objects.
// Storage buffers and acceleration structures are owned
// by ar.
func buildAccel(gpu driver.GPU, ar *arena, scn *scene.Scene, sd *sceneData) (*accelSet, error) {
	as := &accelSet{blas: make([]driver.Accel, len(sd.meshes))}
	for i := range sd.meshes {
		acc, err := buildOne(gpu, ar, blasGeom(&sd.meshes[i]))
		if err != nil {
			return nil, &driver.BuildError{Stage: "blas", Index: i, Err: err}
		}
		as.blas[i] = acc
	}
	logger.Debugf("built %d BLAS", len(as.blas))

	inst := instances(scn, as.blas)
	tlas, err := buildTLAS(gpu, ar, inst)
	if err != nil {
		return nil, &driver.BuildError{Stage: "tlas", Err: err}
	}
	as.tlas = tlas
	logger.Infof("acceleration structures built: %d BLAS, %d instances", len(as.blas), len(inst))
	return as, nil
}

// blasGeom returns the geometry of a mesh's BLAS.
func blasGeom(mr *meshRange) *driver.AccelGeom {
	return &driver.AccelGeom{
		Type: driver.ABottom,
		Triangles: []driver.TriangleGeom{{
			VertexAddr:   mr.vertexAddr,
			VertexStride: int64(shader.VertexSize),
			MaxVertex:    mr.nvertex - 1,
			IndexAddr:    mr.indexAddr,
			PrimCount:    mr.nprim,
			Opaque:       true,
		}},
		FastTrace: true,
	}
}

// instances returns the TLAS instances of scn, one per
// object and in object order.
// The custom index of an instance is the object's
// material index.
func instances(scn *scene.Scene, blas []driver.Accel) []driver.AccelInstance {
	inst := make([]driver.AccelInstance, len(scn.Objects))
	for i := range scn.Objects {
		o := &scn.Objects[i]
		inst[i] = driver.AccelInstance{
			Transform:   o.Transform.RowMajor3x4(),
			CustomIndex: uint32(o.Material),
			Mask:        instanceMask,
			Flags:       driver.InstanceCullDisable,
			AccelAddr:   blas[o.Mesh].Addr(),
		}
	}
	return inst
}

// buildTLAS uploads inst to a transient instance buffer
// and builds a TLAS from it.
func buildTLAS(gpu driver.GPU, ar *arena, inst []driver.AccelInstance) (driver.Accel, error) {
	n := len(inst)
	buf, err := newBuffer(gpu, "instance", int64(n*driver.InstanceSize), driver.HostVisible, driver.UBuildInput|driver.UDeviceAddr)
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()
	b := make([]byte, n*driver.InstanceSize)
	for i := range inst {
		inst[i].Encode(b[i*driver.InstanceSize:])
	}
	if err = upload(buf, 0, b); err != nil {
		return nil, err
	}
	return buildOne(gpu, ar, &driver.AccelGeom{
		Type:      driver.ATop,
		Instances: driver.InstanceGeom{Addr: buf.Addr(), Count: n},
		FastTrace: true,
	})
}

// buildOne creates an acceleration structure for geom and
// builds it, blocking until the build completes.
// The scratch buffer is destroyed before returning.
func buildOne(gpu driver.GPU, ar *arena, geom *driver.AccelGeom) (driver.Accel, error) {
	sizes, err := gpu.AccelSizes(geom)
	if err != nil {
		return nil, err
	}
	stor, err := newBuffer(gpu, "accel storage", sizes.Storage, driver.DeviceLocal, driver.UAccelStorage|driver.UDeviceAddr)
	if err != nil {
		return nil, err
	}
	ar.own(stor)
	acc, err := gpu.NewAccel(geom.Type, stor, 0, sizes.Storage)
	if err != nil {
		return nil, err
	}
	ar.own(acc)

	align := int64(gpu.Limits().MinScratchAlignment)
	scratch, err := newBuffer(gpu, "scratch", sizes.Scratch+align, driver.DeviceLocal, driver.UStorage|driver.UDeviceAddr)
	if err != nil {
		return nil, err
	}
	defer scratch.Destroy()
	addr := alignUp(scratch.Addr(), uint64(align))

	err = oneShot(gpu, func(cb driver.CmdBuffer) {
		cb.BuildAccel(acc, geom, addr)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}
