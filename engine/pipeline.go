// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"github.com/pkg/errors"

	"github.com/gviegas/raytrace/driver"
	"github.com/gviegas/raytrace/engine/internal/shader"
)

// Shader groups of the pipeline.
// Stages are created in shader.Prog order, so group g
// of a general group refers to stage g.
const (
	genGroup = iota
	missGroup
	hitGroup
	shadowGroup
	nGroup
)

// sbtGroups assigns shader groups to SBT regions.
// Miss index 0 is the primary miss and miss index 1 is
// the shadow miss.
var sbtGroups = [4][]int{
	driver.RRaygen:   {genGroup},
	driver.RMiss:     {missGroup, shadowGroup},
	driver.RHit:      {hitGroup},
	driver.RCallable: nil,
}

// pipeline is the ray tracing pipeline together with its
// descriptors and shader binding table.
type pipeline struct {
	heap  driver.DescHeap
	table driver.DescTable
	pl    driver.Pipeline
	sbt   driver.Buffer
	st    driver.ShaderTable

	recursion int
}

// clampRecursion clamps the requested recursion depth to
// the device limit.
func clampRecursion(want, limit int) (int, error) {
	n := want
	if n > limit {
		n = limit
	}
	if n < minRecursion {
		return 0, errors.Errorf("engine: ray recursion depth %d is not supported (want at least %d, device limit is %d)", n, minRecursion, limit)
	}
	return n, nil
}

// rtState returns the pipeline state for the given shader
// codes, indexed by shader.Prog.
func rtState(code [shader.NProg]driver.ShaderCode, desc driver.DescTable, recursion int) *driver.RTState {
	stages := make([]driver.ShaderStage, shader.NProg)
	for p := shader.Prog(0); p < shader.NProg; p++ {
		stages[p] = driver.ShaderStage{
			Stage: p.Stage(),
			Func:  driver.ShaderFunc{Code: code[p], Name: shader.EntryPoint},
		}
	}
	general := func(p shader.Prog) driver.ShaderGroup {
		return driver.ShaderGroup{
			Type:       driver.GGeneral,
			General:    int(p),
			ClosestHit: driver.Unused,
			AnyHit:     driver.Unused,
		}
	}
	groups := make([]driver.ShaderGroup, nGroup)
	groups[genGroup] = general(shader.Raygen)
	groups[missGroup] = general(shader.Miss)
	groups[hitGroup] = driver.ShaderGroup{
		Type:       driver.GTriangles,
		General:    driver.Unused,
		ClosestHit: int(shader.ClosestHit),
		AnyHit:     driver.Unused,
	}
	groups[shadowGroup] = general(shader.ShadowMiss)
	return &driver.RTState{
		Stages:       stages,
		Groups:       groups,
		Desc:         desc,
		MaxRecursion: recursion,
	}
}

// newPipeline creates the descriptor heap (with one copy
// per frame slot), the ray tracing pipeline and the SBT.
// Every resource is owned by ar.
func newPipeline(gpu driver.GPU, ar *arena, cfg *Config) (*pipeline, error) {
	lim := gpu.Limits()
	rec, err := clampRecursion(cfg.MaxRecursion, lim.MaxRayRecursion)
	if err != nil {
		return nil, err
	}
	p := &pipeline{recursion: rec}

	if p.heap, err = gpu.NewDescHeap(shader.Descriptors()); err != nil {
		return nil, errors.Wrap(err, "engine: descriptor heap")
	}
	ar.own(p.heap)
	if err = p.heap.New(MaxFrame); err != nil {
		return nil, errors.Wrap(err, "engine: descriptor heap copies")
	}
	if p.table, err = gpu.NewDescTable([]driver.DescHeap{p.heap}); err != nil {
		return nil, errors.Wrap(err, "engine: descriptor table")
	}
	ar.own(p.table)

	spv, err := shader.Load(cfg.ShaderDir, shader.GLSLC{Path: cfg.Compiler})
	if err != nil {
		return nil, err
	}
	var code [shader.NProg]driver.ShaderCode
	defer func() {
		for _, c := range code {
			if c != nil {
				c.Destroy()
			}
		}
	}()
	for i := range spv {
		if code[i], err = gpu.NewShaderCode(spv[i]); err != nil {
			prog := shader.Prog(i)
			return nil, &driver.ShaderError{Stage: prog.Stage(), Msg: prog.File() + ": " + err.Error()}
		}
	}

	if p.pl, err = gpu.NewRTPipeline(rtState(code, p.table, rec)); err != nil {
		return nil, errors.Wrap(err, "engine: ray tracing pipeline")
	}
	ar.own(p.pl)

	if err = p.newSBT(gpu, ar, &lim); err != nil {
		return nil, err
	}
	logger.Infof("pipeline created: %d groups, recursion %d, SBT %d bytes", nGroup, rec, p.st.Raygen.Size+p.st.Miss.Size+p.st.Hit.Size)
	return p, nil
}

// newSBT fetches the group handles of p.pl and writes
// them into a new shader binding table buffer.
func (p *pipeline) newSBT(gpu driver.GPU, ar *arena, lim *driver.Limits) error {
	handles, err := p.pl.GroupHandles(0, nGroup)
	if err != nil {
		return errors.Wrap(err, "engine: shader group handles")
	}
	layout, err := driver.NewSBTLayout(lim.ShaderGroupHandleSize, lim.ShaderGroupHandleAlignment, lim.ShaderGroupBaseAlignment, sbtGroups)
	if err != nil {
		return errors.Wrap(err, "engine: SBT layout")
	}
	// The buffer's address need not be a multiple of the
	// base alignment.
	base := int64(lim.ShaderGroupBaseAlignment)
	if p.sbt, err = newBuffer(gpu, "SBT", layout.Size+base, driver.HostVisible, driver.UShaderTable|driver.UDeviceAddr); err != nil {
		return err
	}
	ar.own(p.sbt)
	addr := alignUp(p.sbt.Addr(), uint64(base))
	off := int64(addr - p.sbt.Addr())
	if err = layout.Fill(p.sbt.Bytes()[off:], handles); err != nil {
		return errors.Wrap(err, "engine: SBT")
	}
	p.st = layout.Table(addr)
	return nil
}
