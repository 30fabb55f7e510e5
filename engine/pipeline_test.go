// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/raytrace/driver"
	"github.com/gviegas/raytrace/engine/internal/shader"
)

func TestClampRecursion(t *testing.T) {
	cases := [...]struct {
		want, limit int
		n           int
		ok          bool
	}{
		{10, 31, 10, true},
		{10, 10, 10, true},
		{10, 4, 4, true},
		{10, 2, 2, true},
		{10, 1, 0, false},
		{1, 31, 0, false},
	}
	for _, c := range cases {
		n, err := clampRecursion(c.want, c.limit)
		if c.ok {
			assert.NoError(t, err)
			assert.Equal(t, c.n, n)
		} else {
			assert.Error(t, err)
		}
	}
}

func TestRTState(t *testing.T) {
	var code [shader.NProg]driver.ShaderCode
	st := rtState(code, nil, 5)
	require.Len(t, st.Stages, int(shader.NProg))
	require.Len(t, st.Groups, nGroup)
	assert.Equal(t, 5, st.MaxRecursion)
	for i, s := range st.Stages {
		assert.Equal(t, shader.Prog(i).Stage(), s.Stage)
		assert.Equal(t, shader.EntryPoint, s.Func.Name)
	}
	gen := func(i int) driver.ShaderGroup {
		return driver.ShaderGroup{Type: driver.GGeneral, General: i, ClosestHit: driver.Unused, AnyHit: driver.Unused}
	}
	assert.Equal(t, gen(int(shader.Raygen)), st.Groups[genGroup])
	assert.Equal(t, gen(int(shader.Miss)), st.Groups[missGroup])
	assert.Equal(t, gen(int(shader.ShadowMiss)), st.Groups[shadowGroup])
	assert.Equal(t, driver.ShaderGroup{
		Type:       driver.GTriangles,
		General:    driver.Unused,
		ClosestHit: int(shader.ClosestHit),
		AnyHit:     driver.Unused,
	}, st.Groups[hitGroup])
}

func TestNewPipeline(t *testing.T) {
	g := newFakeGPU()
	cfg := testConfig(t)
	ar := new(arena)
	p, err := newPipeline(g, ar, cfg)
	require.NoError(t, err)

	assert.Equal(t, MaxRecursion, p.recursion)
	assert.Equal(t, MaxFrame, p.heap.Len())
	assert.Same(t, p.heap, p.table.Heap(0))
	fp := p.pl.(*fakePipeline)
	assert.Equal(t, MaxRecursion, fp.state.MaxRecursion)
	for i, s := range fp.state.Stages {
		code := s.Func.Code.(*fakeShaderCode)
		assert.Equal(t, byte(i), code.data[4], "stage %d", i)
	}
	// Shader modules are released once the pipeline exists.
	assert.Zero(t, g.liveOf("shader"))

	// Handle of group i is filled with i+1.
	hs := g.lim.ShaderGroupHandleSize
	handle := func(grp int) []byte { return bytes.Repeat([]byte{byte(grp + 1)}, hs) }
	sbt := p.sbt.Bytes()
	at := func(addr uint64) []byte {
		off := addr - p.sbt.Addr()
		return sbt[off : off+uint64(hs)]
	}
	base := uint64(g.lim.ShaderGroupBaseAlignment)
	for _, r := range [...]driver.SBTRegion{p.st.Raygen, p.st.Miss, p.st.Hit} {
		assert.Zero(t, r.Addr%base, "region base alignment")
		assert.Equal(t, int64(hs), r.Stride)
	}
	assert.Equal(t, int64(hs), p.st.Raygen.Size)
	assert.Equal(t, int64(2*hs), p.st.Miss.Size)
	assert.Equal(t, int64(hs), p.st.Hit.Size)
	assert.Zero(t, p.st.Callable)
	assert.Equal(t, handle(genGroup), at(p.st.Raygen.Addr))
	assert.Equal(t, handle(missGroup), at(p.st.Miss.Addr))
	assert.Equal(t, handle(shadowGroup), at(p.st.Miss.Addr+uint64(p.st.Miss.Stride)))
	assert.Equal(t, handle(hitGroup), at(p.st.Hit.Addr))

	ar.free()
	assert.Empty(t, g.live)
}

func TestNewPipelineRecursion(t *testing.T) {
	g := newFakeGPU()
	g.lim.MaxRayRecursion = 3
	cfg := testConfig(t)
	ar := new(arena)
	p, err := newPipeline(g, ar, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, p.recursion)
	ar.free()

	g.lim.MaxRayRecursion = 1
	_, err = newPipeline(g, ar, cfg)
	assert.Error(t, err)
	ar.free()
	assert.Empty(t, g.live)
}

func TestNewPipelineShaderError(t *testing.T) {
	g := newFakeGPU()
	cfg := testConfig(t)
	cfg.ShaderDir = t.TempDir()
	ar := new(arena)
	_, err := newPipeline(g, ar, cfg)
	var serr *driver.ShaderError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, driver.SRaygen, serr.Stage)
	ar.free()
	assert.Empty(t, g.live)
}
