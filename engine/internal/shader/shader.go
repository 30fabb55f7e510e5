// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package shader provides the ray tracing shaders and the
// layout of the data they access.
package shader

import (
	"embed"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/gviegas/raytrace/driver"
	"github.com/gviegas/raytrace/internal/log"
)

var logger = log.New("shader")

//go:embed glsl
var glslFS embed.FS

// Prog identifies one of the shader programs.
type Prog int

// Shader programs, in pipeline stage order.
const (
	Raygen Prog = iota
	Miss
	ClosestHit
	ShadowMiss

	NProg
)

var progs = [NProg]struct {
	file  string
	stage driver.Stage
}{
	Raygen:     {"raygen.rgen", driver.SRaygen},
	Miss:       {"miss.rmiss", driver.SMiss},
	ClosestHit: {"closesthit.rchit", driver.SClosestHit},
	ShadowMiss: {"shadow.rmiss", driver.SMiss},
}

// File returns the file name of p's source.
func (p Prog) File() string { return progs[p].file }

// Stage returns the pipeline stage of p.
func (p Prog) Stage() driver.Stage { return progs[p].stage }

// String implements fmt.Stringer.
func (p Prog) String() string { return progs[p].file }

// EntryPoint is the name of every program's entry point.
const EntryPoint = "main"

const commonFile = "common.glsl"

// Source returns the complete GLSL source of p.
// If dir is not empty, the file is read from dir (both the
// program and common.glsl), otherwise the embedded source
// is used.
func Source(p Prog, dir string) ([]byte, error) {
	read := func(name string) ([]byte, error) {
		if dir == "" {
			return glslFS.ReadFile("glsl/" + name)
		}
		return os.ReadFile(filepath.Join(dir, name))
	}
	common, err := read(commonFile)
	if err != nil {
		return nil, errors.Wrap(err, "shader: reading common declarations")
	}
	src, err := read(p.File())
	if err != nil {
		return nil, errors.Wrapf(err, "shader: reading %s", p.File())
	}
	b := make([]byte, 0, len(common)+len(src)+32)
	b = append(b, "#version 460\n"...)
	b = append(b, common...)
	b = append(b, '\n')
	b = append(b, src...)
	return b, nil
}

// Load returns the SPIR-V code of every program.
// For each program, a precompiled <file>.spv in dir takes
// precedence. Otherwise the source is compiled by c.
// Errors are of type *driver.ShaderError.
func Load(dir string, c Compiler) ([NProg][]byte, error) {
	var code [NProg][]byte
	for p := Prog(0); p < NProg; p++ {
		if dir != "" {
			spv := filepath.Join(dir, p.File()+".spv")
			if b, err := os.ReadFile(spv); err == nil {
				logger.Infof("using precompiled %s", spv)
				code[p] = b
				continue
			}
		}
		src, err := Source(p, dir)
		if err != nil {
			return code, &driver.ShaderError{Stage: p.Stage(), Msg: err.Error()}
		}
		if c == nil {
			return code, &driver.ShaderError{Stage: p.Stage(), Msg: p.File() + ": no compiler available"}
		}
		if code[p], err = c.Compile(p, src); err != nil {
			return code, &driver.ShaderError{Stage: p.Stage(), Msg: err.Error()}
		}
		logger.Debugf("compiled %s (%d bytes)", p, len(code[p]))
	}
	return code, nil
}
