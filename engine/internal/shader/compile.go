// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package shader

import (
	"bytes"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Compiler is the interface that wraps the Compile method.
//
// Compile compiles a GLSL source into SPIR-V.
type Compiler interface {
	Compile(p Prog, src []byte) ([]byte, error)
}

// GLSLC is a Compiler that runs the glslc executable.
// Path is the name or path of the executable.
type GLSLC struct {
	Path string
}

var stageFlags = [NProg]string{
	Raygen:     "rgen",
	Miss:       "rmiss",
	ClosestHit: "rchit",
	ShadowMiss: "rmiss",
}

// Args returns the command line arguments used to compile p.
// The source is read from stdin and SPIR-V is written to
// stdout.
func (GLSLC) Args(p Prog) []string {
	return []string{
		"-fshader-stage=" + stageFlags[p],
		"--target-env=vulkan1.2",
		"-O",
		"-o", "-",
		"-",
	}
}

// Compile runs glslc on src.
func (c GLSLC) Compile(p Prog, src []byte) ([]byte, error) {
	path := c.Path
	if path == "" {
		path = "glslc"
	}
	cmd := exec.Command(path, c.Args(p)...)
	cmd.Stdin = bytes.NewReader(src)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.Errorf("%s: %s", p, msg)
		}
		return nil, errors.Wrapf(err, "%s: running %s", p, path)
	}
	return out.Bytes(), nil
}
