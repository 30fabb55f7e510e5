// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"github.com/pkg/errors"

	"github.com/gviegas/raytrace/driver"
	"github.com/gviegas/raytrace/engine/internal/ctxt"
)

// ErrNoDriver means that no registered driver matches the
// name given to Open.
var ErrNoDriver = ctxt.ErrNoDriver

// Open opens the first registered driver whose name
// contains name (case insensitive).
// sf is the window to present to, or nil for offscreen
// rendering. When sf is not nil, the GPU is guaranteed to
// implement driver.Presenter.
// The caller must close the driver after closing every
// Renderer created from the GPU.
func Open(name string, sf driver.Surface) (driver.Driver, driver.GPU, error) {
	drv, gpu, err := ctxt.Open(name, sf)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "engine: opening driver %q", name)
	}
	logger.Infof("driver '%s' opened", drv.Name())
	return drv, gpu, nil
}
