// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package ctxt opens the GPU driver used by the engine.
package ctxt

import (
	"errors"
	"strings"

	"github.com/gviegas/raytrace/driver"
	"github.com/gviegas/raytrace/internal/log"
)

var logger = log.New("ctxt")

// ErrNoDriver means that no registered driver matches the
// requested name.
var ErrNoDriver = errors.New("ctxt: driver not found")

// Open attempts to open any driver whose name contains
// the name string. It is case insensitive.
// If name is the empty string, then all registered
// drivers are considered.
// sf is passed to driver.Driver.Open.
// The error of the last failed attempt is returned when
// no driver can be opened.
func Open(name string, sf driver.Surface) (driver.Driver, driver.GPU, error) {
	return open(driver.Drivers(), name, sf)
}

func open(drivers []driver.Driver, name string, sf driver.Surface) (driver.Driver, driver.GPU, error) {
	err := ErrNoDriver
	name = strings.ToLower(name)
	for i := range drivers {
		if !strings.Contains(strings.ToLower(drivers[i].Name()), name) {
			continue
		}
		var u driver.GPU
		if u, err = drivers[i].Open(sf); err != nil {
			logger.Warningf("driver '%s' failed to open: %v", drivers[i].Name(), err)
			continue
		}
		if sf != nil {
			if _, ok := u.(driver.Presenter); !ok {
				drivers[i].Close()
				err = driver.ErrCannotPresent
				continue
			}
		}
		return drivers[i], u, nil
	}
	return nil, nil, err
}
