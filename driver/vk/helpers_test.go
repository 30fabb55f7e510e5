// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"
	"log"
	"os"
	"testing"

	"github.com/gviegas/raytrace/driver"
)

// Helpers for testing.

// tDrv is the driver managed by TestMain.
var tDrv = Driver{}

// tDevs is the result of a call to Devices that TestMain
// makes before opening tDrv.
var (
	tDevs    []driver.DeviceInfo
	tDevsErr error
)

// tOpenErr is the error returned by tDrv.Open, if any.
// Tests that need a device call tGPU, which skips them
// in this case.
var tOpenErr error

// TestMain runs the tests between calls to tDrv.Open and tDrv.Close.
// Devices without ray tracing support do not prevent the tests
// that do not need a device from running.
func TestMain(m *testing.M) {
	tDevs, tDevsErr = Devices()
	if _, tOpenErr = tDrv.Open(nil); tOpenErr != nil {
		log.Printf("Driver.Open failed, device tests will be skipped: %v", tOpenErr)
	} else {
		name := tDrv.DeviceName()
		imaj, imin, ipat := tDrv.InstanceVersion()
		dmaj, dmin, dpat := tDrv.DeviceVersion()
		log.Printf("\n\tUsing %s\n\tVersion %d.%d.%d (inst), %d.%d.%d (dev)", name, imaj, imin, ipat, dmaj, dmin, dpat)
	}
	c := m.Run()
	tDrv.Close()
	os.Exit(c)
}

// tGPU skips t if tDrv could not be opened.
func tGPU(t *testing.T) {
	t.Helper()
	if tOpenErr != nil {
		t.Skipf("no ray tracing device: %v", tOpenErr)
	}
}

// isError checks multiple errors for equality.
func isError(e error, targets ...error) bool {
	for _, x := range targets {
		if errors.Is(e, x) {
			return true
		}
	}
	return false
}
