// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package driver

// DeviceType is the type of physical devices.
type DeviceType int

// Device types.
const (
	DOther DeviceType = iota
	DIntegrated
	DDiscrete
	DVirtual
	DCPU
)

// String implements fmt.Stringer.
func (t DeviceType) String() string {
	switch t {
	case DIntegrated:
		return "integrated"
	case DDiscrete:
		return "discrete"
	case DVirtual:
		return "virtual"
	case DCPU:
		return "cpu"
	}
	return "other"
}

// DeviceInfo describes a physical device as seen during
// selection.
type DeviceInfo struct {
	Name string
	Type DeviceType
	// Extensions advertised by the device.
	Exts []string
	// Sum of the sizes of device-local heaps, in bytes.
	LocalMemory int64
	// Index of a queue family supporting graphics and
	// compute (and presentation, if required), or -1.
	Queue int
	// API version as major, minor, patch.
	Version [3]int
}

// Missing returns the extensions of required that d does
// not advertise.
func (d *DeviceInfo) Missing(required []string) []string {
	var miss []string
	for _, r := range required {
		found := false
		for _, e := range d.Exts {
			if e == r {
				found = true
				break
			}
		}
		if !found {
			miss = append(miss, r)
		}
	}
	return miss
}

const gib = 1 << 30

// ScoreDevice scores a device for selection.
// It returns -1 when d lacks a suitable queue family or
// any of the required extensions.
// Discrete devices always score above integrated ones,
// which score above virtual and other devices. Within a
// class, each whole GiB of device-local memory adds one
// point.
func ScoreDevice(d *DeviceInfo, required []string) int {
	if d.Queue < 0 || len(d.Missing(required)) != 0 {
		return -1
	}
	var score int
	switch d.Type {
	case DDiscrete:
		score = 10000
	case DIntegrated:
		score = 1000
	case DVirtual:
		score = 100
	}
	mem := d.LocalMemory / gib
	if mem > 99 {
		mem = 99
	}
	return score + int(mem)
}

// SelectDevice selects the device with the highest score.
// Ties are resolved in favor of the device that appears
// first in devs.
// It returns ErrNoDevice if no device is suitable.
func SelectDevice(devs []DeviceInfo, required []string) (index, score int, err error) {
	index, score = -1, -1
	for i := range devs {
		if s := ScoreDevice(&devs[i], required); s > score {
			index, score = i, s
		}
	}
	if index == -1 {
		return -1, -1, ErrNoDevice
	}
	return
}
