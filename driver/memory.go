// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package driver

// MemProp is the type of memory properties.
type MemProp int

// Memory properties.
const (
	PDeviceLocal MemProp = 1 << iota
	PHostVisible
	PHostCoherent
	PHostCached
)

// MemClass is the type of memory classes that resources
// can be allocated from.
type MemClass int

// Memory classes.
const (
	// Device-local memory, not accessible by the host.
	DeviceLocal MemClass = iota
	// Host-visible, coherent memory.
	HostVisible
)

// Props returns the memory properties that c requires.
func (c MemClass) Props() MemProp {
	switch c {
	case DeviceLocal:
		return PDeviceLocal
	case HostVisible:
		return PHostVisible | PHostCoherent
	}
	panic("undefined memory class")
}

// String implements fmt.Stringer.
func (c MemClass) String() string {
	switch c {
	case DeviceLocal:
		return "device-local"
	case HostVisible:
		return "host-visible"
	}
	return "undefined"
}

// MemType describes a memory type of a device.
type MemType struct {
	Prop MemProp
	Heap int
}

// SelectMemory selects a memory type for a resource.
// typeBits is the resource's mask of allowed memory
// types. The selected type is the first one allowed by
// typeBits that has all properties of want.
// It returns ErrNoCompatibleMemory if no type qualifies.
func SelectMemory(types []MemType, typeBits uint32, want MemProp) (int, error) {
	for i := range types {
		if i >= 32 {
			break
		}
		if typeBits&(1<<i) != 0 && types[i].Prop&want == want {
			return i, nil
		}
	}
	return -1, ErrNoCompatibleMemory
}
