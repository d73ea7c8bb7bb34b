package gpu

import "fmt"

// DeviceClass is the micro-architecture family a device belongs to.
// Generators tune tile shapes and work-group sizes per class.
type DeviceClass uint8

const (
	DeviceClassUnknown DeviceClass = iota
	// DeviceClassVLIW covers VLIW4/VLIW5 shader cores that favour wide
	// independent instruction bundles per work-item.
	DeviceClassVLIW
	// DeviceClassGCN covers scalar-SIMD devices with 64-wide wavefronts.
	DeviceClassGCN
	// DeviceClassHost is a CPU standing in for a device.
	DeviceClassHost
)

// String returns a human-readable name for the class.
func (c DeviceClass) String() string {
	switch c {
	case DeviceClassVLIW:
		return "vliw"
	case DeviceClassGCN:
		return "gcn"
	case DeviceClassHost:
		return "host"
	default:
		return "unknown"
	}
}

// DeviceInfo describes a GPU device.
type DeviceInfo struct {
	Name       string
	Vendor     string
	Driver     string
	MemoryMB   int
	ComputeCap string

	Class DeviceClass
	// MaxWorkGroupSize is the largest number of work-items in one group.
	MaxWorkGroupSize int
	// LocalMemSize is the work-group shared memory in bytes.
	LocalMemSize int
	// SupportsDouble reports native 64-bit float arithmetic in kernels.
	SupportsDouble bool
	// SIMDWidth is the number of float32 lanes a work-item maps onto.
	SIMDWidth    int
	ComputeUnits int

	// Instance identifies the context the description was read from.
	// Programs compiled in one context are unusable in another, even on the
	// same adapter. Zero means the description is not bound to a context.
	Instance uint64
}

// Key identifies the device for program caching. Two queues whose devices
// report the same key may share compiled programs, so descriptions read
// from a Context carry the context's Instance.
func (d DeviceInfo) Key() string {
	key := fmt.Sprintf("%s/%s/%s/%s/%s", d.Vendor, d.Name, d.Driver, d.Class, d.ComputeCap)
	if d.Instance != 0 {
		key += fmt.Sprintf("#%d", d.Instance)
	}
	return key
}

// BackendInfo describes a backend implementation.
type BackendInfo struct {
	Name        string
	Version     string
	Description string
}

// ProgramSource is one compilation unit handed to a backend compiler.
type ProgramSource struct {
	// Label names the program in diagnostics.
	Label string
	// Code is the WGSL module text.
	Code string
	// EntryPoint is the compute entry point to build a pipeline for.
	EntryPoint string
}
