package gpu

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// Backend is implemented by GPU backends (WebGPU, mock, etc.).
// It is responsible for device discovery and context creation.
type Backend interface {
	Info() BackendInfo
	Available() bool
	Devices() ([]DeviceInfo, error)
	NewContext(deviceIndex int) (Context, error)
}

// Context represents a backend-specific GPU context tied to a device.
type Context interface {
	// Device describes the context's device. Its Instance is unique to the
	// context, so programs are never cached across contexts.
	Device() DeviceInfo
	// NewQueue creates an execution queue.
	NewQueue() (Queue, error)
	// BuildProgram compiles src for the context's device. It blocks until the
	// compiler finishes; a rejected source yields *CompileError.
	BuildProgram(ctx context.Context, src ProgramSource) (Program, error)
	Close() error
}

// Queue is an execution queue. Kernel builders treat it as an opaque handle:
// they only follow it to its Context to describe the device and compile.
type Queue interface {
	Context() Context
	Close() error
}

// Program is a compiled compute program ready to launch.
type Program interface {
	Label() string
	EntryPoint() string
	// Fingerprint identifies the compiled artifact; equal source compiled on
	// the same device yields equal fingerprints.
	Fingerprint() string
	Close() error
}

var (
	backendMu sync.RWMutex
	backend   Backend

	contextSeq atomic.Uint64
)

// nextInstance returns a process-unique, non-zero context identity.
func nextInstance() uint64 {
	return contextSeq.Add(1)
}

// RegisterBackend registers a GPU backend. Passing nil clears the backend.
func RegisterBackend(b Backend) {
	backendMu.Lock()
	backend = b
	backendMu.Unlock()
}

// CurrentBackendInfo reports the currently registered backend, if any.
func CurrentBackendInfo() (BackendInfo, bool) {
	backendMu.RLock()
	b := backend
	backendMu.RUnlock()
	if b == nil {
		return BackendInfo{}, false
	}
	return b.Info(), true
}

func getBackend() Backend {
	backendMu.RLock()
	b := backend
	backendMu.RUnlock()
	return b
}

// queueContext returns the context behind q, or nil for a nil queue. A
// typed nil pointer wrapped in the interface counts as nil.
func queueContext(q Queue) Context {
	if isNil(q) {
		return nil
	}
	c := q.Context()
	if isNil(c) {
		return nil
	}
	return c
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// QueueDevice describes the device behind q, including the identity of the
// queue's context.
func QueueDevice(q Queue) (DeviceInfo, error) {
	c := queueContext(q)
	if c == nil {
		return DeviceInfo{}, ErrNilQueue
	}
	return c.Device(), nil
}

// BuildProgram compiles src on the device that q submits to.
func BuildProgram(ctx context.Context, q Queue, src ProgramSource) (Program, error) {
	c := queueContext(q)
	if c == nil {
		return nil, ErrNilQueue
	}
	return c.BuildProgram(ctx, src)
}
