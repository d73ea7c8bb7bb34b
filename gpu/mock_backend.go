package gpu

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/fftgen/internal/cpu"
	"github.com/cwbudde/fftgen/internal/fftypes"
)

// MockBackend is a host-backed GPU backend for development and tests.
// Its compiler checks WGSL structure instead of generating machine code, and
// it counts every compilation so callers can assert on cache behaviour.
type MockBackend struct {
	device DeviceInfo

	compiles atomic.Int64

	mu    sync.RWMutex
	hook  func(ProgramSource) error
	delay time.Duration
}

// NewMockBackend returns a mock backend exposing HostDevice.
func NewMockBackend() *MockBackend {
	return NewMockBackendWithDevice(HostDevice())
}

// NewMockBackendWithDevice returns a mock backend exposing dev as its only
// device, which lets tests impersonate VLIW or GCN hardware.
func NewMockBackendWithDevice(dev DeviceInfo) *MockBackend {
	return &MockBackend{device: dev}
}

// HostDevice describes the current CPU as a device. Its limits follow the
// widest vector extension the CPU reports.
func HostDevice() DeviceInfo {
	return HostDeviceFor(cpu.DetectFeatures().SIMDLevel())
}

// HostDeviceFor describes a host device with the given vector unit. A
// work-group holds 32 work-items per float32 lane, clamped to [64, 256],
// and the SIMD level is part of the device key.
func HostDeviceFor(level fftypes.SIMDLevel) DeviceInfo {
	lanes := level.Float32Lanes()

	return DeviceInfo{
		Name:             "MockGPU",
		Vendor:           "fftgen",
		Driver:           "mock",
		MemoryMB:         0,
		ComputeCap:       level.String(),
		Class:            DeviceClassHost,
		MaxWorkGroupSize: min(max(32*lanes, 64), 256),
		LocalMemSize:     64 * 1024,
		SupportsDouble:   true,
		SIMDWidth:        lanes,
		ComputeUnits:     runtime.NumCPU(),
	}
}

func (b *MockBackend) Info() BackendInfo {
	return BackendInfo{
		Name:        "mock",
		Version:     "0.2",
		Description: "Host-backed mock GPU backend with a structural WGSL checker",
	}
}

func (b *MockBackend) Available() bool {
	return true
}

func (b *MockBackend) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{b.device}, nil
}

func (b *MockBackend) NewContext(deviceIndex int) (Context, error) {
	if deviceIndex != 0 {
		return nil, fmt.Errorf("mock backend: device index %d out of range", deviceIndex)
	}
	return &mockContext{backend: b, id: nextInstance()}, nil
}

// NewQueue is a shortcut for NewContext(0) followed by Context.NewQueue.
// Every call opens a new context, so queues from separate calls never share
// cached programs.
func (b *MockBackend) NewQueue() Queue {
	ctx := &mockContext{backend: b, id: nextInstance()}
	return &mockQueue{ctx: ctx}
}

// CompileCount reports how many programs the backend has been asked to build.
func (b *MockBackend) CompileCount() int64 {
	return b.compiles.Load()
}

// SetCompileHook installs fn to run before every compilation. A non-nil
// return value fails that compilation; a plain error becomes the compiler log.
func (b *MockBackend) SetCompileHook(fn func(ProgramSource) error) {
	b.mu.Lock()
	b.hook = fn
	b.mu.Unlock()
}

// SetCompileDelay makes every compilation block for d, emulating a slow
// device compiler.
func (b *MockBackend) SetCompileDelay(d time.Duration) {
	b.mu.Lock()
	b.delay = d
	b.mu.Unlock()
}

// RegisterMockBackend registers the mock backend as the active backend.
func RegisterMockBackend() {
	RegisterBackend(NewMockBackend())
}

type mockContext struct {
	backend *MockBackend
	id      uint64
	closed  atomic.Bool
}

func (c *mockContext) Device() DeviceInfo {
	dev := c.backend.device
	dev.Instance = c.id
	return dev
}

func (c *mockContext) NewQueue() (Queue, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	return &mockQueue{ctx: c}, nil
}

func (c *mockContext) BuildProgram(ctx context.Context, src ProgramSource) (Program, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	b := c.backend
	b.compiles.Add(1)

	b.mu.RLock()
	hook, delay := b.hook, b.delay
	b.mu.RUnlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	if hook != nil {
		if err := hook(src); err != nil {
			var ce *CompileError
			if errors.As(err, &ce) {
				return nil, ce
			}
			return nil, &CompileError{Label: src.Label, Log: err.Error()}
		}
	}

	if err := checkWGSL(src); err != nil {
		return nil, err
	}

	sum := sha256.Sum256([]byte(c.backend.device.Key() + "\x00" + src.EntryPoint + "\x00" + src.Code))

	return &mockProgram{
		label:       src.Label,
		entry:       src.EntryPoint,
		fingerprint: hex.EncodeToString(sum[:]),
	}, nil
}

func (c *mockContext) Close() error {
	c.closed.Store(true)
	return nil
}

type mockQueue struct {
	ctx *mockContext
}

func (q *mockQueue) Context() Context { return q.ctx }
func (q *mockQueue) Close() error     { return nil }

type mockProgram struct {
	label       string
	entry       string
	fingerprint string
	closed      atomic.Bool
}

func (p *mockProgram) Label() string       { return p.label }
func (p *mockProgram) EntryPoint() string  { return p.entry }
func (p *mockProgram) Fingerprint() string { return p.fingerprint }

func (p *mockProgram) Close() error {
	p.closed.Store(true)
	return nil
}

// checkWGSL performs the structural checks a real front end would fail on
// first: a compute entry point with the requested name and balanced
// delimiters outside comments.
func checkWGSL(src ProgramSource) error {
	fail := func(line int, format string, args ...any) error {
		return &CompileError{
			Label: src.Label,
			Log:   fmt.Sprintf("%s:%d: %s", src.Label, line, fmt.Sprintf(format, args...)),
		}
	}

	if strings.TrimSpace(src.Code) == "" {
		return fail(0, "empty module")
	}

	if src.EntryPoint == "" || !strings.Contains(src.Code, "fn "+src.EntryPoint+"(") {
		return fail(0, "entry point %q not found", src.EntryPoint)
	}

	if !strings.Contains(src.Code, "@compute") {
		return fail(0, "no @compute entry point")
	}

	type open struct {
		ch   byte
		line int
	}

	var stack []open

	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}

	for i, text := range strings.Split(src.Code, "\n") {
		line := i + 1
		if idx := strings.Index(text, "//"); idx >= 0 {
			text = text[:idx]
		}

		for j := 0; j < len(text); j++ {
			ch := text[j]
			switch ch {
			case '(', '[', '{':
				stack = append(stack, open{ch: ch, line: line})
			case ')', ']', '}':
				if len(stack) == 0 || stack[len(stack)-1].ch != pairs[ch] {
					return fail(line, "unexpected '%c'", ch)
				}
				stack = stack[:len(stack)-1]
			}
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return fail(top.line, "unclosed '%c'", top.ch)
	}

	return nil
}
