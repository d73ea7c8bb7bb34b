//go:build webgpu

package gpu

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/openfluke/webgpu/wgpu"
)

const vendorAMD = 0x1002

// WebGPUBackend compiles WGSL through wgpu-native. It is enabled with the
// "webgpu" build tag because it needs cgo and the native library.
type WebGPUBackend struct {
	once     sync.Once
	instance *wgpu.Instance
	adapters []*wgpu.Adapter
}

func (b *WebGPUBackend) init() {
	b.once.Do(func() {
		b.instance = wgpu.CreateInstance(nil)
		if b.instance == nil {
			return
		}
		b.adapters = b.instance.EnumerateAdapters(nil)
	})
}

func (b *WebGPUBackend) Info() BackendInfo {
	return BackendInfo{
		Name:        "webgpu",
		Version:     "wgpu-native",
		Description: "WebGPU backend compiling WGSL compute pipelines",
	}
}

func (b *WebGPUBackend) Available() bool {
	b.init()
	return b.instance != nil && len(b.adapters) > 0
}

func (b *WebGPUBackend) Devices() ([]DeviceInfo, error) {
	if !b.Available() {
		return nil, ErrBackendUnavailable
	}

	devices := make([]DeviceInfo, 0, len(b.adapters))
	for _, a := range b.adapters {
		devices = append(devices, describeAdapter(a))
	}

	return devices, nil
}

func (b *WebGPUBackend) NewContext(deviceIndex int) (Context, error) {
	if !b.Available() {
		return nil, ErrBackendUnavailable
	}

	if deviceIndex < 0 || deviceIndex >= len(b.adapters) {
		return nil, fmt.Errorf("webgpu backend: device index %d out of range", deviceIndex)
	}

	adapter := b.adapters[deviceIndex]

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("webgpu backend: request device: %w", err)
	}

	info := describeAdapter(adapter)
	info.Instance = nextInstance()

	return &webgpuContext{
		info:   info,
		device: device,
	}, nil
}

// RegisterWebGPUBackend registers the WebGPU backend.
func RegisterWebGPUBackend() {
	RegisterBackend(&WebGPUBackend{})
}

func describeAdapter(a *wgpu.Adapter) DeviceInfo {
	info := a.GetInfo()
	limits := a.GetLimits().Limits

	class := DeviceClassUnknown
	if info.VendorId == vendorAMD {
		class = DeviceClassGCN
	}

	return DeviceInfo{
		Name:             strings.TrimSpace(info.Name),
		Vendor:           strings.TrimSpace(info.VendorName),
		Driver:           strings.TrimSpace(info.DriverDescription),
		ComputeCap:       info.BackendType.String(),
		Class:            class,
		MaxWorkGroupSize: int(limits.MaxComputeInvocationsPerWorkgroup),
		LocalMemSize:     int(limits.MaxComputeWorkgroupStorageSize),
		// WGSL has no f64 type.
		SupportsDouble: false,
		SIMDWidth:      1,
	}
}

type webgpuContext struct {
	info   DeviceInfo
	device *wgpu.Device

	mu     sync.Mutex
	closed bool
}

func (c *webgpuContext) Device() DeviceInfo {
	return c.info
}

func (c *webgpuContext) NewQueue() (Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	return &webgpuQueue{ctx: c, queue: c.device.GetQueue()}, nil
}

func (c *webgpuContext) BuildProgram(ctx context.Context, src ProgramSource) (Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	module, err := c.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          src.Label + "_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: src.Code},
	})
	if err != nil {
		return nil, &CompileError{Label: src.Label, Log: err.Error()}
	}
	defer module.Release()

	pipeline, err := c.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   src.Label + "_Pipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: src.EntryPoint},
	})
	if err != nil {
		return nil, &CompileError{Label: src.Label, Log: err.Error()}
	}

	sum := sha256.Sum256([]byte(c.info.Key() + "\x00" + src.EntryPoint + "\x00" + src.Code))

	return &webgpuProgram{
		label:       src.Label,
		entry:       src.EntryPoint,
		fingerprint: hex.EncodeToString(sum[:]),
		pipeline:    pipeline,
	}, nil
}

func (c *webgpuContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.device.Release()

	return nil
}

type webgpuQueue struct {
	ctx   *webgpuContext
	queue *wgpu.Queue
}

func (q *webgpuQueue) Context() Context { return q.ctx }

func (q *webgpuQueue) Close() error {
	q.queue.Release()
	return nil
}

// webgpuProgram owns the compute pipeline for one entry point.
type webgpuProgram struct {
	label       string
	entry       string
	fingerprint string

	mu       sync.Mutex
	pipeline *wgpu.ComputePipeline
}

func (p *webgpuProgram) Label() string       { return p.label }
func (p *webgpuProgram) EntryPoint() string  { return p.entry }
func (p *webgpuProgram) Fingerprint() string { return p.fingerprint }

// Pipeline exposes the compiled pipeline for launch code.
func (p *webgpuProgram) Pipeline() *wgpu.ComputePipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pipeline
}

func (p *webgpuProgram) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}

	return nil
}
