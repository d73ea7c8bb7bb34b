// Package gpu is the device seam of fftgen.
//
// It describes devices, opens command queues and compiles WGSL program
// source. Kernel generators never talk to a driver directly: they read the
// DeviceInfo behind a Queue to tune their output and hand finished source to
// BuildProgram. A backend has to be registered at runtime; MockBackend is a
// host-side stand-in used by tests and tooling, and WebGPUBackend (build tag
// "webgpu") compiles through wgpu-native.
package gpu
