//go:build webgpu

package main

import "github.com/cwbudde/fftgen/gpu"

func init() {
	backends["webgpu"] = func() (gpu.Backend, error) {
		b := &gpu.WebGPUBackend{}
		if !b.Available() {
			return nil, gpu.ErrBackendUnavailable
		}
		return b, nil
	}
}
