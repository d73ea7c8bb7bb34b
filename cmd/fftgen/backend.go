package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cwbudde/fftgen/gpu"
)

// backends maps --backend values to constructors. Optional backends add
// themselves from build-tagged files.
var backends = map[string]func() (gpu.Backend, error){
	"mock": func() (gpu.Backend, error) {
		return gpu.NewMockBackend(), nil
	},
}

func backendNames() string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, " | ")
}

func newBackend(name string) (gpu.Backend, error) {
	ctor, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %s)", name, backendNames())
	}
	return ctor()
}

// compileCounter is implemented by backends that count compilations.
type compileCounter interface {
	CompileCount() int64
}
