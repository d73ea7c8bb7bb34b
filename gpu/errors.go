package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBackend is returned when no GPU backend is registered.
	ErrNoBackend = errors.New("fftgen/gpu: no backend registered")

	// ErrBackendUnavailable is returned when the backend is registered but not available
	// on the current system (e.g., no device, driver missing).
	ErrBackendUnavailable = errors.New("fftgen/gpu: backend unavailable")

	// ErrNilQueue is returned when a nil queue is passed to BuildProgram.
	ErrNilQueue = errors.New("fftgen/gpu: nil queue")

	// ErrClosed is returned when a closed context or queue is used.
	ErrClosed = errors.New("fftgen/gpu: use of closed context")
)

// CompileError is returned when a device compiler rejects program source.
// Log carries the compiler's diagnostic text verbatim.
type CompileError struct {
	Label string
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("fftgen/gpu: compiling %s: %s", e.Label, e.Log)
}
