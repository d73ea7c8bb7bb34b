package fftgen

import (
	"errors"
	"fmt"

	"github.com/cwbudde/fftgen/gpu"
)

// Sentinel errors returned by kernel generation and build.
var (
	// ErrInvalidConfiguration is returned when a plan lies outside what the
	// chosen generator supports. Pick another generator or decomposition.
	ErrInvalidConfiguration = errors.New("fftgen: invalid configuration")

	// ErrGenerationFailure is returned when validated parameters could not be
	// rendered into kernel source. It indicates a defect in a generator.
	ErrGenerationFailure = errors.New("fftgen: kernel generation failed")

	// ErrBuildFailure is returned when the device compiler rejected the
	// generated source or the device lacks a required capability.
	ErrBuildFailure = errors.New("fftgen: kernel build failed")

	// ErrNilPlan is returned when a nil plan is passed to an action constructor.
	ErrNilPlan = errors.New("fftgen: nil plan")

	// ErrNilQueue is returned when a nil command queue is passed.
	ErrNilQueue = gpu.ErrNilQueue

	// ErrNilRepository is returned when a Builder is created without a repository.
	ErrNilRepository = errors.New("fftgen: nil kernel repository")

	// ErrActionNotReady is returned when programs are requested from an
	// action that did not finish its build sequence.
	ErrActionNotReady = errors.New("fftgen: action not ready")

	// ErrAlreadyRegistered is returned when programs are registered twice
	// under one signature.
	ErrAlreadyRegistered = errors.New("fftgen: signature already registered")

	// ErrUnknownGenerator is returned for generator kinds without an implementation.
	ErrUnknownGenerator = errors.New("fftgen: unknown generator")
)

// ConfigError reports why a generator refused a plan.
type ConfigError struct {
	Generator GeneratorKind
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("fftgen: %s: invalid configuration: %s", e.Generator, e.Reason)
}

// Is matches ErrInvalidConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

func configErrorf(kind GeneratorKind, format string, args ...any) error {
	return &ConfigError{Generator: kind, Reason: fmt.Sprintf(format, args...)}
}

// GenerationError reports a kernel that could not be rendered.
type GenerationError struct {
	Generator GeneratorKind
	Signature string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("fftgen: %s: generating kernel for %s: %v", e.Generator, e.Signature, e.Err)
}

// Is matches ErrGenerationFailure.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailure
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// BuildError reports a kernel the device compiler rejected. Log holds the
// compiler diagnostic verbatim.
type BuildError struct {
	Generator GeneratorKind
	Direction Direction
	Signature string
	Log       string
	Err       error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("fftgen: %s: building %s kernel for %s: %v", e.Generator, e.Direction, e.Signature, e.Err)
}

// Is matches ErrBuildFailure.
func (e *BuildError) Is(target error) bool {
	return target == ErrBuildFailure
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
