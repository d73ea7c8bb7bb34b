package fftgen

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/cwbudde/fftgen/gpu"
)

// Action is one plan step turned into launchable GPU work: the signature
// derived from the plan, the shared forward and backward programs and the
// launch geometry. Actions are created by a Builder and are immutable once
// returned.
type Action struct {
	kind   GeneratorKind
	gen    generator
	plan   *Plan
	queue  gpu.Queue
	device gpu.DeviceInfo

	signature Signature
	work      WorkSizes
	programs  *ProgramPair
}

// Generator reports the strategy that generated the action's kernels.
func (a *Action) Generator() GeneratorKind {
	return a.kind
}

// SignatureData returns the normalized signature the action's programs are
// cached under.
func (a *Action) SignatureData() Signature {
	return a.signature
}

// Plan returns the plan the action was built from.
func (a *Action) Plan() *Plan {
	return a.plan
}

// Queue returns the queue the action was built for.
func (a *Action) Queue() gpu.Queue {
	return a.queue
}

// WorkSizes returns the launch geometry for the plan's batch count.
func (a *Action) WorkSizes() WorkSizes {
	return WorkSizes{Global: slices.Clone(a.work.Global), Local: slices.Clone(a.work.Local)}
}

// Ready reports whether both programs are available.
func (a *Action) Ready() bool {
	return a != nil && a.programs != nil
}

// Programs returns the compiled program pair.
func (a *Action) Programs() (*ProgramPair, error) {
	if !a.Ready() {
		return nil, ErrActionNotReady
	}
	return a.programs, nil
}

// Program returns the compiled program of one direction.
func (a *Action) Program(dir Direction) (gpu.Program, error) {
	pair, err := a.Programs()
	if err != nil {
		return nil, err
	}
	return pair.For(dir), nil
}

func (a *Action) initParams() error {
	sig, err := deriveSignature(a.gen, a.plan, a.device)
	if err != nil {
		return err
	}
	a.signature = sig
	return nil
}

func (a *Action) getWorkSizes() error {
	ws, err := a.gen.workSizes(a.signature.Params, a.plan, a.device)
	if err != nil {
		return &GenerationError{Generator: a.kind, Signature: a.signature.Key(), Err: err}
	}

	if err := ws.Validate(localLimit(a.device.MaxWorkGroupSize)); err != nil {
		return configErrorf(a.kind, "work sizes %v/%v: %v", ws.Global, ws.Local, err)
	}

	a.work = ws
	return nil
}

func (a *Action) generateKernel() (*KernelSource, error) {
	return renderSource(a.gen, a.signature)
}

func (a *Action) buildForwardKernel(ctx context.Context, src *KernelSource) (gpu.Program, error) {
	return a.buildKernel(ctx, src, DirectionForward)
}

func (a *Action) buildBackwardKernel(ctx context.Context, src *KernelSource) (gpu.Program, error) {
	return a.buildKernel(ctx, src, DirectionBackward)
}

func (a *Action) buildKernel(ctx context.Context, src *KernelSource, dir Direction) (gpu.Program, error) {
	code, entry := src.For(dir)

	prog, err := gpu.BuildProgram(ctx, a.queue, gpu.ProgramSource{
		Label:      fmt.Sprintf("%s/%s", a.kind, dir),
		Code:       code,
		EntryPoint: entry,
	})
	if err != nil {
		be := &BuildError{
			Generator: a.kind,
			Direction: dir,
			Signature: a.signature.Key(),
			Err:       err,
		}

		var ce *gpu.CompileError
		if errors.As(err, &ce) {
			be.Log = ce.Log
		}

		return nil, be
	}

	return prog, nil
}

// build generates the kernels and compiles both directions.
func (a *Action) build(ctx context.Context) (*KernelSource, *ProgramPair, error) {
	src, err := a.generateKernel()
	if err != nil {
		return nil, nil, err
	}

	fwd, err := a.buildForwardKernel(ctx, src)
	if err != nil {
		return nil, nil, err
	}

	bwd, err := a.buildBackwardKernel(ctx, src)
	if err != nil {
		_ = fwd.Close()
		return nil, nil, err
	}

	return src, &ProgramPair{Forward: fwd, Backward: bwd}, nil
}
