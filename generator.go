package fftgen

import (
	"fmt"

	"github.com/cwbudde/fftgen/gpu"
)

// generator is one kernel generation strategy. Implementations are
// stateless; everything a kernel depends on travels in its SignatureParams.
type generator interface {
	Generator() GeneratorKind

	// initParams validates the plan against the strategy and the device and
	// derives the normalized parameters. Failures are *ConfigError.
	initParams(p *Plan, dev gpu.DeviceInfo) (SignatureParams, error)

	// generateKernel renders both directions from params alone.
	generateKernel(params SignatureParams) (*KernelSource, error)

	// workSizes computes the launch geometry for params at the plan's batch count.
	workSizes(params SignatureParams, p *Plan, dev gpu.DeviceInfo) (WorkSizes, error)
}

// family is embedded by every generator and pins its kind.
type family struct {
	kind GeneratorKind
}

func (f family) Generator() GeneratorKind {
	return f.kind
}

var generators = map[GeneratorKind]generator{
	GeneratorCopy:             copyGenerator{family{GeneratorCopy}},
	GeneratorStockham:         stockhamGenerator{family{GeneratorStockham}},
	GeneratorTransposeVLIW:    vliwTransposeGenerator{family{GeneratorTransposeVLIW}},
	GeneratorTransposeGCN:     gcnTransposeGenerator{family{GeneratorTransposeGCN}},
	GeneratorTransposeInplace: inplaceTransposeGenerator{family{GeneratorTransposeInplace}},
}

func lookupGenerator(kind GeneratorKind) (generator, error) {
	g, ok := generators[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGenerator, kind)
	}
	return g, nil
}

// paramsAs recovers the concrete parameter type of a generator.
func paramsAs[T SignatureParams](params SignatureParams) (T, error) {
	p, ok := params.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("parameters of type %T, want %T", params, zero)
	}
	return p, nil
}

// KernelSource is the generated source of a program pair.
type KernelSource struct {
	Forward       string
	Backward      string
	ForwardEntry  string
	BackwardEntry string
}

// For returns the source and entry point of one direction.
func (s *KernelSource) For(dir Direction) (code, entry string) {
	if dir == DirectionBackward {
		return s.Backward, s.BackwardEntry
	}
	return s.Forward, s.ForwardEntry
}

// checkCommon validates what every strategy requires of a plan.
func checkCommon(kind GeneratorKind, p *Plan, dev gpu.DeviceInfo) error {
	switch {
	case p.Precision > PrecisionDouble:
		return configErrorf(kind, "unknown precision %d", p.Precision)
	case p.InputLayout > LayoutReal || p.OutputLayout > LayoutReal:
		return configErrorf(kind, "unknown layout %d -> %d", p.InputLayout, p.OutputLayout)
	case p.Placement > PlacementInPlace:
		return configErrorf(kind, "unknown placement %d", p.Placement)
	case p.BatchSize < 0:
		return configErrorf(kind, "negative batch size %d", p.BatchSize)
	case p.Precision == PrecisionDouble && !dev.SupportsDouble:
		return configErrorf(kind, "device %q does not support double precision", dev.Name)
	}
	return nil
}

// deriveSignature runs the parameter derivation of gen.
func deriveSignature(gen generator, plan *Plan, dev gpu.DeviceInfo) (Signature, error) {
	params, err := gen.initParams(plan, dev)
	if err != nil {
		return Signature{}, err
	}

	kind := gen.Generator()

	return Signature{
		Kind:    kind,
		Variant: defaultVariant(kind),
		Device:  dev.Key(),
		Params:  params,
	}, nil
}

func renderSource(gen generator, sig Signature) (*KernelSource, error) {
	src, err := gen.generateKernel(sig.Params)
	if err != nil {
		return nil, &GenerationError{Generator: gen.Generator(), Signature: sig.Key(), Err: err}
	}
	return src, nil
}

// GenerateSource derives the signature of plan for generator kind on dev
// and renders its kernels without compiling them. The result depends only
// on the arguments.
func GenerateSource(kind GeneratorKind, plan *Plan, dev gpu.DeviceInfo) (Signature, *KernelSource, error) {
	if plan == nil {
		return Signature{}, nil, ErrNilPlan
	}

	gen, err := lookupGenerator(kind)
	if err != nil {
		return Signature{}, nil, err
	}

	sig, err := deriveSignature(gen, plan, dev)
	if err != nil {
		return Signature{}, nil, err
	}

	src, err := renderSource(gen, sig)
	if err != nil {
		return Signature{}, nil, err
	}

	return sig, src, nil
}

// SelectGenerator picks the strategy for a plan step: copies use the copy
// generator, transforms the Stockham generator, and transposes the in-place
// kernel for square in-place matrices or else the variant tuned for the
// device class.
func SelectGenerator(plan *Plan, dev gpu.DeviceInfo) (GeneratorKind, error) {
	if plan == nil {
		return 0, ErrNilPlan
	}

	switch plan.Operation {
	case OperationCopy:
		return GeneratorCopy, nil
	case OperationFFT:
		return GeneratorStockham, nil
	case OperationTranspose:
		if plan.inPlace() && len(plan.Lengths) == 2 && plan.Lengths[0] == plan.Lengths[1] {
			return GeneratorTransposeInplace, nil
		}
		if dev.Class == gpu.DeviceClassVLIW {
			return GeneratorTransposeVLIW, nil
		}
		return GeneratorTransposeGCN, nil
	default:
		return 0, fmt.Errorf("%w: no generator for operation %s", ErrInvalidConfiguration, plan.Operation)
	}
}
