package fftgen

import (
	"fmt"
	"strings"

	"github.com/cwbudde/fftgen/internal/fftypes"
)

// GeneratorKind identifies one of the kernel generation strategies.
// The canonical definition is in internal/fftypes.
type GeneratorKind = fftypes.GeneratorKind

// Generator kinds.
const (
	GeneratorCopy             = fftypes.GeneratorCopy
	GeneratorStockham         = fftypes.GeneratorStockham
	GeneratorTransposeVLIW    = fftypes.GeneratorTransposeVLIW
	GeneratorTransposeGCN     = fftypes.GeneratorTransposeGCN
	GeneratorTransposeInplace = fftypes.GeneratorTransposeInplace
)

// ParseGeneratorKind maps a generator name such as "stockham" or
// "transpose-gcn" to its kind.
func ParseGeneratorKind(s string) (GeneratorKind, error) {
	return fftypes.ParseGeneratorKind(s)
}

// MaxDimensions is the highest transform rank a plan may describe.
const MaxDimensions = 3

// Layout describes how one side of a transform is stored.
type Layout uint8

const (
	LayoutComplexInterleaved Layout = iota
	LayoutComplexPlanar
	LayoutHermitianInterleaved
	LayoutHermitianPlanar
	LayoutReal
)

var layoutNames = []string{
	"complex-interleaved",
	"complex-planar",
	"hermitian-interleaved",
	"hermitian-planar",
	"real",
}

func (l Layout) String() string { return enumName(layoutNames, int(l)) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Layout) UnmarshalText(text []byte) error {
	v, err := parseEnum("layout", layoutNames, string(text))
	if err != nil {
		return err
	}
	*l = Layout(v)
	return nil
}

// Complex reports whether every element is a full complex value.
func (l Layout) Complex() bool {
	return l == LayoutComplexInterleaved || l == LayoutComplexPlanar
}

// Hermitian reports whether only the non-redundant half of a conjugate
// symmetric sequence is stored.
func (l Layout) Hermitian() bool {
	return l == LayoutHermitianInterleaved || l == LayoutHermitianPlanar
}

// Planar reports whether real and imaginary parts live in separate buffers.
func (l Layout) Planar() bool {
	return l == LayoutComplexPlanar || l == LayoutHermitianPlanar
}

// Precision selects the floating-point width of kernel arithmetic.
type Precision uint8

const (
	PrecisionSingle Precision = iota
	PrecisionDouble
)

var precisionNames = []string{"single", "double"}

func (p Precision) String() string { return enumName(precisionNames, int(p)) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Precision) UnmarshalText(text []byte) error {
	v, err := parseEnum("precision", precisionNames, string(text))
	if err != nil {
		return err
	}
	*p = Precision(v)
	return nil
}

// scalar returns the WGSL scalar type.
func (p Precision) scalar() string {
	if p == PrecisionDouble {
		return "f64"
	}
	return "f32"
}

// complexSize is the byte size of one complex element.
func (p Precision) complexSize() int {
	if p == PrecisionDouble {
		return 16
	}
	return 8
}

// Placement says whether the transform overwrites its input.
type Placement uint8

const (
	PlacementOutOfPlace Placement = iota
	PlacementInPlace
)

var placementNames = []string{"out-of-place", "in-place"}

func (p Placement) String() string { return enumName(placementNames, int(p)) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Placement) UnmarshalText(text []byte) error {
	v, err := parseEnum("placement", placementNames, string(text))
	if err != nil {
		return err
	}
	*p = Placement(v)
	return nil
}

// Operation is the kind of step a resolved plan performs.
type Operation uint8

const (
	OperationFFT Operation = iota
	OperationCopy
	OperationTranspose
)

var operationNames = []string{"fft", "copy", "transpose"}

func (o Operation) String() string { return enumName(operationNames, int(o)) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operation) UnmarshalText(text []byte) error {
	v, err := parseEnum("operation", operationNames, string(text))
	if err != nil {
		return err
	}
	*o = Operation(v)
	return nil
}

// Direction selects the forward or the inverse kernel of a program pair.
type Direction uint8

const (
	DirectionForward Direction = iota
	DirectionBackward
)

var directionNames = []string{"forward", "backward"}

func (d Direction) String() string { return enumName(directionNames, int(d)) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	v, err := parseEnum("direction", directionNames, string(text))
	if err != nil {
		return err
	}
	*d = Direction(v)
	return nil
}

// sign is the exponent sign of the twiddle factors.
func (d Direction) sign() float64 {
	if d == DirectionBackward {
		return 1
	}
	return -1
}

// suffix is appended to entry point names.
func (d Direction) suffix() string {
	if d == DirectionBackward {
		return "bwd"
	}
	return "fwd"
}

func enumName(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("unknown(%d)", v)
	}
	return names[v]
}

func parseEnum(what string, names []string, s string) (int, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for i, n := range names {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("fftgen: unknown %s %q", what, s)
}
